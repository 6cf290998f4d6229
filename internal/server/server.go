package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/starwalkn/callout"
	"github.com/starwalkn/callout/internal/ratelimit"
)

// Server exposes the invocation engine as a small sidecar HTTP service.
type Server struct {
	http   *http.Server
	engine *callout.Engine

	rateLimiter *ratelimit.RateLimit

	log *zap.Logger
}

func New(cfg callout.Config, engine *callout.Engine, log *zap.Logger) *Server {
	s := &Server{
		engine: engine,
		log:    log,
	}

	if cfg.Server.RateLimiter.Enabled {
		s.rateLimiter = ratelimit.New(cfg.Server.RateLimiter.Limit, cfg.Server.RateLimiter.Window)

		if err := s.rateLimiter.Start(); err != nil {
			log.Fatal("failed to start ratelimit feature", zap.Error(err))
		}
	}

	r := chi.NewRouter()

	r.Post("/invoke", s.handleInvoke)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Engine.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	return s
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.rateLimiter != nil {
		_ = s.rateLimiter.Stop()
	}

	return s.http.Shutdown(ctx)
}

type invokeRequest struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers"`
	Body    string         `json:"body"`
	Auth    map[string]any `json:"auth"`
}

type invokeResponse struct {
	Outcome callout.Outcome `json:"outcome"`
	Status  int             `json:"status"`
	Data    map[string]any  `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if s.rateLimiter != nil && !s.rateLimiter.Allow(extractClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return
	}

	var in invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	if in.Method == "" || in.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "method and url are required"})
		return
	}

	headers, err := callout.ValidateHeaders(in.Headers)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var authCfg *callout.AuthConfig

	if in.Auth != nil {
		cfg, err := callout.ParseAuthConfig(in.Auth)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		authCfg = &cfg
	}

	req := &callout.Request{
		Method:  in.Method,
		URL:     in.URL,
		Headers: headers,
	}

	if in.Body != "" {
		req.Body = []byte(in.Body)
	}

	done := make(chan callout.Result, 1)

	s.engine.Invoke(r.Context(), req, authCfg, func(res callout.Result) {
		done <- res
	})

	res := <-done

	s.log.Debug("invocation finished",
		zap.String("url", in.URL),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("status", res.Status),
	)

	writeJSON(w, http.StatusOK, invokeResponse{
		Outcome: res.Outcome,
		Status:  res.Status,
		Data:    res.Body,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Fallback on error
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}

	return r.RemoteAddr
}
