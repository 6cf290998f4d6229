package callout

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/starwalkn/callout/internal/metric"
)

// Engine is the outbound invocation engine. It owns a single shared transport
// (safe for concurrent use by many simultaneous invocations), the immutable
// domain allow-list, and the auth scheme registry. Configuration is read once
// at construction and never re-read.
type Engine struct {
	id  string // UUID for internal usage.
	cfg EngineConfig

	// retryCount is cfg.RetryCount resolved at construction; zero is a valid
	// no-retry policy.
	retryCount int

	guard *domainGuard
	coord *coordinator
	auth  *authRegistry
	sem   *semaphore.Weighted

	client *http.Client

	log     *zap.Logger
	metrics metric.Metrics
}

func New(cfg EngineConfig, log *zap.Logger) *Engine {
	metrics := metric.NewNop()

	if cfg.Metrics.Enabled {
		switch cfg.Metrics.Provider {
		case "prometheus":
			metrics = metric.NewPrometheus()
		default:
		}
	}

	//nolint:mnd // be configurable in future
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	client := &http.Client{
		Transport: transport,
		// Redirects are classified, never followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// The connection-request timeout covers waiting for a pooled connection,
	// which the net/http transport folds into the overall attempt deadline.
	var attemptTimeout time.Duration
	if cfg.ConnectTimeout > 0 || cfg.ConnectionRequestTimeout > 0 || cfg.ReadTimeout > 0 {
		attemptTimeout = cfg.ConnectTimeout + cfg.ConnectionRequestTimeout + cfg.ReadTimeout
	}

	exec := &executor{
		client:         client,
		attemptTimeout: attemptTimeout,
		maxBodySize:    cfg.MaxResponseBodySize,
		log:            log.Named("executor"),
		metrics:        metrics,
	}

	maxParallel := cfg.MaxParallelInvocations
	if maxParallel < 1 {
		maxParallel = int64(2 * runtime.NumCPU())
	}

	retryCount := defaultRetryCount
	if cfg.RetryCount != nil {
		retryCount = *cfg.RetryCount
	}

	engine := &Engine{
		id:         uuid.NewString(),
		cfg:        cfg,
		retryCount: retryCount,
		guard:      newDomainGuard(cfg.AllowedDomains, log.Named("guard")),
		coord: &coordinator{
			exec:    exec,
			log:     log.Named("coordinator"),
			metrics: metrics,
		},
		auth:    newAuthRegistry(),
		sem:     semaphore.NewWeighted(maxParallel),
		client:  client,
		log:     log,
		metrics: metrics,
	}

	engine.auth.register(AuthTypeBasic, basicAuthScheme{})
	engine.auth.register(AuthTypeAPIKey, apiKeyScheme{})
	engine.auth.register(AuthTypeBearer, bearerTokenScheme{})
	engine.auth.register(AuthTypeClientCredential, &clientCredentialScheme{client: client})
	engine.auth.register(AuthTypeJWTBearer, jwtBearerScheme{})

	return engine
}

// RegisterAuthenticator plugs an external auth decoration capability into the
// registry under the given type tag, replacing any built-in scheme with the
// same tag.
func (e *Engine) RegisterAuthenticator(name string, a Authenticator) {
	e.auth.register(name, a)
}

// Invoke registers the request as a deferred unit of work and returns
// immediately; the workflow scheduler never blocks on network I/O. The
// terminal result is delivered to onComplete exactly once, on every path,
// with an empty (never nil) body mapping when no body was captured.
func (e *Engine) Invoke(ctx context.Context, req *Request, authCfg *AuthConfig, onComplete CompletionFunc) {
	go func() {
		res := e.process(ctx, req, authCfg)
		if res.Body == nil {
			res.Body = map[string]any{}
		}

		onComplete(res)
	}()
}

// process runs one invocation to its terminal result. All failure classes are
// absorbed into a Result; nothing escapes to the workflow engine.
func (e *Engine) process(ctx context.Context, req *Request, authCfg *AuthConfig) (res Result) {
	log := e.log.With(zap.String("invocation_id", newInvocationID()))

	defer func() {
		if p := recover(); p != nil {
			log.Error("unexpected failure during invocation", zap.Any("panic", p))
			res = Result{Outcome: OutcomeFail}
		}
	}()

	e.metrics.IncInvocationsTotal()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		log.Error("invocation aborted before start", zap.Error(err))
		return Result{Outcome: OutcomeFail}
	}
	defer e.sem.Release(1)

	prepared := req.Clone()

	if authCfg != nil {
		scheme, err := e.auth.resolve(authCfg.Type)
		if err != nil {
			log.Error("error while applying authentication to the request", zap.Error(err))
			e.metrics.IncAuthFailuresTotal()

			return Result{Outcome: OutcomeFail}
		}

		prepared, err = scheme.ApplyAuth(ctx, prepared, *authCfg)
		if err != nil {
			log.Error("error while applying authentication to the request", zap.Error(err))
			e.metrics.IncAuthFailuresTotal()

			return Result{Outcome: OutcomeFail}
		}
	}

	prepared.Headers = normalizeHeaders(prepared.Headers)

	if !e.guard.Permit(parseTarget(prepared.URL)) {
		log.Error("request url does not match with the allowed domain list", zap.String("url", prepared.URL))
		e.metrics.IncDeniedTotal()

		return Result{Outcome: OutcomeFail}
	}

	return e.coord.executeWithPolicy(ctx, prepared, e.retryCount)
}

// parseTarget returns the parsed target URL, or nil when it cannot be parsed
// at all. The guard denies nil targets; a parseable URL without a host is
// still permitted by an empty allow-list and left to the executor to classify
// as a client-side request error.
func parseTarget(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	return u
}

// newInvocationID uses ulid.Make's pooled entropy: invocations run on their
// own goroutines, and a shared ulid.Monotonic reader is not safe for
// concurrent use.
func newInvocationID() string {
	return strings.ToLower(ulid.Make().String())
}
