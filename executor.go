package callout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/starwalkn/callout/internal/metric"
)

const responseKey = "response"

// executor performs exactly one network round trip per execute call and
// classifies every possible failure into a Result. Nothing escapes to the
// caller as an error.
type executor struct {
	client *http.Client

	// attemptTimeout bounds a whole attempt (connect + request + read).
	// Zero means no deadline beyond the transport's own timeouts.
	attemptTimeout time.Duration
	maxBodySize    int64

	log     *zap.Logger
	metrics metric.Metrics
}

func (x *executor) execute(ctx context.Context, req *Request) Result {
	if x.attemptTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, x.attemptTimeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		x.log.Error("invalid url for external api call", zap.String("url", req.URL), zap.Error(err))
		x.metrics.IncAttemptsTotal(metric.EventInvalidURL)

		return Result{Status: statusBadRequest, Outcome: OutcomeFail}
	}

	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	start := time.Now()

	hresp, err := x.client.Do(hreq)
	if err != nil {
		return x.classifyTransportError(req.URL, err)
	}
	defer hresp.Body.Close()

	x.metrics.UpdateAttemptDuration(hreq.URL.Host, start)

	return x.classifyResponse(req.URL, hresp)
}

// classifyResponse maps the response status code onto the outcome vocabulary.
// Only 2xx responses have their body captured.
func (x *executor) classifyResponse(endpoint string, hresp *http.Response) Result {
	code := hresp.StatusCode

	switch {
	case code >= 200 && code < 300:
		payload, err := x.readBody(hresp)
		if err != nil {
			return x.classifyBodyError(endpoint, err)
		}

		var parsed map[string]any

		if len(payload) > 0 {
			parsed, err = parseBody(hresp.Header.Get("Content-Type"), payload)
			if err != nil {
				x.log.Error("error while parsing response", zap.String("url", endpoint), zap.Error(err))
				x.metrics.IncAttemptsTotal(metric.EventParseError)

				return Result{Status: statusInternalServerError, Outcome: OutcomeFail}
			}
		}

		x.log.Info("successfully called the external api",
			zap.Int("status_code", code),
			zap.String("url", endpoint),
		)
		x.metrics.IncAttemptsTotal(metric.EventSuccess)

		return Result{Status: code, Outcome: OutcomeSuccess, Body: parsed}

	case code >= 300 && code < 400:
		x.log.Warn("external api invocation returned a redirection",
			zap.Int("status_code", code),
			zap.String("url", endpoint),
		)
		x.metrics.IncAttemptsTotal(metric.EventRedirect)

		return Result{Status: code, Outcome: OutcomeFail}

	case code >= 400 && code < 500:
		x.log.Warn("external api invocation returned a client error",
			zap.Int("status_code", code),
			zap.String("url", endpoint),
		)
		x.metrics.IncAttemptsTotal(metric.EventClientError)

		return Result{Status: code, Outcome: OutcomeFail}

	default:
		x.log.Error("received unknown response from external api call",
			zap.Int("status_code", code),
			zap.String("url", endpoint),
		)
		x.metrics.IncAttemptsTotal(metric.EventServerError)

		return Result{Status: code, Outcome: OutcomeFail}
	}
}

// classifyTransportError converts a failure to obtain any response into a
// synthetic status and outcome. Connect and read timeouts, and any other I/O
// failure reaching the endpoint, become 408/TIMEOUT.
func (x *executor) classifyTransportError(endpoint string, err error) Result {
	var nerr net.Error

	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		x.log.Error("timed out while waiting for the endpoint", zap.String("url", endpoint), zap.Error(err))
	} else {
		x.log.Error("error while calling endpoint", zap.String("url", endpoint), zap.Error(err))
	}

	x.metrics.IncAttemptsTotal(metric.EventTimeout)

	return Result{Status: statusRequestTimeout, Outcome: OutcomeTimeout}
}

// classifyBodyError handles failures while draining a 2xx response body.
func (x *executor) classifyBodyError(endpoint string, err error) Result {
	if errors.Is(err, errBodyTooLarge) {
		x.log.Error("response body exceeds the configured limit", zap.String("url", endpoint))
		x.metrics.IncAttemptsTotal(metric.EventParseError)

		return Result{Status: statusInternalServerError, Outcome: OutcomeFail}
	}

	x.log.Error("error while reading response body", zap.String("url", endpoint), zap.Error(err))
	x.metrics.IncAttemptsTotal(metric.EventTimeout)

	return Result{Status: statusRequestTimeout, Outcome: OutcomeTimeout}
}

var errBodyTooLarge = errors.New("response body too large")

func (x *executor) readBody(hresp *http.Response) ([]byte, error) {
	var reader io.Reader = hresp.Body
	if x.maxBodySize > 0 {
		reader = io.LimitReader(hresp.Body, x.maxBodySize+1)
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if x.maxBodySize > 0 && int64(len(payload)) > x.maxBodySize {
		return nil, errBodyTooLarge
	}

	return payload, nil
}

// parseBody turns a 2xx response body into the generic key/value tree handed
// to the workflow. Plain text is wrapped as {"response": <raw text>}; anything
// else must be a JSON object.
func parseBody(contentType string, payload []byte) (map[string]any, error) {
	if strings.Contains(contentType, TypeTextPlain) {
		return map[string]any{responseKey: string(payload)}, nil
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response body is not a JSON object")
	}

	return obj, nil
}
