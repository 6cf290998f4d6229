package callout

import (
	"context"

	"go.uber.org/zap"

	"github.com/starwalkn/callout/internal/metric"
)

// coordinator drives the executor under the bounded-retry policy. Attempts
// within one invocation are strictly sequential and only the most recent
// result is kept.
type coordinator struct {
	exec *executor

	log     *zap.Logger
	metrics metric.Metrics
}

// executeWithPolicy performs the first attempt and, when its status lands in
// [400, 500] inclusive, up to maxRetries further attempts. The upper bound
// deliberately includes 500 while everything above it is returned as-is on
// the first attempt; the boundary is relied upon downstream and is not to be
// widened or narrowed.
func (c *coordinator) executeWithPolicy(ctx context.Context, req *Request, maxRetries int) Result {
	res := c.exec.execute(ctx, req)

	if res.Status >= 400 && res.Status <= 500 {
		c.log.Error("error while calling endpoint", zap.String("url", req.URL), zap.Int("status_code", res.Status))

		res = c.executeWithRetries(ctx, req, maxRetries)
	}

	return res
}

// executeWithRetries performs up to maxRetries attempts, returning early on
// any status in [200, 400). On exhaustion the last attempt's status code is
// kept but the outcome and body are reset to FAIL/nil, so the workflow never
// observes a residual SUCCESS or TIMEOUT once retries run out.
func (c *coordinator) executeWithRetries(ctx context.Context, req *Request, maxRetries int) Result {
	res := Result{Status: 0, Outcome: OutcomeFail}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		c.log.Warn("retrying the request for endpoint",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt),
		)
		c.metrics.IncRetriesTotal()

		res = c.exec.execute(ctx, req)
		if res.Status >= 200 && res.Status < 400 {
			return res
		}
	}

	return Result{Status: res.Status, Outcome: OutcomeFail, Body: nil}
}
