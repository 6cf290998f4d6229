package callout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/starwalkn/callout/internal/metric"
)

func newTestCoordinator(timeout time.Duration) *coordinator {
	return &coordinator{
		exec:    newTestExecutor(timeout),
		log:     zap.NewNop(),
		metrics: metric.NewNop(),
	}
}

// sequenceServer returns each status in order, then keeps returning the last.
func sequenceServer(calls *atomic.Int32, statuses ...int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)

		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}

		if statuses[idx] == http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))

			return
		}

		w.WriteHeader(statuses[idx])
	}))
}

func TestCoordinator_FirstAttemptSuccessNoRetry(t *testing.T) {
	var calls atomic.Int32

	srv := sequenceServer(&calls, http.StatusOK)
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 3)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s; want SUCCESS", res.Outcome)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d; want 1", got)
	}
}

func TestCoordinator_RedirectNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 3)

	if res.Outcome != OutcomeFail || res.Status != http.StatusMovedPermanently {
		t.Fatalf("got (%s, %d); want (FAIL, 301)", res.Outcome, res.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d; want 1", got)
	}
}

func TestCoordinator_Status501NotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := sequenceServer(&calls, http.StatusNotImplemented)
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 3)

	if res.Outcome != OutcomeFail || res.Status != http.StatusNotImplemented {
		t.Fatalf("got (%s, %d); want (FAIL, 501)", res.Outcome, res.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d; want 1: 501 is above the retry boundary", got)
	}
}

func TestCoordinator_Status500IsRetried(t *testing.T) {
	var calls atomic.Int32

	srv := sequenceServer(&calls, http.StatusInternalServerError, http.StatusOK)
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 2)

	// 500 sits inside the inclusive [400, 500] retry boundary.
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s; want SUCCESS", res.Outcome)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d; want 2", got)
	}
}

func TestCoordinator_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32

	srv := sequenceServer(&calls, http.StatusNotFound, http.StatusOK)
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 2)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s; want SUCCESS", res.Outcome)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d; want 200", res.Status)
	}
	if res.Body["ok"] != true {
		t.Errorf(`body["ok"] = %v; want true`, res.Body["ok"])
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d; want 2 (1 initial + 1 retry)", got)
	}
}

func TestCoordinator_RetrySucceedsOnRedirect(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 3)

	// Any status in [200, 400) terminates the retry loop, redirects included.
	if res.Status != http.StatusFound {
		t.Fatalf("status = %d; want 302", res.Status)
	}
	if res.Outcome != OutcomeFail {
		t.Errorf("outcome = %s; want FAIL (redirect classification)", res.Outcome)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d; want 2", got)
	}
}

func TestCoordinator_ExhaustionResetsOutcomeAndBody(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"residual":"body"}`))
	}))
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 2)

	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %s; want FAIL after exhaustion", res.Outcome)
	}
	if res.Status != http.StatusTeapot {
		t.Errorf("status = %d; want last attempt's 418", res.Status)
	}
	if res.Body != nil {
		t.Errorf("body = %v; want nil after exhaustion", res.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d; want 3 (1 initial + 2 retries)", got)
	}
}

func TestCoordinator_ExhaustionDiscardsTimeoutOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestCoordinator(30 * time.Millisecond)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 1)

	// Every attempt times out (synthetic 408, inside the retry boundary), but
	// exhaustion must surface FAIL, never a residual TIMEOUT.
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %s; want FAIL", res.Outcome)
	}
	if res.Status != 408 {
		t.Errorf("status = %d; want 408", res.Status)
	}
}

func TestCoordinator_ZeroRetriesReturnsResetResult(t *testing.T) {
	var calls atomic.Int32

	srv := sequenceServer(&calls, http.StatusNotFound)
	defer srv.Close()

	c := newTestCoordinator(time.Second)

	res := c.executeWithPolicy(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}, 0)

	// With no retries configured the loop never runs; the reset result
	// carries no status at all.
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %s; want FAIL", res.Outcome)
	}
	if res.Status != 0 {
		t.Errorf("status = %d; want 0", res.Status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d; want 1", got)
	}
}
