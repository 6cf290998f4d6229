package metric

import "time"

// Event classifies a single attempt for diagnostics. Events are purely
// observational and never affect control flow.
type Event string

const (
	EventSuccess     Event = "success"
	EventRedirect    Event = "redirect"
	EventClientError Event = "client_error"
	EventServerError Event = "server_error"
	EventTimeout     Event = "timeout"
	EventParseError  Event = "parse_error"
	EventInvalidURL  Event = "invalid_url"
)

type Metrics interface {
	IncInvocationsTotal()
	IncAttemptsTotal(Event)
	IncRetriesTotal()
	IncDeniedTotal()
	IncAuthFailuresTotal()
	UpdateAttemptDuration(host string, start time.Time)
}
