package callout

// Outcome is the single signal the calling workflow branches on. Status codes
// are carried for diagnostics and body handling only, never for branching.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Result is the classified outcome of a single attempt. The retry coordinator
// keeps only the most recent one; exactly one Result is surfaced per
// invocation and it is always the result of the last attempt made.
type Result struct {
	// Status is the HTTP status code of the response, or a synthetic code
	// (400, 408, 500) when no response was received. Zero means no attempt
	// ever produced a code.
	Status int

	Outcome Outcome

	// Body is the parsed response body. Only captured for 2xx responses:
	// a JSON object tree, or {"response": <raw text>} for text/plain.
	// Nil on all other paths.
	Body map[string]any
}

// CompletionFunc is the continuation through which the workflow engine
// receives the terminal result. It is called exactly once per invocation and
// is not retained afterwards.
type CompletionFunc func(Result)

const (
	// Synthetic status codes used when no response was obtained.
	statusBadRequest          = 400
	statusRequestTimeout      = 408
	statusInternalServerError = 500
)
