package callout

import (
	"fmt"
	"strings"
)

const (
	TypeApplicationJSON = "application/json"
	TypeFormURLEncoded  = "application/x-www-form-urlencoded"
	TypeTextPlain       = "text/plain"
)

const headerAccept = "Accept"

// Request is an outbound request descriptor. It is built by the caller and
// immutable once handed to the engine, except for header normalization and
// auth decoration, both of which operate on a clone.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Clone returns a deep copy of the request. Decorators modify the copy so the
// caller's descriptor stays untouched.
func (r *Request) Clone() *Request {
	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}

	var body []byte
	if r.Body != nil {
		body = make([]byte, len(r.Body))
		copy(body, r.Body)
	}

	return &Request{
		Method:  r.Method,
		URL:     r.URL,
		Headers: headers,
		Body:    body,
	}
}

// SetHeader sets a header on the request, replacing any existing entry whose
// key matches case-insensitively.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string, 1)
	}

	for k := range r.Headers {
		if strings.EqualFold(k, key) {
			delete(r.Headers, k)
		}
	}

	r.Headers[key] = value
}

// ValidateHeaders converts an untyped header mapping into a string mapping.
// Non-string values are a programmer error raised synchronously, not a
// runtime FAIL outcome.
func ValidateHeaders(raw map[string]any) (map[string]string, error) {
	headers := make(map[string]string, len(raw))

	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("header %q: values must be of type string, got %T", k, v)
		}

		headers[k] = s
	}

	return headers, nil
}

// normalizeHeaders drops header entries with blank keys or the literal key
// "null", and ensures an Accept: application/json header is present unless
// the caller already supplied one.
func normalizeHeaders(headers map[string]string) map[string]string {
	normalized := make(map[string]string, len(headers)+1)

	hasAccept := false

	for k, v := range headers {
		if strings.TrimSpace(k) == "" || k == "null" {
			continue
		}

		if strings.EqualFold(k, headerAccept) {
			hasAccept = true
		}

		normalized[k] = v
	}

	if !hasAccept {
		normalized[headerAccept] = TypeApplicationJSON
	}

	return normalized
}
