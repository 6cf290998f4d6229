package callout

import (
	"context"
	"fmt"
	"sync"
)

// AuthConfig is the "type tag + property map" shape through which callers
// select an auth decoration scheme.
type AuthConfig struct {
	Type       string
	Properties map[string]any
}

// ParseAuthConfig validates the untyped auth configuration handed in by a
// caller. Shape errors are raised synchronously at setup time, distinct from
// a runtime FAIL outcome.
func ParseAuthConfig(raw map[string]any) (AuthConfig, error) {
	t, ok := raw["type"].(string)
	if !ok || t == "" {
		return AuthConfig{}, fmt.Errorf("invalid auth config: expected {type: string, properties: map}")
	}

	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return AuthConfig{}, fmt.Errorf("invalid auth config: expected {type: string, properties: map}")
	}

	return AuthConfig{Type: t, Properties: props}, nil
}

// Authenticator decorates an outgoing request with authentication material.
// Implementations may block (e.g. a token exchange); they run inside the
// invocation's own deferred unit of work, never on the workflow scheduler.
type Authenticator interface {
	ApplyAuth(ctx context.Context, req *Request, cfg AuthConfig) (*Request, error)
}

type authRegistry struct {
	mu      sync.RWMutex
	schemes map[string]Authenticator
}

func newAuthRegistry() *authRegistry {
	return &authRegistry{
		schemes: make(map[string]Authenticator),
	}
}

func (r *authRegistry) register(name string, a Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemes[name] = a
}

func (r *authRegistry) resolve(name string) (Authenticator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.schemes[name]
	if !ok {
		return nil, fmt.Errorf("unknown auth config type: %q", name)
	}

	return a, nil
}

func stringProperty(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok {
		return "", fmt.Errorf("auth config property %q is required", key)
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("auth config property %q must be a non-empty string", key)
	}

	return s, nil
}

func optionalStringProperty(props map[string]any, key, fallback string) string {
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}

	return fallback
}
