package auth

import (
	"context"
	"errors"
	"regexp"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidAPIKey      = errors.New("invalid API key format")
	ErrUnknownAPIKey      = errors.New("API key not authorized")
)

// apiKeyPattern is the accepted API key shape: 8 to 64 URL-safe characters
var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// Credential methods
const (
	MethodAPIKey = "api_key"
	MethodJWT    = "jwt"
)

// JWTCallerPrefix namespaces token subjects. The colon is outside the API key
// alphabet, so no key can name a token caller.
const JWTCallerPrefix = MethodJWT + ":"

// Caller is the authenticated identity of a request. ID is opaque and only
// compared for equality against stored owners.
type Caller struct {
	ID     string
	Method string
}

type callerKey struct{}

// WithCaller stores the caller in the context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the caller from the context
func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok && caller.ID != ""
}

// APIKeyValidator checks API keys. The key itself is the caller id.
type APIKeyValidator struct {
	allowed map[string]struct{}
}

// NewAPIKeyValidator creates a validator. An empty allow-list accepts any
// well-formed key.
func NewAPIKeyValidator(allowedKeys []string) *APIKeyValidator {
	v := &APIKeyValidator{}
	if len(allowedKeys) > 0 {
		v.allowed = make(map[string]struct{}, len(allowedKeys))
		for _, k := range allowedKeys {
			v.allowed[k] = struct{}{}
		}
	}
	return v
}

// Validate returns the caller for a key
func (v *APIKeyValidator) Validate(key string) (Caller, error) {
	if key == "" {
		return Caller{}, ErrMissingCredentials
	}
	if !apiKeyPattern.MatchString(key) {
		return Caller{}, ErrInvalidAPIKey
	}
	if v.allowed != nil {
		if _, ok := v.allowed[key]; !ok {
			return Caller{}, ErrUnknownAPIKey
		}
	}
	return Caller{ID: key, Method: MethodAPIKey}, nil
}
