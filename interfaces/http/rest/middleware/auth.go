package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"dataworkspace/pkg/auth"
	pkgerrors "dataworkspace/pkg/errors"

	"go.uber.org/zap"
)

// APIKeyHeader carries the caller's API key
const APIKeyHeader = "X-API-Key"

// Authenticator resolves the caller of every API request and applies per-IP and
// per-caller rate limits
type Authenticator struct {
	apiKeys       *auth.APIKeyValidator
	jwt           *auth.JWTValidator
	ipLimiter     auth.RateLimiter
	callerLimiter auth.RateLimiter
	limit         int
	errors        *pkgerrors.ErrorHandler
	logger        *zap.Logger
}

// NewAuthenticator creates the authentication middleware. jwt may be nil, in which
// case bearer tokens are not accepted. Either limiter may be nil to disable it.
func NewAuthenticator(
	apiKeys *auth.APIKeyValidator,
	jwt *auth.JWTValidator,
	ipLimiter auth.RateLimiter,
	callerLimiter auth.RateLimiter,
	limitPerMinute int,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		apiKeys:       apiKeys,
		jwt:           jwt,
		ipLimiter:     ipLimiter,
		callerLimiter: callerLimiter,
		limit:         limitPerMinute,
		errors:        errorHandler,
		logger:        logger,
	}
}

// Middleware authenticates the request and stores the caller in its context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.allow(r, a.ipLimiter, getClientIP(r)) {
			a.errors.Handle(w, r, pkgerrors.NewRateLimitError(a.limit, "minute"))
			return
		}

		caller, err := a.authenticate(r)
		if err != nil {
			code, message := unauthorizedReason(err)
			a.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(message).WithCode(code))
			return
		}

		if !a.allow(r, a.callerLimiter, caller.ID) {
			a.errors.Handle(w, r, pkgerrors.NewRateLimitError(a.limit, "minute"))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	})
}

// authenticate prefers the API key header and falls back to a bearer token
func (a *Authenticator) authenticate(r *http.Request) (auth.Caller, error) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return a.apiKeys.Validate(key)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return auth.Caller{}, auth.ErrMissingCredentials
	}
	if a.jwt == nil {
		return auth.Caller{}, auth.ErrInvalidToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return auth.Caller{}, auth.ErrInvalidToken
	}
	return a.jwt.ValidateToken(parts[1])
}

// allow consults a limiter. Limiter failures are logged and let the request through.
func (a *Authenticator) allow(r *http.Request, limiter auth.RateLimiter, key string) bool {
	if limiter == nil {
		return true
	}
	allowed, err := limiter.Allow(r.Context(), key)
	if err != nil {
		a.logger.Warn("Rate limiter unavailable", zap.Error(err))
	}
	return allowed
}

// unauthorizedReason maps an authentication failure to an error code and message
func unauthorizedReason(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "MISSING_CREDENTIALS", "Missing credentials"
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "INVALID_API_KEY", "Invalid API key format. Must be 8-64 characters from A-Z, a-z, 0-9, - and _"
	case errors.Is(err, auth.ErrUnknownAPIKey):
		return "UNKNOWN_API_KEY", "API key not authorized"
	case errors.Is(err, auth.ErrExpiredToken):
		return "EXPIRED_TOKEN", "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "INVALID_SIGNATURE", "Invalid token signature"
	default:
		return "INVALID_TOKEN", "Invalid token"
	}
}

// getClientIP returns the request's remote host. chi's RealIP middleware has
// already replaced RemoteAddr with the forwarded address when present.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
