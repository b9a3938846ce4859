package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dataworkspace/pkg/auth"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// echoCaller writes the authenticated caller id
func echoCaller(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	_, _ = w.Write([]byte(caller.ID))
}

func TestAuthenticator_KeyCannotImpersonateTokenSubject(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "s3cret"})
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator("s3cret", "", nil, time.Hour)
	require.NoError(t, err)
	token, err := generator.GenerateToken("victim-user-01")
	require.NoError(t, err)

	authenticator := NewAuthenticator(auth.NewAPIKeyValidator(nil), validator, nil, nil, 0, pkgerrors.NewErrorHandler(logger, false), logger)
	handler := authenticator.Middleware(http.HandlerFunc(echoCaller))

	serve := func(header, value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set(header, value)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Act
	bearer := serve("Authorization", "Bearer "+token)
	key := serve(APIKeyHeader, "victim-user-01")
	forged := serve(APIKeyHeader, "jwt:victim-user-01")

	// Assert
	require.Equal(t, http.StatusOK, bearer.Code)
	require.Equal(t, http.StatusOK, key.Code)
	assert.Equal(t, "jwt:victim-user-01", bearer.Body.String())
	assert.Equal(t, "victim-user-01", key.Body.String())
	assert.Equal(t, http.StatusUnauthorized, forged.Code)
}
