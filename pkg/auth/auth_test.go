package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyValidator(t *testing.T) {
	open := NewAPIKeyValidator(nil)
	restricted := NewAPIKeyValidator([]string{"team-key_0001"})

	tests := []struct {
		name      string
		validator *APIKeyValidator
		key       string
		wantErr   error
	}{
		{"well formed", open, "valid-test-key-123", nil},
		{"empty", open, "", ErrMissingCredentials},
		{"too short", open, "short", ErrInvalidAPIKey},
		{"bad characters", open, "key with spaces!", ErrInvalidAPIKey},
		{"too long", open, string(make([]byte, 65)), ErrInvalidAPIKey},
		{"allow-listed", restricted, "team-key_0001", nil},
		{"not allow-listed", restricted, "other-key-0002", ErrUnknownAPIKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller, err := tt.validator.Validate(tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Caller{ID: tt.key, Method: MethodAPIKey}, caller)
		})
	}
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), Caller{ID: "alice", Method: MethodJWT})
	caller, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", caller.ID)
}

func TestJWT_RoundTrip(t *testing.T) {
	// Arrange
	generator, err := NewJWTGenerator("s3cret", "dataworkspace", []string{"workspace-api"}, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     "s3cret",
		Issuer:        "dataworkspace",
		Audience:      []string{"workspace-api"},
	})
	require.NoError(t, err)

	// Act
	token, err := generator.GenerateToken("alice")
	require.NoError(t, err)
	caller, err := validator.ValidateToken("Bearer " + token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Caller{ID: "jwt:alice", Method: MethodJWT}, caller)
}

func TestCallerNamespacesAreDisjoint(t *testing.T) {
	// Arrange
	generator, err := NewJWTGenerator("s3cret", "", nil, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret"})
	require.NoError(t, err)
	token, err := generator.GenerateToken("victim-user-01")
	require.NoError(t, err)

	// Act
	fromToken, err := validator.ValidateToken(token)
	require.NoError(t, err)
	fromKey, keyErr := NewAPIKeyValidator(nil).Validate("victim-user-01")
	_, forgedErr := NewAPIKeyValidator(nil).Validate(fromToken.ID)

	// Assert
	require.NoError(t, keyErr)
	assert.NotEqual(t, fromToken.ID, fromKey.ID)
	assert.ErrorIs(t, forgedErr, ErrInvalidAPIKey)
}

func TestJWT_Rejections(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "dataworkspace"})
	require.NoError(t, err)

	sign := func(secret string, claims jwt.Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	now := time.Now()

	_, err = validator.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = validator.ValidateToken(sign("wrong", &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a", Issuer: "dataworkspace"}}))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = validator.ValidateToken(sign("s3cret", &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "a",
		Issuer:    "dataworkspace",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}}))
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = validator.ValidateToken(sign("s3cret", &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a", Issuer: "someone-else"}}))
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = validator.ValidateToken(sign("s3cret", &Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "dataworkspace"}}))
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = validator.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTValidator_Config(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "RS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "ES512", SecretKey: "x"})
	assert.Error(t, err)
}

func TestSlidingWindowLimiter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Unix(1000, 0)
	limiter := NewSlidingWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }
	ips := NewPrefixedLimiter(limiter, "ip")
	callers := NewPrefixedLimiter(limiter, "caller")

	// Act / Assert
	for i := 0; i < 2; i++ {
		allowed, err := ips.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := ips.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed, "third request in the window is rejected")

	allowed, _ = callers.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed, "prefixes count separately")

	now = now.Add(61 * time.Second)
	allowed, _ = ips.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed, "window slides")

	require.NoError(t, ips.Reset(ctx, "10.0.0.1"))
	allowed, _ = ips.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)
}

// fakeDynamo keeps counters in memory and mimics the conditional update
type fakeDynamo struct {
	counts  map[string]int
	failErr error
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	limit, _ := strconv.Atoi(in.ExpressionAttributeValues[":limit"].(*types.AttributeValueMemberN).Value)
	if f.counts[pk] >= limit {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.counts[pk]++
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: pk},
		"Count": &types.AttributeValueMemberN{Value: strconv.Itoa(f.counts[pk])},
	}}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.counts, in.Key["PK"].(*types.AttributeValueMemberS).Value)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDistributedRateLimiter(t *testing.T) {
	// Arrange
	ctx := context.Background()
	client := &fakeDynamo{counts: map[string]int{}}
	limiter := NewDistributedRateLimiter(client, "rate-limits", 2, time.Minute)
	limiter.now = func() time.Time { return time.Unix(1200, 0) }

	// Act / Assert
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "caller:alice")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "caller:alice")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2, client.counts["RATELIMIT#caller:alice#1200"])

	require.NoError(t, limiter.Reset(ctx, "caller:alice"))
	allowed, _ = limiter.Allow(ctx, "caller:alice")
	assert.True(t, allowed)
}

func TestDistributedRateLimiter_FailsOpen(t *testing.T) {
	client := &fakeDynamo{counts: map[string]int{}, failErr: errors.New("throttled")}
	limiter := NewDistributedRateLimiter(client, "rate-limits", 1, time.Minute)

	allowed, err := limiter.Allow(context.Background(), "ip:1.2.3.4")

	assert.True(t, allowed)
	assert.ErrorContains(t, err, "failing open")
}
