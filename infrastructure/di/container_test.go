package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"dataworkspace/infrastructure/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.RelationalDSN = filepath.Join(t.TempDir(), "container.db")
	return cfg
}

func TestBuild_ServesHealthAndReadiness(t *testing.T) {
	// Arrange
	container, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Shutdown(context.Background()) })

	for _, path := range []string{"/health", "/ready"} {
		// Act
		rr := httptest.NewRecorder()
		container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestBuild_RequiresCredentials(t *testing.T) {
	container, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	container.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBuild_RejectsUnknownGraphBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.GraphBackend = "tinkerpop"

	_, err := Build(context.Background(), cfg)

	assert.ErrorContains(t, err, "unsupported graph backend")
}

func TestBuild_RejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "chatty"

	_, err := Build(context.Background(), cfg)

	assert.ErrorContains(t, err, "invalid log level")
}

func TestShutdown_RunsInReverseOrder(t *testing.T) {
	container := NewContainer(config.Default(), nil, nil, nil, nil, nil)
	var order []int
	container.AddShutdownFunction(func() error { order = append(order, 1); return nil })
	container.AddShutdownFunction(func() error { order = append(order, 2); return nil })

	require.NoError(t, container.Shutdown(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
}

func TestProvideMetricsExporter_OnlyForLambda(t *testing.T) {
	// Arrange
	server := config.Default()
	lambda := config.Default()
	lambda.IsLambda = true
	silenced := config.Default()
	silenced.IsLambda = true
	silenced.EnableMetrics = false
	collector := ProvideMetrics()

	// Act
	serverExporter := ProvideMetricsExporter(aws.Config{}, server, collector)
	lambdaExporter := ProvideMetricsExporter(aws.Config{}, lambda, collector)
	silencedExporter := ProvideMetricsExporter(aws.Config{}, silenced, collector)

	// Assert
	assert.Nil(t, serverExporter)
	assert.NotNil(t, lambdaExporter)
	assert.Nil(t, silencedExporter)
}

func TestFlushMetrics_WithoutExporter(t *testing.T) {
	container := NewContainer(config.Default(), zap.NewNop(), nil, ProvideMetrics(), nil, nil)

	assert.NotPanics(t, func() { container.FlushMetrics(context.Background()) })
}
