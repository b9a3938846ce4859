package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileLoader decodes one configuration file format
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extensions() []string
}

// Loader applies configuration sources in order of increasing priority:
// defaults, the file named by CONFIG_FILE, then environment variables.
type Loader struct {
	fileLoaders map[string]FileLoader
	sources     []string
}

// NewLoader creates a loader that understands YAML, TOML and JSON files
func NewLoader() *Loader {
	l := &Loader{fileLoaders: make(map[string]FileLoader)}
	l.RegisterLoader(YAMLLoader{})
	l.RegisterLoader(TOMLLoader{})
	l.RegisterLoader(JSONLoader{})
	return l
}

// RegisterLoader registers a file loader for its extensions
func (l *Loader) RegisterLoader(loader FileLoader) {
	for _, ext := range loader.Extensions() {
		l.fileLoaders[ext] = loader
	}
}

// Load builds and validates the configuration
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	l.sources = append(l.sources[:0], "defaults")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := l.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvironment(cfg)
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = append([]string(nil), l.sources...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the file at path onto cfg. The format comes from the extension.
func (l *Loader) LoadFile(path string, cfg *Config) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	loader, ok := l.fileLoaders[ext]
	if !ok {
		return fmt.Errorf("unsupported config file format %q", ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := loader.Load(file, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

// applyEnvironment overlays environment variables, the highest priority source
func applyEnvironment(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.IsLambda = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)

	cfg.RelationalDriver = getEnv("RELATIONAL_DRIVER", cfg.RelationalDriver)
	cfg.RelationalDSN = getEnv("RELATIONAL_DSN", cfg.RelationalDSN)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnvInt("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.DB = getEnv("POSTGRES_DB", cfg.Postgres.DB)
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)
	cfg.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)

	cfg.GraphBackend = getEnv("GRAPH_BACKEND", cfg.GraphBackend)
	cfg.Neo4jURI = getEnv("NEO4J_URI", cfg.Neo4jURI)
	cfg.Neo4jUser = getEnv("NEO4J_USER", cfg.Neo4jUser)
	cfg.Neo4jPassword = getEnv("NEO4J_PASSWORD", cfg.Neo4jPassword)
	cfg.Neo4jDatabase = getEnv("NEO4J_DATABASE", cfg.Neo4jDatabase)
	cfg.GraphBreakerEnabled = getEnvBool("GRAPH_BREAKER_ENABLED", cfg.GraphBreakerEnabled)

	cfg.AllowedKeys = getEnvList("ALLOWED_KEYS", cfg.AllowedKeys)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.RateLimitTable = getEnv("RATE_LIMIT_TABLE", cfg.RateLimitTable)

	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", cfg.MetricsNamespace)

	cfg.ExportMaxRows = getEnvInt("EXPORT_MAX_ROWS", cfg.ExportMaxRows)
	cfg.ExportMaxNodes = getEnvInt("EXPORT_MAX_NODES", cfg.ExportMaxNodes)
	cfg.QueryDefaultLimit = getEnvInt("QUERY_DEFAULT_LIMIT", cfg.QueryDefaultLimit)
	cfg.QueryMaxLimit = getEnvInt("QUERY_MAX_LIMIT", cfg.QueryMaxLimit)

	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
}

// YAMLLoader loads YAML configuration files
type YAMLLoader struct{}

func (YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (YAMLLoader) Extensions() []string { return []string{"yaml", "yml"} }

// TOMLLoader loads TOML configuration files
type TOMLLoader struct{}

func (TOMLLoader) Load(reader io.Reader, target interface{}) error {
	meta, err := toml.NewDecoder(reader).Decode(target)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

func (TOMLLoader) Extensions() []string { return []string{"toml"} }

// JSONLoader loads JSON configuration files
type JSONLoader struct{}

func (JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func (JSONLoader) Extensions() []string { return []string{"json"} }
