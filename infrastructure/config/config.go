package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" toml:"server_address" json:"server_address"`
	Environment   string `yaml:"environment" toml:"environment" json:"environment"`
	IsLambda      bool   `yaml:"-" toml:"-" json:"-"`

	// Logging
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`
	Debug    bool   `yaml:"debug" toml:"debug" json:"debug"`

	// Relational store
	RelationalDriver string   `yaml:"relational_driver" toml:"relational_driver" json:"relational_driver"`
	RelationalDSN    string   `yaml:"relational_dsn" toml:"relational_dsn" json:"relational_dsn"`
	Postgres         Postgres `yaml:"postgres" toml:"postgres" json:"postgres"`
	MaxOpenConns     int      `yaml:"max_open_conns" toml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns     int      `yaml:"max_idle_conns" toml:"max_idle_conns" json:"max_idle_conns"`

	// Graph store
	GraphBackend        string `yaml:"graph_backend" toml:"graph_backend" json:"graph_backend"`
	Neo4jURI            string `yaml:"neo4j_uri" toml:"neo4j_uri" json:"neo4j_uri"`
	Neo4jUser           string `yaml:"neo4j_user" toml:"neo4j_user" json:"neo4j_user"`
	Neo4jPassword       string `yaml:"neo4j_password" toml:"neo4j_password" json:"neo4j_password"`
	Neo4jDatabase       string `yaml:"neo4j_database" toml:"neo4j_database" json:"neo4j_database"`
	GraphBreakerEnabled bool   `yaml:"graph_breaker_enabled" toml:"graph_breaker_enabled" json:"graph_breaker_enabled"`

	// Authentication
	AllowedKeys        []string `yaml:"allowed_keys" toml:"allowed_keys" json:"allowed_keys"`
	JWTSecret          string   `yaml:"jwt_secret" toml:"jwt_secret" json:"jwt_secret"`
	JWTIssuer          string   `yaml:"jwt_issuer" toml:"jwt_issuer" json:"jwt_issuer"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitTable     string   `yaml:"rate_limit_table" toml:"rate_limit_table" json:"rate_limit_table"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region" toml:"aws_region" json:"aws_region"`
	EventBusName     string `yaml:"event_bus_name" toml:"event_bus_name" json:"event_bus_name"`
	// MetricsNamespace is the CloudWatch namespace Lambda deployments flush to;
	// empty means DataWorkspace/<environment>
	MetricsNamespace string `yaml:"metrics_namespace" toml:"metrics_namespace" json:"metrics_namespace"`

	// Limits
	ExportMaxRows     int `yaml:"export_max_rows" toml:"export_max_rows" json:"export_max_rows"`
	ExportMaxNodes    int `yaml:"export_max_nodes" toml:"export_max_nodes" json:"export_max_nodes"`
	QueryDefaultLimit int `yaml:"query_default_limit" toml:"query_default_limit" json:"query_default_limit"`
	QueryMaxLimit     int `yaml:"query_max_limit" toml:"query_max_limit" json:"query_max_limit"`

	// Feature flags
	EnableMetrics bool     `yaml:"enable_metrics" toml:"enable_metrics" json:"enable_metrics"`
	EnableCORS    bool     `yaml:"enable_cors" toml:"enable_cors" json:"enable_cors"`
	CORSOrigins   []string `yaml:"cors_origins" toml:"cors_origins" json:"cors_origins"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-" toml:"-" json:"-"`
}

// Postgres holds the parts of a PostgreSQL connection string
type Postgres struct {
	User     string `yaml:"user" toml:"user" json:"user"`
	Password string `yaml:"password" toml:"password" json:"password"`
	Host     string `yaml:"host" toml:"host" json:"host"`
	Port     int    `yaml:"port" toml:"port" json:"port"`
	DB       string `yaml:"db" toml:"db" json:"db"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode" json:"sslmode"`
}

const defaultSQLiteFile = "workspace.db"

// Default returns the configuration used before any file or environment variable
// is applied
func Default() *Config {
	return &Config{
		ServerAddress:    ":8080",
		Environment:      "development",
		LogLevel:         "info",
		RelationalDriver: "sqlite",
		Postgres: Postgres{
			User:    "postgres",
			Host:    "localhost",
			Port:    5432,
			DB:      "workspace",
			SSLMode: "disable",
		},
		MaxOpenConns:        10,
		MaxIdleConns:        5,
		GraphBackend:        "memory",
		Neo4jURI:            "neo4j://localhost:7687",
		Neo4jUser:           "neo4j",
		Neo4jDatabase:       "neo4j",
		GraphBreakerEnabled: true,
		JWTIssuer:           "dataworkspace",
		RateLimitPerMinute:  600,
		AWSRegion:           "us-west-2",
		ExportMaxRows:       100000,
		ExportMaxNodes:      10000,
		QueryDefaultLimit:   100,
		QueryMaxLimit:       1000,
		EnableMetrics:       true,
		EnableCORS:          true,
		CORSOrigins:         []string{"*"},
	}
}

// LoadConfig loads configuration from defaults, the file named by CONFIG_FILE and
// then environment variables
func LoadConfig() (*Config, error) {
	return NewLoader().Load()
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	switch c.RelationalDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("RELATIONAL_DRIVER must be postgres or sqlite, got %q", c.RelationalDriver)
	}
	switch c.GraphBackend {
	case "neo4j":
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required when GRAPH_BACKEND is neo4j")
		}
	case "memory":
	default:
		return fmt.Errorf("GRAPH_BACKEND must be neo4j or memory, got %q", c.GraphBackend)
	}

	if c.ExportMaxRows <= 0 || c.ExportMaxNodes <= 0 {
		return fmt.Errorf("export caps must be positive")
	}
	if c.QueryDefaultLimit <= 0 || c.QueryMaxLimit <= 0 {
		return fmt.Errorf("query limits must be positive")
	}
	if c.QueryDefaultLimit > c.QueryMaxLimit {
		return fmt.Errorf("QUERY_DEFAULT_LIMIT (%d) exceeds QUERY_MAX_LIMIT (%d)", c.QueryDefaultLimit, c.QueryMaxLimit)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}

	if c.IsProduction() {
		if c.RelationalDriver != "postgres" {
			return fmt.Errorf("production requires RELATIONAL_DRIVER=postgres")
		}
		if c.GraphBackend != "neo4j" {
			return fmt.Errorf("production requires GRAPH_BACKEND=neo4j")
		}
		if c.Debug {
			return fmt.Errorf("DEBUG must be off in production")
		}
	}
	return nil
}

// DSN returns the connection string for the relational driver. An explicit
// RELATIONAL_DSN wins; otherwise sqlite uses a local file and postgres is built
// from the POSTGRES_* parts.
func (c *Config) DSN() string {
	if c.RelationalDSN != "" {
		return c.RelationalDSN
	}
	if c.RelationalDriver == "sqlite" {
		return defaultSQLiteFile
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   fmt.Sprintf("%s:%d", c.Postgres.Host, c.Postgres.Port),
		Path:   "/" + c.Postgres.DB,
	}
	if c.Postgres.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.Postgres.SSLMode}}.Encode()
	}
	return u.String()
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
