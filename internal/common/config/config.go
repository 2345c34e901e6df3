// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Tax      TaxConfig      `mapstructure:"tax"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds settings for the two-tier ranking cache.
type CacheConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	TTLHours    int    `mapstructure:"ttl_hours"`
	OpTimeout   int    `mapstructure:"op_timeout"` // milliseconds, per backend round trip
	KeyPrefix   string `mapstructure:"key_prefix"`
	MemoryLimit int    `mapstructure:"memory_limit"` // max entries in the fallback tier
}

// ScoringConfig holds tunables for the ranking pipeline.
type ScoringConfig struct {
	// CrimeRateCeiling is the fixed reference cap used to invert crime_rate
	// into a [0,1] safety score (incidents per 100k).
	CrimeRateCeiling float64 `mapstructure:"crime_rate_ceiling"`
	// WorkerPoolSize bounds per-metro scoring concurrency. 0 means GOMAXPROCS.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

// TaxConfig holds settings for the effective tax rate estimator.
type TaxConfig struct {
	// TablePath optionally points at a YAML file overriding the built-in
	// per-state salary band table.
	TablePath string `mapstructure:"table_path"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

// GenAIConfig holds settings for the natural-language preference parser's
// chat completion endpoint.
type GenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
