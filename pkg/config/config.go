package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Security  SecurityConfig
	Slotify   SlotifyConfig
	ChainSync ChainSyncConfig
	Groq      GroqConfig
	Policy    PolicyConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"alertbridge"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// RedisConfig holds Redis configuration for the shared rate-limit backend
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SecurityConfig holds webhook gateway configuration
type SecurityConfig struct {
	APIKey            string `envconfig:"WEBHOOK_API_KEY" default:""`
	SecretKey         string `envconfig:"WEBHOOK_SECRET_KEY" default:""`
	TimestampWindow   int    `envconfig:"WEBHOOK_TIMESTAMP_WINDOW" default:"300"` // seconds
	MaxBodyBytes      int64  `envconfig:"WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
	RateLimit         int    `envconfig:"WEBHOOK_RATE_LIMIT" default:"100"`
	RateWindowSeconds int    `envconfig:"WEBHOOK_RATE_WINDOW" default:"60"`
	RateLimitBackend  string `envconfig:"RATE_LIMIT_BACKEND" default:"memory"` // "memory" or "redis"
}

// SlotifyConfig holds the scheduling API configuration
type SlotifyConfig struct {
	APIURL  string `envconfig:"SLOTIFY_API_URL" default:"https://api.slotify.com/v1"`
	APIKey  string `envconfig:"SLOTIFY_API_KEY" default:""`
	Timeout int    `envconfig:"SLOTIFY_TIMEOUT" default:"30"`
}

// ChainSyncConfig holds the alert platform API configuration
type ChainSyncConfig struct {
	APIURL  string `envconfig:"CHAINSYNC_API_URL" default:"http://localhost:8081/api"`
	APIKey  string `envconfig:"CHAINSYNC_API_KEY" default:""`
	Timeout int    `envconfig:"CHAINSYNC_TIMEOUT" default:"10"`
}

// GroqConfig holds LLM provider configuration
type GroqConfig struct {
	APIKey  string `envconfig:"GROQ_API_KEY" default:""`
	BaseURL string `envconfig:"GROQ_API_URL" default:"https://api.groq.com"`
	Model   string `envconfig:"GROQ_MODEL" default:"llama-3.1-70b-versatile"`
	Timeout int    `envconfig:"GROQ_TIMEOUT" default:"30"`
}

// PolicyConfig locates the urgency/attendee policy table
type PolicyConfig struct {
	ConfigPath string `envconfig:"POLICY_CONFIG_PATH" default:""`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{}
	sections := []interface{}{
		&config.Server,
		&config.Database,
		&config.Redis,
		&config.Security,
		&config.Slotify,
		&config.ChainSync,
		&config.Groq,
		&config.Policy,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to process environment: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Security.RateLimitBackend != "memory" && c.Security.RateLimitBackend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be \"memory\" or \"redis\", got %q", c.Security.RateLimitBackend)
	}
	if c.Server.Environment == "production" && c.Security.APIKey == "" {
		return fmt.Errorf("WEBHOOK_API_KEY is required in production")
	}
	return nil
}

// SignatureEnabled reports whether HMAC verification is configured
func (c *SecurityConfig) SignatureEnabled() bool {
	return c.SecretKey != ""
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// TimeoutDuration returns the per-attempt timeout for scheduling calls
func (c *SlotifyConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TimeoutDuration returns the per-attempt timeout for alert platform calls
func (c *ChainSyncConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TimeoutDuration returns the per-attempt timeout for LLM calls
func (c *GroqConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
