package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Speech   SpeechConfig
	Room     RoomConfig
	Sweep    SweepConfig
	Slack    SlackConfig
	Log      LogConfig
}

// DatabaseConfig selects and configures the request store.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string //nolint:gosec // G117: DB connection config
	DBName     string
	SSLMode    string
	MaxConns   int
	SQLitePath string
}

// RedisConfig holds Redis connection settings. When neither URL nor Addr is
// set, change events go through the in-process broker.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.URL != "" || c.Addr != "" }

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret   string //nolint:gosec // G117: JWT signing secret config
	TokenTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
}

// SpeechConfig holds server-side text-to-speech settings.
type SpeechConfig struct {
	Enabled bool
	APIKey  string //nolint:gosec // G117: provider API key
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// RoomConfig holds the LiveKit-compatible room transport settings.
type RoomConfig struct {
	APIKey    string
	APISecret string //nolint:gosec // G117: token signing secret
	URL       string
	TokenTTL  time.Duration
}

// SweepConfig holds escalation sweep settings. An empty Schedule disables
// the in-process scheduler.
type SweepConfig struct {
	Threshold time.Duration
	BatchSize int
	Schedule  string
}

// SlackConfig holds the unresolved-escalation notice settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

func (c SlackConfig) Enabled() bool { return c.BotToken != "" && c.Channel != "" }

type LogConfig struct {
	Level  string
	Format string
}

// Capabilities are the optional features resolved once at startup.
type Capabilities struct {
	SpeechEnabled        bool
	RoomTransportEnabled bool
}

func (c *Config) Capabilities() Capabilities {
	return Capabilities{
		SpeechEnabled:        c.Speech.Enabled && c.Speech.APIKey != "",
		RoomTransportEnabled: c.Room.APIKey != "" && c.Room.APISecret != "" && c.Room.URL != "",
	}
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("FRONTDESK_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("FRONTDESK_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("FRONTDESK_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("FRONTDESK_JWT_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("FRONTDESK_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("FRONTDESK_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateRPS, err := getEnvFloat("FRONTDESK_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("FRONTDESK_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	speechEnabled, err := getEnvBool("FRONTDESK_SPEECH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	speechTimeout, err := getEnvDuration("FRONTDESK_SPEECH_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	roomTTL, err := getEnvDuration("FRONTDESK_LIVEKIT_TOKEN_TTL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepThreshold, err := getEnvDuration("FRONTDESK_SWEEP_THRESHOLD", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepBatch, err := getEnvInt("FRONTDESK_SWEEP_BATCH_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("FRONTDESK_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("FRONTDESK_DB_DRIVER", DriverSQLite)),
			Host:       getEnv("FRONTDESK_DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getEnv("FRONTDESK_DB_USER", "frontdesk"),
			Password:   getEnv("FRONTDESK_DB_PASSWORD", ""),
			DBName:     getEnv("FRONTDESK_DB_NAME", "frontdesk_dev"),
			SSLMode:    getEnv("FRONTDESK_DB_SSLMODE", "disable"),
			MaxConns:   dbMaxConns,
			SQLitePath: getEnv("FRONTDESK_SQLITE_PATH", "frontdesk.db"),
		},
		Redis: RedisConfig{
			URL:      getEnv("FRONTDESK_REDIS_URL", ""),
			Addr:     getEnv("FRONTDESK_REDIS_ADDR", ""),
			Password: getEnv("FRONTDESK_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:   getEnv("FRONTDESK_JWT_SECRET", ""),
			TokenTTL: tokenTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("FRONTDESK_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			RateLimitRPS: rateRPS,
			RateBurst:    rateBurst,
		},
		Speech: SpeechConfig{
			Enabled: speechEnabled,
			APIKey:  getEnv("FRONTDESK_SPEECH_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL: getEnv("FRONTDESK_SPEECH_BASE_URL", ""),
			Model:   getEnv("FRONTDESK_SPEECH_MODEL", "tts-1"),
			Voice:   getEnv("FRONTDESK_SPEECH_VOICE", "alloy"),
			Timeout: speechTimeout,
		},
		Room: RoomConfig{
			APIKey:    getEnv("FRONTDESK_LIVEKIT_API_KEY", ""),
			APISecret: getEnv("FRONTDESK_LIVEKIT_API_SECRET", ""),
			URL:       getEnv("FRONTDESK_LIVEKIT_URL", ""),
			TokenTTL:  roomTTL,
		},
		Sweep: SweepConfig{
			Threshold: sweepThreshold,
			BatchSize: sweepBatch,
			Schedule:  getEnv("FRONTDESK_SWEEP_SCHEDULE", ""),
		},
		Slack: SlackConfig{
			BotToken: getEnv("FRONTDESK_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("FRONTDESK_SLACK_CHANNEL", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("FRONTDESK_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("FRONTDESK_LOG_FORMAT", "json")),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("FRONTDESK_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("FRONTDESK_JWT_SECRET must be at least 32 characters")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("FRONTDESK_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("FRONTDESK_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
		if c.Database.SSLMode == "disable" && c.Database.Host != "localhost" && c.Database.Host != "127.0.0.1" {
			log.Warn().Msg("FRONTDESK_DB_SSLMODE=disable is insecure for remote databases; set to 'require' or 'verify-full'")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("FRONTDESK_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("FRONTDESK_DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if c.JWT.TokenTTL <= 0 {
		return fmt.Errorf("FRONTDESK_JWT_TOKEN_TTL must be positive, got %s", c.JWT.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("FRONTDESK_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("FRONTDESK_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateBurst < 1 {
		return fmt.Errorf("FRONTDESK_RATE_LIMIT_RPS and FRONTDESK_RATE_LIMIT_BURST must be positive, got %g/%d", c.Server.RateLimitRPS, c.Server.RateBurst)
	}
	if c.Speech.Timeout <= 0 {
		return fmt.Errorf("FRONTDESK_SPEECH_TIMEOUT must be positive, got %s", c.Speech.Timeout)
	}
	if c.Speech.Enabled && c.Speech.APIKey == "" {
		log.Warn().Msg("speech enabled but FRONTDESK_SPEECH_API_KEY is empty; clients will use local speech")
	}
	if c.Room.TokenTTL <= 0 {
		return fmt.Errorf("FRONTDESK_LIVEKIT_TOKEN_TTL must be positive, got %s", c.Room.TokenTTL)
	}
	if c.Sweep.Threshold <= 0 {
		return fmt.Errorf("FRONTDESK_SWEEP_THRESHOLD must be positive, got %s", c.Sweep.Threshold)
	}
	if c.Sweep.BatchSize < 1 {
		return fmt.Errorf("FRONTDESK_SWEEP_BATCH_SIZE must be >= 1, got %d", c.Sweep.BatchSize)
	}
	if (c.Slack.BotToken == "") != (c.Slack.Channel == "") {
		return errors.New("FRONTDESK_SLACK_BOT_TOKEN and FRONTDESK_SLACK_CHANNEL must be set together")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("FRONTDESK_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
