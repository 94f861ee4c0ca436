// Package config loads process configuration from defaults, an optional config.yaml and
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"surveybot/internal/logger"
)

// Config holds all configuration sections.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Sheets        SheetsConfig        `mapstructure:"sheets"`
	Questionnaire QuestionnaireConfig `mapstructure:"questionnaire"`
	State         StateConfig         `mapstructure:"state"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Mongo         MongoConfig         `mapstructure:"mongo"`
	NATS          NATSConfig          `mapstructure:"nats"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"readTimeout"`     // seconds
	WriteTimeout    int    `mapstructure:"writeTimeout"`    // seconds
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"` // seconds
	CORSOrigins     string `mapstructure:"corsOrigins"`
}

// Telegram update delivery modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// TelegramConfig holds bot credentials and update delivery settings.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	Mode           string `mapstructure:"mode"`
	WebhookURL     string `mapstructure:"webhookUrl"`
	WebhookSecret  string `mapstructure:"webhookSecret"`
	PollingTimeout int    `mapstructure:"pollingTimeout"` // seconds
	Debug          bool   `mapstructure:"debug"`
}

// SheetsConfig holds the export spreadsheet settings.
type SheetsConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheetId"`
	Credentials   string `mapstructure:"credentials"` // Service account JSON or a path to it
	Range         string `mapstructure:"range"`
	Timeout       int    `mapstructure:"timeout"` // seconds
}

// QuestionnaireConfig points at the questionnaire document.
type QuestionnaireConfig struct {
	Path string `mapstructure:"path"`
}

// Conversation state backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend string `mapstructure:"backend"`
	TTL     int    `mapstructure:"ttl"` // seconds, redis only
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URI string `mapstructure:"uri"`
}

// MongoConfig holds the submission archive settings. Empty URI disables the archive.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// NATSConfig holds NATS settings. Empty URL means the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// AuthConfig holds operator API credentials.
type AuthConfig struct {
	OperatorUsername string `mapstructure:"operatorUsername"`
	OperatorPassword string `mapstructure:"operatorPassword"`
	JWTSecret        string `mapstructure:"jwtSecret"`
	TokenDuration    int    `mapstructure:"tokenDuration"` // seconds
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// ShutdownTimeoutDuration returns the graceful shutdown budget.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// TimeoutDuration returns the export call timeout.
func (s *SheetsConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// TTLDuration returns how long an idle conversation survives in Redis.
func (s *StateConfig) TTLDuration() time.Duration {
	return time.Duration(s.TTL) * time.Second
}

// TokenDurationTime returns the operator token lifetime.
func (a *AuthConfig) TokenDurationTime() time.Duration {
	return time.Duration(a.TokenDuration) * time.Second
}

// RedisAddr strips an optional redis:// scheme from the URI.
func (r *RedisConfig) RedisAddr() string {
	return strings.TrimPrefix(r.URI, "redis://")
}

// ArchiveEnabled reports whether completed submissions are archived to MongoDB.
func (m *MongoConfig) ArchiveEnabled() bool {
	return strings.TrimSpace(m.URI) != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.shutdownTimeout", 30)
	v.SetDefault("server.corsOrigins", "*")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.mode", ModePolling)
	v.SetDefault("telegram.webhookUrl", "")
	v.SetDefault("telegram.webhookSecret", "")
	v.SetDefault("telegram.pollingTimeout", 60)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("sheets.spreadsheetId", "")
	v.SetDefault("sheets.credentials", "credentials.json")
	v.SetDefault("sheets.range", "A:B")
	v.SetDefault("sheets.timeout", 15)

	v.SetDefault("questionnaire.path", "configs/questionnaire.yaml")

	v.SetDefault("state.backend", BackendMemory)
	v.SetDefault("state.ttl", 7*24*3600)

	v.SetDefault("redis.uri", "localhost:6379")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "surveybot")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "surveybot")
	v.SetDefault("nats.maxReconnects", 10)

	v.SetDefault("auth.operatorUsername", "admin")
	v.SetDefault("auth.operatorPassword", "")
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenDuration", 12*3600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.DetectFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from the current directory or /etc/surveybot/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the given directory (if any), the working directory
// and /etc/surveybot/. Environment variables use the SURVEYBOT_ prefix; the historical
// variable names of the bot are bound explicitly.
func LoadWithPath(configPath string) (*Config, error) {
	cfg, err := LoadUnvalidated(configPath)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated reads configuration like LoadWithPath but skips validation. Tools that
// need only a few sections check those themselves.
func LoadUnvalidated(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SURVEYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "PORT", "SURVEYBOT_SERVER_PORT")
	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN", "SURVEYBOT_TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.mode", "TELEGRAM_MODE", "SURVEYBOT_TELEGRAM_MODE")
	_ = v.BindEnv("telegram.webhookUrl", "WEBHOOK_URL", "SURVEYBOT_TELEGRAM_WEBHOOK_URL")
	_ = v.BindEnv("telegram.webhookSecret", "WEBHOOK_SECRET", "SURVEYBOT_TELEGRAM_WEBHOOK_SECRET")
	_ = v.BindEnv("sheets.spreadsheetId", "GOOGLE_SHEETS_ID", "SURVEYBOT_SHEETS_SPREADSHEET_ID")
	_ = v.BindEnv("sheets.credentials", "GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_FILE", "SURVEYBOT_SHEETS_CREDENTIALS")
	_ = v.BindEnv("questionnaire.path", "SURVEY_CONFIG", "SURVEYBOT_QUESTIONNAIRE_PATH")
	_ = v.BindEnv("state.backend", "SURVEYBOT_STATE_BACKEND")
	_ = v.BindEnv("redis.uri", "REDIS_URI", "SURVEYBOT_REDIS_URI")
	_ = v.BindEnv("mongo.uri", "MONGO_URI", "SURVEYBOT_MONGO_URI")
	_ = v.BindEnv("nats.url", "NATS_URL", "SURVEYBOT_NATS_URL")
	_ = v.BindEnv("auth.operatorUsername", "OPERATOR_USERNAME", "SURVEYBOT_AUTH_OPERATOR_USERNAME")
	_ = v.BindEnv("auth.operatorPassword", "OPERATOR_PASSWORD", "SURVEYBOT_AUTH_OPERATOR_PASSWORD")
	_ = v.BindEnv("auth.jwtSecret", "JWT_SECRET", "SURVEYBOT_AUTH_JWT_SECRET")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/surveybot/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// validate checks required settings and collects every problem into one error.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required (TELEGRAM_TOKEN)")
	}
	switch cfg.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if cfg.Telegram.WebhookURL == "" {
			errs = append(errs, "telegram.webhookUrl is required in webhook mode")
		} else if u, err := url.Parse(cfg.Telegram.WebhookURL); err != nil || u.Scheme != "https" {
			errs = append(errs, "telegram.webhookUrl must be an https URL")
		}
	default:
		errs = append(errs, "telegram.mode must be one of: polling, webhook")
	}

	if cfg.Sheets.SpreadsheetID == "" {
		errs = append(errs, "sheets.spreadsheetId is required (GOOGLE_SHEETS_ID)")
	}
	if cfg.Sheets.Credentials == "" {
		errs = append(errs, "sheets.credentials is required (GOOGLE_CREDENTIALS_JSON)")
	}
	if cfg.Sheets.Timeout <= 0 {
		errs = append(errs, "sheets.timeout must be positive")
	}

	if cfg.Questionnaire.Path == "" {
		errs = append(errs, "questionnaire.path is required")
	}

	switch cfg.State.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Redis.URI == "" {
			errs = append(errs, "redis.uri is required when state.backend is redis")
		}
		if cfg.State.TTL <= 0 {
			errs = append(errs, "state.ttl must be positive")
		}
	default:
		errs = append(errs, "state.backend must be one of: memory, redis")
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = generateDevSecret()
	}
	if cfg.Auth.TokenDuration <= 0 {
		errs = append(errs, "auth.tokenDuration must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// generateDevSecret returns a per-process secret; operator tokens do not survive restarts.
func generateDevSecret() string {
	return "dev-secret-change-in-production-" + fmt.Sprintf("%d", time.Now().UnixNano())
}
