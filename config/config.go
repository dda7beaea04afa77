package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yoockh/voicerelay/internal/utils"
)

// Config is the relay server configuration, read from the environment
// (and a .env file when present).
type Config struct {
	Port   int    `mapstructure:"port" validate:"min=1,max=65535"`
	Host   string `mapstructure:"host"`
	WSPath string `mapstructure:"ws_path" validate:"required,startswith=/"`

	FlushThreshold  int           `mapstructure:"flush_threshold" validate:"min=1"`
	FlushInterval   time.Duration `mapstructure:"flush_interval" validate:"min=0"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" validate:"min=1"`

	Transcriber       string `mapstructure:"transcriber" validate:"oneof=placeholder gemini google"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	GeminiModel       string `mapstructure:"gemini_model" validate:"required"`
	GoogleCredentials string `mapstructure:"google_application_credentials"`
	SampleRateHz      int32  `mapstructure:"sample_rate_hz" validate:"min=8000,max=48000"`
	Language          string `mapstructure:"language" validate:"required"`

	RedisURL string `mapstructure:"redis_url"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

func setDefault(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("HOST", "")
	v.SetDefault("WS_PATH", "/transcribe")

	v.SetDefault("FLUSH_THRESHOLD", 3)
	v.SetDefault("FLUSH_INTERVAL", "0s")
	v.SetDefault("MAX_MESSAGE_BYTES", 10<<20)

	v.SetDefault("TRANSCRIBER", "placeholder")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("SAMPLE_RATE_HZ", 16000)
	v.SetDefault("LANGUAGE", "en-US")

	v.SetDefault("REDIS_URL", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load reads .env (if any), then the process environment, and validates
// the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefault(v)
	v.AutomaticEnv()
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "decode config", err)
	}

	cfg.Transcriber = strings.ToLower(strings.TrimSpace(cfg.Transcriber))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Language = NormalizeLanguage(cfg.Language)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid config", err)
	}
	return &cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NormalizeLanguage expands the short language codes clients commonly send
// into BCP-47 tags.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "en", "en-US":
		return "en-US"
	case "id", "id-ID":
		return "id-ID"
	default:
		return v
	}
}
