package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the unmarshalled configuration minus the LLM section, which
// LoadLLMConfig resolves separately because of its env fallbacks.
type AppConfig struct {
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type GenerationConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"maxFailures" validate:"min=1,max=100"`
	OpenTimeout time.Duration `mapstructure:"openTimeout" validate:"min=1s"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite file"`
	// Path is the data directory. Empty means DataDir().
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"apiKey"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load unmarshals and validates the global viper state.
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DataDir()
	}
	return cfg, nil
}
