// Package config loads the application configuration from viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/datasync-solution/bmc-analyst/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. BMC_SERVER_PORT.
const EnvPrefix = "BMC"

// ConfigName is the config file searched in the working and home
// directories.
const ConfigName = ".bmc-analyst"

const (
	DefaultTimeout            = 90 * time.Second
	DefaultBreakerMaxFailures = 3
	DefaultBreakerOpenTimeout = 30 * time.Second
	DefaultPort               = 8765
	DefaultStorageBackend     = StorageSQLite
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// SetDefaults registers every default on the global viper and wires the
// environment. Call it before reading the config file.
func SetDefaults() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("llm.provider", llm.DefaultProvider)
	viper.SetDefault("generation.timeout", DefaultTimeout)
	viper.SetDefault("generation.breaker.maxFailures", DefaultBreakerMaxFailures)
	viper.SetDefault("generation.breaker.openTimeout", DefaultBreakerOpenTimeout)
	viper.SetDefault("storage.backend", DefaultStorageBackend)
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.allowedOrigins", []string{"http://localhost:5173", "http://localhost:3000"})
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("telemetry.enabled", false)

	// Empty defaults make BMC_STORAGE_PATH and friends visible to Unmarshal.
	viper.SetDefault("storage.path", "")
	viper.SetDefault("telemetry.apiKey", "")
	viper.SetDefault("telemetry.endpoint", "")
}
