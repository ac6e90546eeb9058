package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/datasync-solution/bmc-analyst/internal/config"
	"github.com/datasync-solution/bmc-analyst/internal/logger"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(config.ConfigName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", viper.ConfigFileUsed(), err)
		}
	}

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	if _, err := logger.Setup(level, viper.GetString("log.format"), os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, falling back to info/text logging\n", err)
		_, _ = logger.Setup("info", "text", os.Stderr)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		slog.Debug("using config file", "path", f)
	}

	logger.SetBasePath(config.DataDir())
}
