package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GetHomeDir returns the user's home directory. It is a variable so tests
// can point it elsewhere.
var GetHomeDir = os.UserHomeDir

// DataDir returns the directory holding history, telemetry state and crash
// logs. Resolution order:
//  1. storage.path (config, env or flag)
//  2. $XDG_DATA_HOME/bmc-analyst
//  3. ~/.bmc-analyst
func DataDir() string {
	if path := viper.GetString("storage.path"); path != "" {
		return path
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bmc-analyst")
	}
	home, err := GetHomeDir()
	if err != nil {
		return ".bmc-analyst"
	}
	return filepath.Join(home, ".bmc-analyst")
}

// ConfigFilePath is the default location written by the config command.
func ConfigFilePath() (string, error) {
	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigName+".yaml"), nil
}
