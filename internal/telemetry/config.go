// Package telemetry sends anonymous usage events. Telemetry is opt-in and
// off until enabled with the telemetry command.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ConfigFileName is the name of the telemetry state file inside the data
// directory.
const ConfigFileName = "telemetry.json"

// Config is the persisted telemetry state.
type Config struct {
	Enabled bool `json:"enabled"`

	// AnonymousID is a random UUID generated on first load. It is not tied
	// to any user data.
	AnonymousID string `json:"anonymous_id"`
}

// Load reads the state from dir. A missing file yields a disabled config
// with a fresh anonymous id.
func Load(fsys afero.Fs, dir string) (*Config, error) {
	cfg := &Config{}

	data, err := afero.ReadFile(fsys, filepath.Join(dir, ConfigFileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read telemetry config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse telemetry config: %w", err)
		}
	}

	if cfg.AnonymousID == "" {
		cfg.AnonymousID = uuid.New().String()
	}
	return cfg, nil
}

// Save writes the state to dir with owner-only permissions.
func (c *Config) Save(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal telemetry config: %w", err)
	}
	if err := afero.WriteFile(fsys, filepath.Join(dir, ConfigFileName), data, 0o600); err != nil {
		return fmt.Errorf("write telemetry config: %w", err)
	}
	return nil
}

func (c *Config) Enable()  { c.Enabled = true }
func (c *Config) Disable() { c.Enabled = false }

// IsEnabled reports whether events are sent.
func (c *Config) IsEnabled() bool { return c.Enabled }
