package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/datasync-solution/bmc-analyst/internal/llm"
)

// SaveLLMConfig writes the provider, model and key into the YAML config file
// at path, keeping every other setting. An empty model selects the provider
// default; an empty key leaves any stored key untouched.
func SaveLLMConfig(fsys afero.Fs, path, provider, model, key string) error {
	if _, err := llm.ValidateProvider(provider); err != nil {
		return err
	}
	if model == "" {
		model = llm.DefaultModelForProvider(provider)
	}

	values := map[string]any{
		"llm.provider": provider,
		"llm.model":    model,
	}
	if key != "" {
		values["llm.apiKeys."+provider] = key
	}
	return SetValues(fsys, path, values)
}

// SetValues merges dotted keys into the YAML file at path, creating the file
// with owner-only permissions if needed.
func SetValues(fsys afero.Fs, path string, values map[string]any) error {
	doc := map[string]any{}
	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	for key, v := range values {
		if err := setPath(doc, strings.Split(key, "."), v); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return afero.WriteFile(fsys, path, out, 0o600)
}

func setPath(doc map[string]any, parts []string, v any) error {
	for _, p := range parts[:len(parts)-1] {
		next, ok := doc[p]
		if !ok || next == nil {
			child := map[string]any{}
			doc[p] = child
			doc = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not a mapping", p)
		}
		doc = child
	}
	doc[parts[len(parts)-1]] = v
	return nil
}
