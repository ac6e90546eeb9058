package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/datasync-solution/bmc-analyst/internal/config"
	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/graph"
	"github.com/datasync-solution/bmc-analyst/internal/history"
	"github.com/datasync-solution/bmc-analyst/internal/memory"
	"github.com/datasync-solution/bmc-analyst/internal/metrics"
	"github.com/datasync-solution/bmc-analyst/internal/session"
	"github.com/datasync-solution/bmc-analyst/internal/telemetry"
)

// appRuntime holds everything a command needs to run a session.
type appRuntime struct {
	cfg       config.AppConfig
	metrics   *metrics.Collector
	telemetry telemetry.Client
	history   *history.Store
	session   *session.Session
	closers   []func() error
}

// newRuntime loads the configuration and wires storage, generation, metrics
// and telemetry into a fresh session. gw overrides the LLM-backed gateway.
func newRuntime(gw graph.Gateway) (*appRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rt := &appRuntime{cfg: cfg, metrics: metrics.NewCollector()}

	backend, closeBackend, err := openHistoryBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if closeBackend != nil {
		rt.closers = append(rt.closers, closeBackend)
	}
	rt.history = history.NewStore(backend, history.WithObserver(rt.metrics))
	rt.history.Load()

	if gw == nil {
		llmCfg, err := config.LoadLLMConfig()
		if err != nil {
			rt.Close()
			return nil, err
		}
		gw = generator.New(generator.Config{
			LLM:                llmCfg,
			Timeout:            cfg.Generation.Timeout,
			BreakerMaxFailures: cfg.Generation.Breaker.MaxFailures,
			BreakerOpenTimeout: cfg.Generation.Breaker.OpenTimeout,
		}, generator.WithRecorder(rt.metrics))
	}

	rt.telemetry = newTelemetryClient(cfg.Telemetry)
	rt.closers = append(rt.closers, rt.telemetry.Close)

	rt.session = session.New(gw, rt.history, session.WithTelemetry(rt.telemetry))
	return rt, nil
}

// Close releases storage and flushes telemetry.
func (rt *appRuntime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			slog.Warn("shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}

// openHistoryBackend opens the configured persistence. The returned closer
// may be nil.
func openHistoryBackend(cfg config.StorageConfig) (history.Backend, func() error, error) {
	switch cfg.Backend {
	case config.StorageFile:
		return history.NewOSFileBackend(filepath.Join(cfg.Path, "records")), nil, nil
	case config.StorageSQLite, "":
		store, err := memory.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open history database: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newTelemetryClient returns a PostHog client when telemetry is enabled in
// the config or with "bmc config telemetry enable" and an API key is set.
// Any problem falls back to the no-op client.
func newTelemetryClient(cfg config.TelemetryConfig) telemetry.Client {
	state, err := telemetry.Load(appFs, config.DataDir())
	if err != nil {
		slog.Debug("telemetry state unreadable", "error", err)
		return telemetry.NewNoopClient()
	}
	if !cfg.Enabled && !state.IsEnabled() {
		return telemetry.NewNoopClient()
	}
	if cfg.APIKey == "" {
		slog.Debug("telemetry enabled without telemetry.apiKey, not sending")
		return telemetry.NewNoopClient()
	}

	client, err := telemetry.NewPostHogClient(telemetry.ClientConfig{
		APIKey:      cfg.APIKey,
		AnonymousID: state.AnonymousID,
		Version:     version,
		Endpoint:    cfg.Endpoint,
	})
	if err != nil {
		slog.Debug("telemetry client unavailable", "error", err)
		return telemetry.NewNoopClient()
	}
	return client
}
