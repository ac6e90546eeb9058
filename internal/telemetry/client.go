package telemetry

import (
	"errors"
	"io"
	"runtime"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/posthog/posthog-go"
)

// Client records anonymous usage events.
type Client interface {
	// Track queues an event and returns immediately.
	Track(event string, properties map[string]any)

	// Close flushes queued events.
	Close() error
}

// Properties is the property bag attached to an event.
type Properties = map[string]any

// allowedProperties are the only keys forwarded. Anything else, including
// draft fields, is dropped before an event leaves the process.
var allowedProperties = []string{"command", "duration_ms", "kind", "manual", "score", "storage"}

// maxStringProperty bounds string values; longer strings are free text.
const maxStringProperty = 32

// ErrNoAPIKey is returned by NewPostHogClient without an API key.
var ErrNoAPIKey = errors.New("telemetry: no api key")

// enqueuer is the subset of the PostHog client the package uses.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient forwards known events to PostHog in the background.
type PostHogClient struct {
	sink        enqueuer
	anonymousID string
	version     string
	now         func() time.Time

	mu     sync.Mutex
	closed bool
}

// ClientConfig configures NewPostHogClient.
type ClientConfig struct {
	APIKey      string
	AnonymousID string
	Version     string

	// Endpoint overrides the PostHog cloud endpoint for self-hosted instances.
	Endpoint string
}

// NewPostHogClient connects to PostHog. The caller decides whether telemetry
// is enabled; every event tracked on the returned client is sent.
func NewPostHogClient(cfg ClientConfig) (*PostHogClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	phConfig := posthog.Config{
		BatchSize: 10,
		Interval:  time.Second,
		Endpoint:  cfg.Endpoint,
		Logger:    quietPostHogLogger{},
	}
	sink, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return newPostHogClient(sink, cfg.AnonymousID, cfg.Version), nil
}

func newPostHogClient(sink enqueuer, anonymousID, version string) *PostHogClient {
	return &PostHogClient{
		sink:        sink,
		anonymousID: anonymousID,
		version:     version,
		now:         time.Now,
	}
}

// Track queues event with the platform and app version added. Unknown
// events, unknown property keys and long strings are dropped. Events tracked
// after Close are ignored.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	if !slices.Contains(Events, event) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	_ = c.sink.Enqueue(posthog.Capture{
		DistinctId: c.anonymousID,
		Event:      event,
		Timestamp:  c.now(),
		Properties: c.properties(properties),
	})
}

func (c *PostHogClient) properties(in map[string]any) posthog.Properties {
	props := posthog.NewProperties().
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH).
		Set("app_version", c.version).
		// No person profiles: events stay anonymous.
		Set("$process_person_profile", false)
	for k, v := range in {
		if !slices.Contains(allowedProperties, k) {
			continue
		}
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > maxStringProperty {
			continue
		}
		props.Set(k, v)
	}
	return props
}

// Close flushes the queue. It is safe to call more than once.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sink.Close()
}

// NoopClient drops every event.
type NoopClient struct{}

func (NoopClient) Track(string, map[string]any) {}

func (NoopClient) Close() error { return nil }

// NewNoopClient returns a client that does nothing.
func NewNoopClient() NoopClient { return NoopClient{} }

// quietPostHogLogger keeps transport warnings out of command output.
type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...interface{}) {}
func (quietPostHogLogger) Logf(string, ...interface{})   {}
func (quietPostHogLogger) Warnf(string, ...interface{})  {}
func (quietPostHogLogger) Errorf(string, ...interface{}) {}
