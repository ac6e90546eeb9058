package telemetry

import (
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/posthog/posthog-go"
)

type mockEnqueuer struct {
	mu     sync.Mutex
	events []posthog.Capture
	closes int
}

func (m *mockEnqueuer) Enqueue(msg posthog.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if capture, ok := msg.(posthog.Capture); ok {
		m.events = append(m.events, capture)
	}
	return nil
}

func (m *mockEnqueuer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *mockEnqueuer) getEvents() []posthog.Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]posthog.Capture(nil), m.events...)
}

func newTestClient() (*PostHogClient, *mockEnqueuer) {
	mock := &mockEnqueuer{}
	client := newPostHogClient(mock, "anon-123", "0.4.0")
	client.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return client, mock
}

func TestPostHogClient_Track(t *testing.T) {
	client, mock := newTestClient()

	client.Track(EventArtifactOpened, Properties{"kind": "budget"})

	events := mock.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Event != EventArtifactOpened {
		t.Errorf("event = %q, want %q", event.Event, EventArtifactOpened)
	}
	if event.DistinctId != "anon-123" {
		t.Errorf("distinct_id = %q, want anon-123", event.DistinctId)
	}
	if !event.Timestamp.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", event.Timestamp)
	}
	if event.Properties["kind"] != "budget" {
		t.Errorf("kind = %v, want budget", event.Properties["kind"])
	}
	if event.Properties["os"] != runtime.GOOS || event.Properties["arch"] != runtime.GOARCH {
		t.Errorf("platform properties missing: %v", event.Properties)
	}
	if event.Properties["app_version"] != "0.4.0" {
		t.Errorf("app_version = %v, want 0.4.0", event.Properties["app_version"])
	}
	if event.Properties["$process_person_profile"] != false {
		t.Error("person profiles must be disabled")
	}
}

func TestPostHogClient_Track_DropsDraftContent(t *testing.T) {
	client, mock := newTestClient()

	client.Track(EventDraftSaved, Properties{
		"manual":            true,
		"valuePropositions": "Home-cooked lunch boxes",
		"command":           strings.Repeat("x", maxStringProperty+1),
	})
	client.Track("draft_text", Properties{"kind": "analysis"})

	events := mock.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected only the known event, got %d", len(events))
	}
	props := events[0].Properties
	if props["manual"] != true {
		t.Errorf("manual = %v, want true", props["manual"])
	}
	if _, ok := props["valuePropositions"]; ok {
		t.Error("draft field must not be forwarded")
	}
	if _, ok := props["command"]; ok {
		t.Error("long string values must not be forwarded")
	}
}

func TestPostHogClient_Close(t *testing.T) {
	client, mock := newTestClient()
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if mock.closes != 1 {
		t.Errorf("underlying client closed %d times, want 1", mock.closes)
	}

	client.Track(EventSessionReset, nil)
	if n := len(mock.getEvents()); n != 0 {
		t.Errorf("expected no events after Close, got %d", n)
	}
}

func TestNewPostHogClient_NoAPIKey(t *testing.T) {
	_, err := NewPostHogClient(ClientConfig{AnonymousID: "anon", Version: "0.4.0"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("error = %v, want ErrNoAPIKey", err)
	}
}

func TestPostHogClient_Track_Concurrent(t *testing.T) {
	client, mock := newTestClient()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Track(EventCommandExecuted, Properties{"duration_ms": i})
		}()
	}
	wg.Wait()

	if n := len(mock.getEvents()); n != 50 {
		t.Errorf("expected 50 events, got %d", n)
	}
}

func TestNoopClient(t *testing.T) {
	var c Client = NewNoopClient()
	c.Track(EventSessionReset, Properties{"k": "v"})
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
