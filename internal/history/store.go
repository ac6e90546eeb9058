// Package history keeps a bounded, newest-first log of saved canvas drafts.
//
// The in-memory list is authoritative for the running session. Every
// mutation is flushed wholesale to a Backend; flush and load failures are
// logged and swallowed so that local storage problems never surface to the
// user or crash startup.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/google/uuid"
)

const (
	// RecordKey names the single persisted record holding the list.
	RecordKey = "bmc_history"

	// MaxItems bounds the list; older items are evicted first.
	MaxItems = 20

	// PreviewLimit is the preview length in runes before ellipsizing.
	PreviewLimit = 60

	// UntitledPreview is used when no preview field has content.
	UntitledPreview = "Untitled Plan"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	// ErrNotFound is returned by Restore and Get for unknown ids.
	ErrNotFound = errors.New("history item not found")

	// ErrRecordNotFound is returned by a Backend when the record was never written.
	ErrRecordNotFound = errors.New("record not found")
)

// previewFields are consulted in order when building a preview.
var previewFields = []canvas.Field{
	canvas.FieldValuePropositions,
	canvas.FieldKeyActivities,
	canvas.FieldCustomerSegments,
}

// Item is an immutable snapshot of a saved draft.
type Item struct {
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Preview   string       `json:"preview"`
	Data      canvas.Draft `json:"data"`
}

// Backend persists opaque records by key.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Observer receives persistence outcomes. The metrics collector implements it.
type Observer interface {
	HistoryPersisted(items int, err error)
}

// Store is the history log. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	items    []Item
	backend  Backend
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver reports each flush to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the item id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates an empty store over backend. A nil backend keeps the
// history in memory only. Call Load to hydrate.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory list with the persisted one. Missing, unreadable
// or corrupt data yields an empty history.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if s.backend == nil {
		return
	}

	data, err := s.backend.Get(RecordKey)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			s.logger.Warn("history load failed", "key", RecordKey, "error", err)
		}
		return
	}

	items, err := decodeItems(data)
	if err != nil {
		s.logger.Warn("history record is corrupt, starting empty", "key", RecordKey, "error", err)
		return
	}
	s.items = items
}

func decodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	// Drop entries without an id; they cannot be addressed.
	kept := items[:0]
	for _, it := range items {
		if it.ID != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) > MaxItems {
		kept = kept[:MaxItems]
	}
	return kept, nil
}

// Record prepends a snapshot of draft. Drafts without content are ignored
// and reported with ok=false. manual distinguishes explicit saves from
// saves made on submission.
func (s *Store) Record(draft canvas.Draft, manual bool) (item Item, ok bool) {
	if !draft.HasContent() {
		return Item{}, false
	}

	item = Item{
		ID:        s.newID(),
		Timestamp: s.now().UTC().Format(timestampLayout),
		Preview:   Preview(draft),
		Data:      draft,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]Item, 0, min(len(s.items)+1, MaxItems))
	updated = append(updated, item)
	updated = append(updated, s.items...)
	if len(updated) > MaxItems {
		updated = updated[:MaxItems]
	}
	s.items = updated

	s.logger.Debug("history recorded", "id", item.ID, "manual", manual, "items", len(s.items))
	s.persistLocked()
	return item, true
}

// Remove deletes the item with id. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != id {
			updated = append(updated, it)
		}
	}
	if len(updated) == len(s.items) {
		return
	}
	s.items = updated
	s.persistLocked()
}

// Restore returns the snapshot stored under id.
func (s *Store) Restore(id string) (canvas.Draft, error) {
	it, ok := s.Get(id)
	if !ok {
		return canvas.Draft{}, fmt.Errorf("restore %s: %w", id, ErrNotFound)
	}
	return it.Data, nil
}

// Get returns the item with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Items returns the list newest-first.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) persistLocked() {
	if s.backend == nil {
		return
	}

	data, err := json.Marshal(s.items)
	if err == nil {
		err = s.backend.Put(RecordKey, data)
	}
	if err != nil {
		s.logger.Warn("history persist failed", "key", RecordKey, "items", len(s.items), "error", err)
	}
	if s.observer != nil {
		s.observer.HistoryPersisted(len(s.items), err)
	}
}

// Preview derives the list label for a draft.
func Preview(d canvas.Draft) string {
	text := UntitledPreview
	for _, f := range previewFields {
		if v := d.Get(f); strings.TrimSpace(v) != "" {
			text = v
			break
		}
	}
	if utf8.RuneCountInString(text) <= PreviewLimit {
		return text
	}
	return string([]rune(text)[:PreviewLimit]) + "..."
}
