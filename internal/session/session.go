// Package session wires the draft, history, result graph and navigator into
// one user session and exposes the operations a presentation layer may call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/graph"
	"github.com/datasync-solution/bmc-analyst/internal/history"
	"github.com/datasync-solution/bmc-analyst/internal/navigator"
	"github.com/datasync-solution/bmc-analyst/internal/report"
	"github.com/datasync-solution/bmc-analyst/internal/telemetry"
)

var (
	// ErrNotSubmittable is returned by Submit when every content field is empty.
	ErrNotSubmittable = errors.New("draft has no content")
	// ErrSuperseded is returned when a session reset or restore happened
	// while the analysis was running; its result is dropped.
	ErrSuperseded = errors.New("analysis superseded by a newer session state")
)

// slotEvents maps the events that open a generated screen to their slot.
var slotEvents = map[navigator.Event]graph.Slot{
	navigator.EventLaunch:          graph.SlotLaunch,
	navigator.EventGenerateBudget:  graph.SlotBudget,
	navigator.EventViewRiskManager: graph.SlotCashFlow,
}

// Option configures a Session.
type Option func(*Session)

// WithTelemetry sends usage events to c.
func WithTelemetry(c telemetry.Client) Option {
	return func(s *Session) { s.telemetry = c }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithGraphOptions forwards options to the result graph.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Session) { s.graphOpts = append(s.graphOpts, opts...) }
}

// Session is safe for concurrent use. Generation runs without holding the
// session lock, so reads and edits proceed while a request is in flight.
type Session struct {
	gateway   graph.Gateway
	history   *history.Store
	graph     *graph.Graph
	telemetry telemetry.Client
	logger    *slog.Logger
	graphOpts []graph.Option

	mu        sync.Mutex
	draft     *canvas.Store
	nav       *navigator.Navigator
	episode   uint64
	lastError string
}

// New creates a session on the INPUT screen with an empty draft. hist must
// already be loaded.
func New(gw graph.Gateway, hist *history.Store, opts ...Option) *Session {
	s := &Session{
		gateway:   gw,
		history:   hist,
		telemetry: telemetry.NewNoopClient(),
		logger:    slog.Default(),
		draft:     canvas.NewStore(),
		nav:       navigator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.graph = graph.New(gw, append([]graph.Option{graph.WithLogger(s.logger)}, s.graphOpts...)...)
	return s
}

// Graph returns the result graph for edit operations.
func (s *Session) Graph() *graph.Graph { return s.graph }

// History returns the history store.
func (s *Session) History() *history.Store { return s.history }

// SetField stores value in the draft.
func (s *Session) SetField(f canvas.Field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.SetField(f, value)
}

// ReplaceDraft swaps the whole draft, as when loading a draft file.
func (s *Session) ReplaceDraft(d canvas.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Replace(d)
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() canvas.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Draft()
}

// SaveDraft records the draft in history. ok is false when the draft has no
// content.
func (s *Session) SaveDraft() (history.Item, bool) {
	s.mu.Lock()
	d := s.draft.Draft()
	s.mu.Unlock()

	item, ok := s.history.Record(d, true)
	if ok {
		s.telemetry.Track(telemetry.EventDraftSaved, telemetry.Properties{"manual": true})
	}
	return item, ok
}

// Submit records the draft in history, moves to ANALYZING and generates the
// analysis report. On success the report becomes the graph root and the
// screen moves to RESULT; on failure the screen returns to INPUT with the
// draft intact and LastError set. Either move happens only if the screen is
// still ANALYZING when the call resolves.
func (s *Session) Submit(ctx context.Context) (navigator.Screen, error) {
	s.mu.Lock()
	if !s.draft.IsSubmittable() {
		s.mu.Unlock()
		return s.nav.Current(), ErrNotSubmittable
	}
	if _, err := s.nav.Fire(navigator.EventSubmit, s.conditionsLocked()); err != nil {
		cur := s.nav.Current()
		s.mu.Unlock()
		return cur, err
	}
	draft := s.draft.Draft()
	s.episode++
	episode := s.episode
	s.lastError = ""
	s.mu.Unlock()

	s.history.Record(draft, false)

	start := time.Now()
	artifact, err := s.gateway.Generate(ctx, generator.Request{Kind: report.KindAnalysis, Draft: draft})

	s.mu.Lock()
	defer s.mu.Unlock()
	if episode != s.episode {
		s.logger.Info("dropping superseded analysis", "error", err)
		return s.nav.Current(), ErrSuperseded
	}

	var analysis *report.AnalysisResult
	if err == nil {
		var ok bool
		if analysis, ok = artifact.(*report.AnalysisResult); !ok {
			err = fmt.Errorf("analysis: gateway returned %T", artifact)
		}
	}
	if err != nil {
		s.lastError = userMessage(report.KindAnalysis, err)
		s.logger.Warn("analysis failed", "error", err)
		s.telemetry.Track(telemetry.EventAnalysisFailed, telemetry.Properties{"duration_ms": time.Since(start).Milliseconds()})
		if s.nav.Current() == navigator.ScreenAnalyzing {
			_, _ = s.nav.Fire(navigator.EventAnalysisFailed, s.conditionsLocked())
		}
		return s.nav.Current(), err
	}

	s.graph.AttachRoot(analysis)
	s.telemetry.Track(telemetry.EventAnalysisCompleted, telemetry.Properties{
		"duration_ms": time.Since(start).Milliseconds(),
		"score":       analysis.OverallScore,
	})
	if s.nav.Current() == navigator.ScreenAnalyzing {
		_, _ = s.nav.Fire(navigator.EventAnalysisSucceeded, s.conditionsLocked())
	}
	return s.nav.Current(), nil
}

// Navigate fires event. Submit and the events that open generated screens
// run their generation first; startNew also clears the draft and the graph.
func (s *Session) Navigate(ctx context.Context, event navigator.Event) (navigator.Screen, error) {
	switch event {
	case navigator.EventSubmit:
		return s.Submit(ctx)
	case navigator.EventAnalysisSucceeded, navigator.EventAnalysisFailed:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.nav.Current(), fmt.Errorf("%w: %q is internal", navigator.ErrTransitionRefused, event)
	case navigator.EventStartNew:
		return s.StartNew(), nil
	}
	if slot, ok := slotEvents[event]; ok {
		return s.open(ctx, event, slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	screen, err := s.nav.Fire(event, s.conditionsLocked())
	if err == nil {
		s.lastError = ""
	}
	return screen, err
}

// open ensures the slot behind event is populated, then moves to its screen
// if the user is still on the screen the request started from.
func (s *Session) open(ctx context.Context, event navigator.Event, slot graph.Slot) (navigator.Screen, error) {
	s.mu.Lock()
	origin := s.nav.Current()
	if _, ok := navigator.Target(origin, event); !ok {
		s.mu.Unlock()
		return origin, fmt.Errorf("%w: %s has no %q transition", navigator.ErrTransitionRefused, origin, event)
	}
	draft := s.draft.Draft()
	s.mu.Unlock()

	_, err := s.graph.RequestSlot(ctx, slot, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if errors.Is(err, generator.ErrGeneration) {
			s.lastError = userMessage(slot.Kind(), err)
		}
		s.logger.Warn("slot request failed", "slot", slot, "error", err)
		return s.nav.Current(), err
	}
	s.telemetry.Track(telemetry.EventArtifactOpened, telemetry.Properties{"kind": string(slot.Kind())})
	if s.nav.Current() != origin {
		return s.nav.Current(), nil
	}
	s.lastError = ""
	return s.nav.Fire(event, s.conditionsLocked())
}

// StartNew clears the draft, the graph and any error, and returns to INPUT.
// An analysis still running is dropped when it resolves.
func (s *Session) StartNew() navigator.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Reset()
	s.graph.Clear()
	s.episode++
	s.lastError = ""
	screen, _ := s.nav.Fire(navigator.EventStartNew, s.conditionsLocked())
	s.telemetry.Track(telemetry.EventSessionReset, nil)
	return screen
}

// Restore replaces the draft with a history snapshot, clears the graph and
// returns to INPUT.
func (s *Session) Restore(id string) (canvas.Draft, error) {
	d, err := s.history.Restore(id)
	if err != nil {
		return canvas.Draft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Replace(d)
	s.graph.Clear()
	s.episode++
	s.lastError = ""
	s.nav.Reset()
	return d, nil
}

// DeleteHistory removes a history item. Unknown ids are ignored.
func (s *Session) DeleteHistory(id string) {
	s.history.Remove(id)
}

// EditBudget replaces the committed budget and clears the cash-flow
// analysis derived from it. It is refused unless the budget screen is shown.
func (s *Session) EditBudget(plan report.BudgetPlan) (report.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.onBudgetScreenLocked(); err != nil {
		return report.BudgetPlan{}, err
	}
	return s.graph.EditBudget(plan)
}

// BeginBudgetEdit opens a budget edit session on the budget screen.
func (s *Session) BeginBudgetEdit() (report.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.onBudgetScreenLocked(); err != nil {
		return report.BudgetPlan{}, err
	}
	return s.graph.BeginBudgetEdit()
}

// CommitBudgetEdit applies the open budget edit session on the budget screen.
func (s *Session) CommitBudgetEdit() (report.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.onBudgetScreenLocked(); err != nil {
		return report.BudgetPlan{}, err
	}
	return s.graph.CommitBudgetEdit()
}

func (s *Session) onBudgetScreenLocked() error {
	if cur := s.nav.Current(); cur != navigator.ScreenBudgetPlan {
		return fmt.Errorf("%w: budget edits need %s, current screen is %s",
			navigator.ErrTransitionRefused, navigator.ScreenBudgetPlan, cur)
	}
	return nil
}

// View is a read-only copy of the session state.
type View struct {
	Screen      navigator.Screen  `json:"screen"`
	Draft       canvas.Draft      `json:"draft"`
	Submittable bool              `json:"submittable"`
	Events      []navigator.Event `json:"events"`
	Results     graph.Snapshot    `json:"results"`
	LastError   string            `json:"lastError,omitempty"`
	History     int               `json:"historyItems"`

	EditingBudget     bool `json:"editingBudget"`
	EditingActionPlan bool `json:"editingActionPlan"`
}

// View returns the current state. Mutating it does not affect the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Screen:      s.nav.Current(),
		Draft:       s.draft.Draft(),
		Submittable: s.draft.IsSubmittable(),
		Events:      s.nav.Available(s.conditionsLocked()),
		Results:     s.graph.Snapshot(),
		LastError:   s.lastError,
		History:     s.history.Len(),

		EditingBudget:     s.graph.BudgetEditing(),
		EditingActionPlan: s.graph.ActionPlanEditing(),
	}
}

// Screen returns the current screen.
func (s *Session) Screen() navigator.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// LastError returns the localized message of the most recent generation
// failure, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) conditionsLocked() navigator.Conditions {
	return navigator.Conditions{
		Submittable: s.draft.IsSubmittable(),
		HasRoot:     s.graph.HasRoot(),
		HasBudget:   s.graph.Has(graph.SlotBudget),
		HasCashFlow: s.graph.Has(graph.SlotCashFlow),
		HasLaunch:   s.graph.Has(graph.SlotLaunch),
	}
}

func userMessage(kind report.Kind, err error) string {
	var genErr *generator.Error
	if errors.As(err, &genErr) {
		return genErr.UserMessage()
	}
	return generator.UserMessage(kind)
}
