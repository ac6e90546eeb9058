// Package graph holds the analysis report and the artifacts derived from it,
// and keeps the derived artifacts consistent with their inputs.
//
// The dependency chain is fixed:
//
//	analysis -> budgetPlan -> cashFlowAnalysis
//	analysis -> launchData
//
// Replacing a node clears every node downstream of it. Derived artifacts
// are produced lazily, on request, through a Gateway.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// Slot names a derived artifact.
type Slot string

const (
	SlotBudget   Slot = "budgetPlan"
	SlotCashFlow Slot = "cashFlowAnalysis"
	SlotLaunch   Slot = "launchData"

	// root is the analysis report itself; it is not requestable.
	root Slot = "analysis"
)

// Slots lists every derived slot.
var Slots = []Slot{SlotBudget, SlotCashFlow, SlotLaunch}

var (
	// ErrNoRoot is returned when an operation needs an analysis report and none is attached.
	ErrNoRoot = errors.New("no analysis report")
	// ErrMissingDependency is returned when a slot's upstream artifact is absent.
	ErrMissingDependency = errors.New("upstream artifact missing")
	// ErrInFlight is returned when the slot is already being generated.
	ErrInFlight = errors.New("generation already in progress")
	// ErrStaleResult is returned when upstream data changed while a result was being generated.
	// The result is discarded.
	ErrStaleResult = errors.New("result discarded: inputs changed during generation")
	// ErrUnknownSlot is returned for a slot name outside Slots.
	ErrUnknownSlot = errors.New("unknown slot")
)

// upstream maps each node to the node it is derived from.
var upstream = map[Slot]Slot{
	SlotBudget:   root,
	SlotCashFlow: SlotBudget,
	SlotLaunch:   root,
}

var slotKinds = map[Slot]report.Kind{
	SlotBudget:   report.KindBudget,
	SlotCashFlow: report.KindCashFlow,
	SlotLaunch:   report.KindLaunch,
}

// ParseSlot converts a slot or artifact-kind name to a Slot.
func ParseSlot(name string) (Slot, error) {
	for _, s := range Slots {
		if string(s) == name || string(slotKinds[s]) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// Kind returns the artifact kind produced for the slot.
func (s Slot) Kind() report.Kind { return slotKinds[s] }

// downstream returns every node derived directly or transitively from n.
func downstream(n Slot) []Slot {
	var out []Slot
	for _, s := range Slots {
		for u, ok := upstream[s]; ok; u, ok = upstream[u] {
			if u == n {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Gateway produces artifacts. *generator.Generator satisfies it.
type Gateway interface {
	Generate(ctx context.Context, req generator.Request) (report.Artifact, error)
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces uuid.NewString for task ids.
func WithIDGenerator(f func() string) Option {
	return func(g *Graph) { g.newID = f }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// Graph is safe for concurrent use. Artifacts handed out are copies.
type Graph struct {
	gateway Gateway
	newID   func() string
	logger  *slog.Logger

	mu       sync.Mutex
	analysis *report.AnalysisResult
	budget   *report.BudgetPlan
	cashFlow *report.CashFlowAnalysis
	launch   *report.LaunchData

	// revision increments whenever a node is replaced or cleared.
	revision map[Slot]uint64
	// inFlight holds the token of the pending generation per slot.
	inFlight map[Slot]uint64
	token    uint64

	budgetEdit *report.BudgetPlan
	planEdit   []report.DepartmentPlan
}

// New creates an empty graph that generates through gw.
func New(gw Gateway, opts ...Option) *Graph {
	g := &Graph{
		gateway:  gw,
		newID:    uuid.NewString,
		logger:   slog.Default(),
		revision: make(map[Slot]uint64),
		inFlight: make(map[Slot]uint64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AttachRoot replaces the analysis report and clears every derived slot and
// open edit session. Action plan tasks without ids receive fresh ones.
func (g *Graph) AttachRoot(a *report.AnalysisResult) {
	if a == nil {
		g.Clear()
		return
	}
	a = a.Clone()
	report.NormalizeActionPlan(a.DepartmentalActionPlan, g.newID)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.analysis = a
	g.touch(root)
	g.invalidate(root)
	g.budgetEdit = nil
	g.planEdit = nil
}

// Clear removes the report and every derived artifact.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.analysis = nil
	g.touch(root)
	g.invalidate(root)
	g.budgetEdit = nil
	g.planEdit = nil
}

// HasRoot reports whether an analysis report is attached.
func (g *Graph) HasRoot() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analysis != nil
}

// Has reports whether the slot holds an artifact.
func (g *Graph) Has(s Slot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.get(s) != nil
}

// InFlight reports whether a generation for the slot is pending.
func (g *Graph) InFlight(s Slot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[s]
	return ok
}

// RequestSlot returns the slot's artifact, generating it when absent.
// A present artifact is returned without contacting the gateway. On failure
// the slot stays empty.
func (g *Graph) RequestSlot(ctx context.Context, s Slot, draft canvas.Draft) (report.Artifact, error) {
	if _, ok := slotKinds[s]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}

	g.mu.Lock()
	if g.analysis == nil {
		g.mu.Unlock()
		return nil, ErrNoRoot
	}
	if cur := g.get(s); cur != nil {
		g.mu.Unlock()
		return cur, nil
	}
	if s == SlotCashFlow && g.budget == nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("%s: %w: %s", s, ErrMissingDependency, SlotBudget)
	}
	if _, busy := g.inFlight[s]; busy {
		g.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", s, ErrInFlight)
	}

	g.token++
	token := g.token
	g.inFlight[s] = token
	seen := g.upstreamRevisions(s)
	req := generator.Request{
		Kind:     slotKinds[s],
		Draft:    draft,
		Analysis: g.analysis.Clone(),
	}
	if g.budget != nil {
		b := g.budget.Clone()
		req.Budget = &b
	}
	g.mu.Unlock()

	g.logger.Debug("generating derived artifact", "slot", s)
	artifact, err := g.gateway.Generate(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[s] == token {
		delete(g.inFlight, s)
	}
	if err != nil {
		return nil, err
	}
	if !maps.Equal(seen, g.upstreamRevisions(s)) || g.get(s) != nil {
		g.logger.Info("discarding stale artifact", "slot", s)
		return nil, fmt.Errorf("%s: %w", s, ErrStaleResult)
	}
	if err := g.store(s, artifact); err != nil {
		return nil, err
	}
	return g.get(s), nil
}

// upstreamRevisions captures the revision of every node s depends on.
func (g *Graph) upstreamRevisions(s Slot) map[Slot]uint64 {
	revs := make(map[Slot]uint64)
	for u, ok := upstream[s]; ok; u, ok = upstream[u] {
		revs[u] = g.revision[u]
	}
	return revs
}

func (g *Graph) store(s Slot, artifact report.Artifact) error {
	switch v := artifact.(type) {
	case *report.BudgetPlan:
		if s != SlotBudget {
			break
		}
		b := v.Recalculate()
		g.budget = &b
	case *report.CashFlowAnalysis:
		if s != SlotCashFlow {
			break
		}
		c := v.Clone()
		c.Normalize()
		g.cashFlow = c
	case *report.LaunchData:
		if s != SlotLaunch {
			break
		}
		l := v.Clone()
		l.Normalize(g.newID)
		g.launch = l
	}
	if g.get(s) == nil {
		return fmt.Errorf("%s: gateway returned %T", s, artifact)
	}
	g.touch(s)
	return nil
}

// get returns a copy of the slot's artifact, or nil.
func (g *Graph) get(s Slot) report.Artifact {
	switch s {
	case SlotBudget:
		if g.budget != nil {
			b := g.budget.Clone()
			return &b
		}
	case SlotCashFlow:
		if g.cashFlow != nil {
			return g.cashFlow.Clone()
		}
	case SlotLaunch:
		if g.launch != nil {
			return g.launch.Clone()
		}
	}
	return nil
}

func (g *Graph) touch(n Slot) {
	g.revision[n]++
}

// invalidate clears every node downstream of n. Pending generations for
// those slots are released so they can be requested again; their results
// will be discarded as stale.
func (g *Graph) invalidate(n Slot) {
	for _, s := range downstream(n) {
		switch s {
		case SlotBudget:
			g.budget = nil
		case SlotCashFlow:
			g.cashFlow = nil
		case SlotLaunch:
			g.launch = nil
		}
		g.touch(s)
		delete(g.inFlight, s)
		if s == SlotBudget {
			g.budgetEdit = nil
		}
	}
}

// Snapshot is a consistent copy of the graph.
type Snapshot struct {
	Analysis *report.AnalysisResult   `json:"analysis,omitempty"`
	Budget   *report.BudgetPlan       `json:"budgetPlan,omitempty"`
	CashFlow *report.CashFlowAnalysis `json:"cashFlowAnalysis,omitempty"`
	Launch   *report.LaunchData       `json:"launchData,omitempty"`

	BudgetDraft     *report.BudgetPlan      `json:"budgetDraft,omitempty"`
	ActionPlanDraft []report.DepartmentPlan `json:"actionPlanDraft,omitempty"`
	InFlight        []Slot                  `json:"inFlight,omitempty"`
}

// Snapshot copies the current state.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		Analysis: g.analysis.Clone(),
		CashFlow: g.cashFlow.Clone(),
		Launch:   g.launch.Clone(),
	}
	if g.budget != nil {
		b := g.budget.Clone()
		snap.Budget = &b
	}
	if g.budgetEdit != nil {
		b := g.budgetEdit.Clone()
		snap.BudgetDraft = &b
	}
	if g.planEdit != nil {
		snap.ActionPlanDraft = report.CloneActionPlan(g.planEdit)
	}
	for _, s := range Slots {
		if _, ok := g.inFlight[s]; ok {
			snap.InFlight = append(snap.InFlight, s)
		}
	}
	return snap
}
