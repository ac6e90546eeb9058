package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/report"
	"github.com/datasync-solution/bmc-analyst/internal/report/reporttest"
)

// fakeGateway answers from fixtures and counts calls per kind. When gate is
// set, each call blocks until a value is sent on it.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[report.Kind]int
	fail  map[report.Kind]error
	gate  chan struct{}
	// started receives the kind of each call before it blocks.
	started chan report.Kind
	reqs    []generator.Request
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[report.Kind]int), fail: make(map[report.Kind]error)}
}

func (f *fakeGateway) Generate(ctx context.Context, req generator.Request) (report.Artifact, error) {
	f.mu.Lock()
	f.calls[req.Kind]++
	f.reqs = append(f.reqs, req)
	err := f.fail[req.Kind]
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- req.Kind
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	switch req.Kind {
	case report.KindAnalysis:
		return reporttest.Analysis(), nil
	case report.KindBudget:
		return reporttest.Budget(), nil
	case report.KindCashFlow:
		return reporttest.CashFlow(), nil
	case report.KindLaunch:
		return reporttest.Launch(), nil
	}
	return nil, fmt.Errorf("unexpected kind %q", req.Kind)
}

func (f *fakeGateway) count(k report.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[k]
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestGraph(t *testing.T) (*Graph, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	g := New(gw, WithIDGenerator(sequentialIDs()))
	g.AttachRoot(reporttest.Analysis())
	return g, gw
}

func populateAll(t *testing.T, g *Graph) {
	t.Helper()
	ctx := context.Background()
	for _, s := range Slots {
		_, err := g.RequestSlot(ctx, s, canvas.Defaults())
		require.NoError(t, err, s)
	}
}

func TestDownstream(t *testing.T) {
	assert.ElementsMatch(t, []Slot{SlotBudget, SlotCashFlow, SlotLaunch}, downstream(root))
	assert.Equal(t, []Slot{SlotCashFlow}, downstream(SlotBudget))
	assert.Empty(t, downstream(SlotCashFlow))
	assert.Empty(t, downstream(SlotLaunch))
}

func TestParseSlot(t *testing.T) {
	for _, name := range []string{"budgetPlan", "budget"} {
		s, err := ParseSlot(name)
		require.NoError(t, err)
		assert.Equal(t, SlotBudget, s)
	}
	s, err := ParseSlot("cashflow")
	require.NoError(t, err)
	assert.Equal(t, SlotCashFlow, s)

	_, err = ParseSlot("roadmap")
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestAttachRoot_NormalizesTasks(t *testing.T) {
	g, _ := newTestGraph(t)
	snap := g.Snapshot()

	seen := map[string]bool{}
	for _, d := range snap.Analysis.DepartmentalActionPlan {
		for _, r := range d.Roles {
			for _, task := range r.Tasks {
				assert.NotEmpty(t, task.ID)
				assert.False(t, task.IsDone)
				assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
				seen[task.ID] = true
			}
		}
	}
	assert.Len(t, seen, 3)
}

// A populated slot is returned without another generation.
func TestRequestSlot_Idempotent(t *testing.T) {
	g, gw := newTestGraph(t)
	ctx := context.Background()

	first, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
	require.NoError(t, err)
	second, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
	require.NoError(t, err)

	assert.Equal(t, 1, gw.count(report.KindBudget))
	assert.Equal(t, first, second)
}

// Scenario 2
func TestRequestSlot_BudgetAggregates(t *testing.T) {
	g, _ := newTestGraph(t)

	artifact, err := g.RequestSlot(context.Background(), SlotBudget, canvas.Defaults())
	require.NoError(t, err)
	b := artifact.(*report.BudgetPlan)
	assert.Equal(t, 1200.0, b.Capex)
	assert.Equal(t, 5000.0, b.Opex)
	assert.Equal(t, 6200.0, b.TotalBudget)
	assert.Equal(t, 6200.0, b.Breakdown[0].Total)
}

func TestRequestSlot_PassesContext(t *testing.T) {
	g, gw := newTestGraph(t)
	draft := canvas.Defaults()
	draft.Industry = "Tech"
	for _, s := range Slots {
		_, err := g.RequestSlot(context.Background(), s, draft)
		require.NoError(t, err, s)
	}

	require.Len(t, gw.reqs, 3)
	for _, req := range gw.reqs {
		assert.Equal(t, "Tech", req.Draft.Industry)
		require.NotNil(t, req.Analysis)
	}
	cash := gw.reqs[1]
	assert.Equal(t, report.KindCashFlow, cash.Kind)
	require.NotNil(t, cash.Budget)
	assert.Equal(t, 5000.0, cash.Budget.Opex)
}

func TestRequestSlot_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("no root", func(t *testing.T) {
		g := New(newFakeGateway())
		_, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
		assert.ErrorIs(t, err, ErrNoRoot)
	})

	t.Run("cashflow needs budget", func(t *testing.T) {
		g, gw := newTestGraph(t)
		_, err := g.RequestSlot(ctx, SlotCashFlow, canvas.Defaults())
		assert.ErrorIs(t, err, ErrMissingDependency)
		assert.Zero(t, gw.count(report.KindCashFlow))
	})

	t.Run("unknown slot", func(t *testing.T) {
		g, _ := newTestGraph(t)
		_, err := g.RequestSlot(ctx, "roadmap", canvas.Defaults())
		assert.ErrorIs(t, err, ErrUnknownSlot)
	})
}

func TestRequestSlot_FailureLeavesOtherSlots(t *testing.T) {
	g, gw := newTestGraph(t)
	ctx := context.Background()
	_, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
	require.NoError(t, err)

	boom := &generator.Error{Kind: report.KindLaunch, Reason: generator.ReasonMalformed, Attempts: 2, Err: errors.New("bad")}
	gw.fail[report.KindLaunch] = boom

	_, err = g.RequestSlot(ctx, SlotLaunch, canvas.Defaults())
	assert.ErrorIs(t, err, generator.ErrGeneration)
	assert.False(t, g.Has(SlotLaunch))
	assert.True(t, g.Has(SlotBudget))
	assert.False(t, g.InFlight(SlotLaunch))

	// A later request retries.
	delete(gw.fail, report.KindLaunch)
	_, err = g.RequestSlot(ctx, SlotLaunch, canvas.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.count(report.KindLaunch))
}

func TestRequestSlot_LaunchNormalized(t *testing.T) {
	g, _ := newTestGraph(t)
	artifact, err := g.RequestSlot(context.Background(), SlotLaunch, canvas.Defaults())
	require.NoError(t, err)

	l := artifact.(*report.LaunchData)
	for _, p := range l.First14Days {
		for _, task := range p.Tasks {
			assert.NotEmpty(t, task.ID)
		}
	}
	assert.NotEmpty(t, l.SetupChecklist[0].ID)
}

func TestRequestSlot_InFlightGuard(t *testing.T) {
	g, gw := newTestGraph(t)
	gw.gate = make(chan struct{})
	gw.started = make(chan report.Kind, 4)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
		done <- err
	}()
	<-gw.started

	_, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
	assert.ErrorIs(t, err, ErrInFlight)
	assert.True(t, g.InFlight(SlotBudget))
	assert.Equal(t, []Slot{SlotBudget}, g.Snapshot().InFlight)

	// A different slot proceeds independently.
	launchDone := make(chan error, 1)
	go func() {
		_, err := g.RequestSlot(ctx, SlotLaunch, canvas.Defaults())
		launchDone <- err
	}()
	<-gw.started

	gw.gate <- struct{}{}
	gw.gate <- struct{}{}
	require.NoError(t, <-done)
	require.NoError(t, <-launchDone)
	assert.Equal(t, 1, gw.count(report.KindBudget))
	assert.Equal(t, 1, gw.count(report.KindLaunch))
	assert.False(t, g.InFlight(SlotBudget))
}

func TestRequestSlot_StaleResultDiscarded(t *testing.T) {
	g, gw := newTestGraph(t)
	ctx := context.Background()
	_, err := g.RequestSlot(ctx, SlotBudget, canvas.Defaults())
	require.NoError(t, err)

	gw.gate = make(chan struct{})
	gw.started = make(chan report.Kind, 1)
	done := make(chan error, 1)
	go func() {
		_, err := g.RequestSlot(ctx, SlotCashFlow, canvas.Defaults())
		done <- err
	}()
	<-gw.started

	// Budget edited while the cash-flow analysis is being generated.
	b := g.Snapshot().Budget
	b.Breakdown[0].Items[0].Cost = 7000
	_, err = g.EditBudget(*b)
	require.NoError(t, err)
	assert.False(t, g.InFlight(SlotCashFlow), "invalidation releases the guard")

	gw.gate <- struct{}{}
	assert.ErrorIs(t, <-done, ErrStaleResult)
	assert.False(t, g.Has(SlotCashFlow))
}

func TestRequestSlot_LateResultAppliedWhenInputsUnchanged(t *testing.T) {
	g, gw := newTestGraph(t)
	gw.gate = make(chan struct{})
	gw.started = make(chan report.Kind, 1)

	done := make(chan error, 1)
	go func() {
		_, err := g.RequestSlot(context.Background(), SlotLaunch, canvas.Defaults())
		done <- err
	}()
	<-gw.started

	// Unrelated edits do not stale the launch result.
	_, err := g.AddActionTask(0, 0)
	require.NoError(t, err)

	gw.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.True(t, g.Has(SlotLaunch))
}

func TestAttachRoot_ClearsAllSlots(t *testing.T) {
	g, _ := newTestGraph(t)
	populateAll(t, g)
	_, err := g.BeginBudgetEdit()
	require.NoError(t, err)
	_, err = g.BeginActionPlanEdit()
	require.NoError(t, err)

	g.AttachRoot(reporttest.Analysis())

	snap := g.Snapshot()
	assert.NotNil(t, snap.Analysis)
	assert.Nil(t, snap.Budget)
	assert.Nil(t, snap.CashFlow)
	assert.Nil(t, snap.Launch)
	assert.Nil(t, snap.BudgetDraft)
	assert.Nil(t, snap.ActionPlanDraft)
}

func TestClear(t *testing.T) {
	g, _ := newTestGraph(t)
	populateAll(t, g)
	g.Clear()

	assert.False(t, g.HasRoot())
	for _, s := range Slots {
		assert.False(t, g.Has(s), s)
	}
}

func TestAttachRoot_Nil(t *testing.T) {
	g, _ := newTestGraph(t)
	g.AttachRoot(nil)
	assert.False(t, g.HasRoot())
}

func TestSnapshot_IsCopy(t *testing.T) {
	g, _ := newTestGraph(t)
	populateAll(t, g)

	snap := g.Snapshot()
	snap.Analysis.DepartmentalActionPlan[0].Roles[0].Tasks[0].IsDone = true
	snap.Budget.Breakdown[0].Items[0].Cost = 1
	snap.Launch.First14Days[0].Tasks[0].IsDone = true

	again := g.Snapshot()
	assert.False(t, again.Analysis.DepartmentalActionPlan[0].Roles[0].Tasks[0].IsDone)
	assert.Equal(t, 5000.0, again.Budget.Breakdown[0].Items[0].Cost)
	assert.False(t, again.Launch.First14Days[0].Tasks[0].IsDone)
}
