package report_test

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/datasync-solution/bmc-analyst/internal/report"
	"github.com/datasync-solution/bmc-analyst/internal/report/reporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestFixturesAreValid(t *testing.T) {
	artifacts := []report.Artifact{
		reporttest.Analysis(),
		reporttest.Budget(),
		reporttest.CashFlow(),
		reporttest.Launch(),
	}
	for _, a := range artifacts {
		t.Run(string(a.Kind()), func(t *testing.T) {
			res := a.Validate()
			assert.True(t, res.Valid, res.ErrorSummary())
			assert.NoError(t, res.Err())
		})
	}
}

func TestAnalysisValidation_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *report.AnalysisResult)
		tag    string
	}{
		{"score above range", func(a *report.AnalysisResult) { a.OverallScore = 120 }, "max"},
		{"blank summary", func(a *report.AnalysisResult) { a.ExecutiveSummary = "  " }, "nonempty"},
		{"unknown impact", func(a *report.AnalysisResult) { a.RiskAnalysis[0].Impact = "Severe" }, "level"},
		{"unknown year", func(a *report.AnalysisResult) { a.FinancialProjections[0].Year = "Year 2" }, "projection_year"},
		{"unknown status", func(a *report.AnalysisResult) { a.Roadmap[0].Status = "Blocked" }, "roadmap_status"},
		{"start month out of range", func(a *report.AnalysisResult) { a.Roadmap[0].StartMonth = 9 }, "max"},
		{"missing swot list", func(a *report.AnalysisResult) { a.SWOT.Threats = nil }, "required"},
		{"segment score out of range", func(a *report.AnalysisResult) { a.SegmentAnalysis[0].Score = 11 }, "max"},
		{"blank task", func(a *report.AnalysisResult) { a.DepartmentalActionPlan[0].Roles[0].Tasks[0].Text = "" }, "nonempty"},
		{"competitor type", func(a *report.AnalysisResult) { a.MarketAnalysis.Competitors[0].Type = "Partner" }, "competitor_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := reporttest.Analysis()
			tt.mutate(a)

			res := a.Validate()
			require.False(t, res.Valid)
			assert.ErrorIs(t, res.Err(), report.ErrSchema)

			tags := make([]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				tags = append(tags, e.Tag)
			}
			assert.Contains(t, tags, tt.tag)
		})
	}
}

func TestAnalysisWithoutMarketAnalysisIsValid(t *testing.T) {
	a := reporttest.Analysis()
	a.MarketAnalysis = nil
	assert.True(t, a.Validate().Valid)
}

func TestEnumMessage(t *testing.T) {
	a := reporttest.Analysis()
	a.RiskAnalysis[0].Probability = "Certain"

	res := a.Validate()
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "High, Medium, Low")
	assert.Contains(t, res.Errors[0].Field, "Probability")
}

func TestActionTask_DecodesStringOrObject(t *testing.T) {
	var role report.RolePlan
	raw := `{"role":"Lead","tasks":["Design flyer",{"id":"t1","text":"Run ads","isDone":true}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &role))

	require.Len(t, role.Tasks, 2)
	assert.Equal(t, report.ActionTask{Text: "Design flyer"}, role.Tasks[0])
	assert.Equal(t, report.ActionTask{ID: "t1", Text: "Run ads", IsDone: true}, role.Tasks[1])
}

func TestActionTask_RejectsOtherTypes(t *testing.T) {
	var task report.ActionTask
	assert.Error(t, json.Unmarshal([]byte(`42`), &task))
}

func TestNormalizeActionPlan(t *testing.T) {
	a := reporttest.Analysis()
	a.DepartmentalActionPlan[0].Roles[0].Tasks[1] = report.ActionTask{ID: "keep", Text: "Run ads", IsDone: true}
	a.DepartmentalActionPlan = append(a.DepartmentalActionPlan, report.DepartmentPlan{
		Department: "Ops",
		Roles:      []report.RolePlan{{Role: "Manager"}},
	})

	report.NormalizeActionPlan(a.DepartmentalActionPlan, sequentialIDs())

	mk := a.DepartmentalActionPlan[0].Roles[0].Tasks
	assert.Equal(t, "id-1", mk[0].ID)
	assert.False(t, mk[0].IsDone)
	assert.Equal(t, report.ActionTask{ID: "keep", Text: "Run ads", IsDone: true}, mk[1])
	assert.Equal(t, "id-2", a.DepartmentalActionPlan[1].Roles[0].Tasks[0].ID)
	assert.NotNil(t, a.DepartmentalActionPlan[2].Roles[0].Tasks)
	assert.Empty(t, a.DepartmentalActionPlan[2].Roles[0].Tasks)
}

func TestCloneActionPlan_Independent(t *testing.T) {
	a := reporttest.Analysis()
	report.NormalizeActionPlan(a.DepartmentalActionPlan, sequentialIDs())

	c := a.Clone()
	c.DepartmentalActionPlan[0].Roles[0].Tasks[0].IsDone = true
	c.DepartmentalActionPlan[0].Roles[0].Tasks = append(c.DepartmentalActionPlan[0].Roles[0].Tasks, report.ActionTask{ID: "x", Text: "y"})

	assert.False(t, a.DepartmentalActionPlan[0].Roles[0].Tasks[0].IsDone)
	assert.Len(t, a.DepartmentalActionPlan[0].Roles[0].Tasks, 2)
}

func TestDepartmentProgress(t *testing.T) {
	d := report.DepartmentPlan{Roles: []report.RolePlan{
		{Tasks: []report.ActionTask{{IsDone: true}, {}, {}}},
		{Tasks: []report.ActionTask{}},
	}}
	assert.Equal(t, 33, d.Progress())
	assert.Equal(t, 0, report.DepartmentPlan{}.Progress())
}

func TestBudgetRecalculate_Scenario(t *testing.T) {
	b := reporttest.Budget().Recalculate()

	assert.Equal(t, 1200.0, b.Capex)
	assert.Equal(t, 5000.0, b.Opex)
	assert.Equal(t, 6200.0, b.TotalBudget)
	assert.Equal(t, 6200.0, b.Breakdown[0].Total)
}

func TestBudgetRecalculate_AggregateInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	types := []string{report.OneTime, report.Recurring}

	for range 200 {
		var plan report.BudgetPlan
		var wantCapex, wantOpex float64
		for c := range r.IntN(4) {
			cat := report.BudgetCategory{Category: fmt.Sprintf("c%d", c), Items: []report.BudgetItem{}}
			for range r.IntN(5) {
				it := report.BudgetItem{Item: "i", Cost: float64(r.IntN(100000)), Type: types[r.IntN(2)]}
				if it.Type == report.OneTime {
					wantCapex += it.Cost
				} else {
					wantOpex += it.Cost
				}
				cat.Items = append(cat.Items, it)
			}
			plan.Breakdown = append(plan.Breakdown, cat)
		}

		got := plan.Recalculate()
		require.Equal(t, wantCapex, got.Capex)
		require.Equal(t, wantOpex, got.Opex)
		require.Equal(t, got.Capex+got.Opex, got.TotalBudget)
	}
}

func TestBudgetRecalculate_DoesNotMutateInput(t *testing.T) {
	b := reporttest.Budget()
	_ = b.Recalculate()
	assert.Equal(t, 0.0, b.Breakdown[0].Total)
	assert.Equal(t, 1.0, b.TotalBudget)
}

func TestBudgetRecalculate_DefaultsCurrency(t *testing.T) {
	b := report.BudgetPlan{Breakdown: []report.BudgetCategory{}}
	assert.Equal(t, report.DefaultCurrency, b.Recalculate().Currency)
}

func TestBudgetValidation_RejectsUnknownType(t *testing.T) {
	b := reporttest.Budget()
	b.Breakdown[0].Items[0].Type = "Weekly"
	assert.False(t, b.Validate().Valid)

	b = reporttest.Budget()
	b.Breakdown[0].Items[0].Cost = -5
	assert.False(t, b.Validate().Valid)
}

func TestNewBudgetItem(t *testing.T) {
	assert.Equal(t, report.BudgetItem{Item: "New Item", Cost: 0, Type: report.OneTime}, report.NewBudgetItem())
}

func TestComputeRunway(t *testing.T) {
	tests := []struct {
		name       string
		cash, burn float64
		want       report.Runway
	}{
		{"normal", 50000, 20000, report.Runway{Months: 2.5}},
		{"rounded", 10000, 3000, report.Runway{Months: 3.3}},
		{"zero burn", 50000, 0, report.Runway{Unbounded: true}},
		{"negative burn", 50000, -10, report.Runway{Unbounded: true}},
		{"no cash", 0, 20000, report.Runway{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, report.ComputeRunway(tt.cash, tt.burn))
		})
	}
}

func TestRunwayString(t *testing.T) {
	assert.Equal(t, "unbounded", report.Runway{Unbounded: true}.String())
	assert.Equal(t, "2.5 months", report.Runway{Months: 2.5}.String())
}

func TestCashFlowNormalize(t *testing.T) {
	c := reporttest.CashFlow()
	c.RunwayMonths = 99
	c.Normalize()

	assert.Equal(t, 2.5, c.RunwayMonths)
	assert.Equal(t, report.Runway{Months: 2.5}, c.Runway)
	assert.Equal(t, report.PaymentPending, c.UpcomingPayments[0].Status)

	c.BurnRate = 0
	c.Normalize()
	assert.Equal(t, 0.0, c.RunwayMonths)
	assert.Equal(t, report.Runway{Unbounded: true}, c.Runway)

	// No cash and no burn must stay distinguishable on the wire.
	unbounded, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(unbounded), `"runway":{"months":0,"unbounded":true}`)

	c.BurnRate = 20000
	c.CurrentCashPosition = 0
	c.Normalize()
	assert.Equal(t, report.Runway{}, c.Runway)
	empty, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"runway":{"months":0,"unbounded":false}`)
}

func TestSimulate(t *testing.T) {
	c := reporttest.CashFlow()

	sim := report.Simulate(c, 60000, 40000)

	assert.Equal(t, report.Runway{Months: 1.5}, sim.Runway)
	require.Len(t, sim.Forecasts, 1)
	assert.Equal(t, 40000.0, sim.Forecasts[0].ProjectedOutflow)
	assert.Equal(t, -30000.0, sim.Forecasts[0].NetCashFlow)
	assert.Equal(t, 20000.0, c.Forecasts[0].ProjectedOutflow, "analysis must not change")
}

func TestLaunchNormalizeAndProgress(t *testing.T) {
	l := reporttest.Launch()
	l.SetupChecklist[0].IsDone = true

	l.Normalize(sequentialIDs())

	assert.Equal(t, "id-1", l.First14Days[0].Tasks[0].ID)
	assert.Equal(t, "id-2", l.First14Days[1].Tasks[0].ID)
	assert.Equal(t, "id-3", l.SetupChecklist[0].ID)
	assert.False(t, l.SetupChecklist[0].IsDone)
	assert.Equal(t, 0, l.Progress())

	l.First14Days[0].Tasks[0].IsDone = true
	assert.Equal(t, 33, l.Progress())

	c := l.Clone()
	c.SetupChecklist[0].IsDone = true
	assert.False(t, l.SetupChecklist[0].IsDone)
}

func TestLaunchValidation_RejectsPhase(t *testing.T) {
	l := reporttest.Launch()
	l.First14Days[0].PhaseName = "Week 3"
	assert.False(t, l.Validate().Valid)
}
