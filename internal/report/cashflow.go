package report

import (
	"math"
	"slices"
	"strconv"
)

// CashFlowAnalysis is the cash-flow and risk review derived from a budget.
type CashFlowAnalysis struct {
	CurrentCashPosition float64            `json:"currentCashPosition"`
	BurnRate            float64            `json:"burnRate" validate:"min=0"`
	RunwayMonths        float64            `json:"runwayMonths" validate:"min=0"`
	Runway              Runway             `json:"runway"`
	CashCrunchWarning   string             `json:"cashCrunchWarning,omitempty"`
	Forecasts           []CashFlowForecast `json:"forecasts" validate:"required,dive"`
	UpcomingPayments    []PaymentAlert     `json:"upcomingPayments" validate:"required,dive"`
	MarketRisks         []MarketRisk       `json:"marketRisks" validate:"required,dive"`
	StakeholderRisks    []StakeholderRisk  `json:"stakeholderRisks" validate:"required,dive"`
	VariableCostRisks   []VariableCostRisk `json:"variableCostRisks" validate:"required,dive"`
	MitigationActions   []MitigationAction `json:"mitigationActions" validate:"required,dive"`
}

type CashFlowForecast struct {
	Period           string  `json:"period" validate:"nonempty"`
	ProjectedInflow  float64 `json:"projectedInflow"`
	ProjectedOutflow float64 `json:"projectedOutflow"`
	NetCashFlow      float64 `json:"netCashFlow"`
	RiskLevel        string  `json:"riskLevel" validate:"risk_level"`
	Analysis         string  `json:"analysis"`
}

// Payment statuses.
const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
)

type PaymentAlert struct {
	BillName string  `json:"billName" validate:"nonempty"`
	Amount   float64 `json:"amount"`
	DueDate  string  `json:"dueDate"`
	Priority string  `json:"priority" validate:"payment_priority"`
	Status   string  `json:"status"`
}

type MarketRisk struct {
	IndicatorName string  `json:"indicatorName" validate:"nonempty"`
	Score         float64 `json:"score" validate:"min=0,max=100"`
	Trend         string  `json:"trend" validate:"trend"`
	Details       string  `json:"details"`
}

type StakeholderRisk struct {
	Name           string  `json:"name" validate:"nonempty"`
	Type           string  `json:"type" validate:"stakeholder_type"`
	RiskScore      float64 `json:"riskScore" validate:"min=0,max=100"`
	Reliability    string  `json:"reliability" validate:"level"`
	HistoryComment string  `json:"historyComment"`
}

type VariableCostRisk struct {
	Category        string  `json:"category" validate:"nonempty"`
	CurrentEstimate float64 `json:"currentEstimate"`
	Volatility      string  `json:"volatility" validate:"level"`
	PotentialSpike  string  `json:"potentialSpike"`
	MitigationTip   string  `json:"mitigationTip"`
}

type MitigationAction struct {
	RiskTitle   string `json:"riskTitle"`
	ActionTitle string `json:"actionTitle" validate:"nonempty"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// Kind implements Artifact.
func (c *CashFlowAnalysis) Kind() Kind { return KindCashFlow }

// Validate checks the analysis against the cash-flow schema.
func (c *CashFlowAnalysis) Validate() ValidationResult {
	return validateStruct(c)
}

// Normalize fills defaults the generator may omit and recomputes the
// runway from cash and burn. An unbounded runway stores 0 RunwayMonths with
// Runway.Unbounded set.
func (c *CashFlowAnalysis) Normalize() {
	c.Runway = c.CurrentRunway()
	c.RunwayMonths = c.Runway.Months
	for i := range c.UpcomingPayments {
		if c.UpcomingPayments[i].Status == "" {
			c.UpcomingPayments[i].Status = PaymentPending
		}
	}
}

// Clone copies c so the copy's payment list can change independently.
func (c *CashFlowAnalysis) Clone() *CashFlowAnalysis {
	if c == nil {
		return nil
	}
	out := *c
	out.Forecasts = slices.Clone(c.Forecasts)
	out.UpcomingPayments = slices.Clone(c.UpcomingPayments)
	return &out
}

// Runway is how long cash lasts at a given burn. A zero or negative burn
// never exhausts cash and is reported as Unbounded rather than a number.
type Runway struct {
	Months    float64 `json:"months"`
	Unbounded bool    `json:"unbounded"`
}

// ComputeRunway divides cash by burn, rounded to one decimal.
func ComputeRunway(cash, burn float64) Runway {
	if burn <= 0 {
		return Runway{Unbounded: true}
	}
	if cash <= 0 {
		return Runway{}
	}
	return Runway{Months: math.Round(cash/burn*10) / 10}
}

// CurrentRunway computes the runway from the analysis' own cash and burn figures.
func (c *CashFlowAnalysis) CurrentRunway() Runway {
	return ComputeRunway(c.CurrentCashPosition, c.BurnRate)
}

func (r Runway) String() string {
	if r.Unbounded {
		return "unbounded"
	}
	return strconv.FormatFloat(r.Months, 'f', -1, 64) + " months"
}

// Simulation is a what-if view of the analysis at different cash and burn.
type Simulation struct {
	Cash      float64            `json:"cash"`
	BurnRate  float64            `json:"burnRate"`
	Runway    Runway             `json:"runway"`
	Forecasts []CashFlowForecast `json:"forecasts"`
}

// Simulate recomputes runway for cash and burn and scales each forecast's
// outflow by burn relative to the analysed burn rate. The analysis itself is
// not modified.
func Simulate(c *CashFlowAnalysis, cash, burn float64) Simulation {
	factor := 1.0
	if c.BurnRate > 0 {
		factor = burn / c.BurnRate
	}

	forecasts := slices.Clone(c.Forecasts)
	for i := range forecasts {
		f := &forecasts[i]
		f.ProjectedOutflow = math.Round(f.ProjectedOutflow * factor)
		f.NetCashFlow = f.ProjectedInflow - f.ProjectedOutflow
	}

	return Simulation{
		Cash:      cash,
		BurnRate:  burn,
		Runway:    ComputeRunway(cash, burn),
		Forecasts: forecasts,
	}
}
