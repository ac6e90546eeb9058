package report

import "slices"

// Kind identifies which artifact a generation produces.
type Kind string

const (
	KindAnalysis Kind = "analyze"
	KindBudget   Kind = "budget"
	KindCashFlow Kind = "cashflow"
	KindLaunch   Kind = "launch"
)

// Kinds lists every artifact kind.
var Kinds = []Kind{KindAnalysis, KindBudget, KindCashFlow, KindLaunch}

// Artifact is a schema-checked generation result.
type Artifact interface {
	Kind() Kind
	Validate() ValidationResult
}

// Shared three-level scale.
const (
	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)

// AnalysisResult is the root report produced from a canvas draft.
type AnalysisResult struct {
	OverallScore           float64            `json:"overallScore" validate:"min=0,max=100"`
	ExecutiveSummary       string             `json:"executiveSummary" validate:"nonempty"`
	SWOT                   SWOT               `json:"swot"`
	Suggestions            []string           `json:"suggestions" validate:"required"`
	SegmentAnalysis        []SegmentScore     `json:"segmentAnalysis" validate:"required,dive"`
	RiskAnalysis           []RiskItem         `json:"riskAnalysis" validate:"required,dive"`
	KPIs                   []string           `json:"kpis" validate:"required"`
	MarketingStrategy      MarketingStrategy  `json:"marketingStrategy"`
	ElevatorPitch          string             `json:"elevatorPitch" validate:"nonempty"`
	MarketAnalysis         *MarketAnalysis    `json:"marketAnalysis,omitempty" validate:"omitempty"`
	DepartmentalActionPlan []DepartmentPlan   `json:"departmentalActionPlan" validate:"required,dive"`
	FinancialProjections   []YearlyProjection `json:"financialProjections" validate:"required,dive"`
	Roadmap                []RoadmapItem      `json:"roadmap" validate:"required,dive"`
}

// SWOT groups the four quadrant lists.
type SWOT struct {
	Strengths     []string `json:"strengths" validate:"required"`
	Weaknesses    []string `json:"weaknesses" validate:"required"`
	Opportunities []string `json:"opportunities" validate:"required"`
	Threats       []string `json:"threats" validate:"required"`
}

type SegmentScore struct {
	Segment  string  `json:"segment" validate:"nonempty"`
	Feedback string  `json:"feedback"`
	Score    float64 `json:"score" validate:"min=0,max=10"`
}

type RiskItem struct {
	Risk        string `json:"risk" validate:"nonempty"`
	Impact      string `json:"impact" validate:"level"`
	Probability string `json:"probability" validate:"level"`
	Mitigation  string `json:"mitigation"`
}

type MarketingStrategy struct {
	Tagline     string   `json:"tagline"`
	TopChannels []string `json:"topChannels" validate:"required"`
	GrowthHack  string   `json:"growthHack"`
}

type MarketSize struct {
	TAM        string `json:"tam"`
	SAM        string `json:"sam"`
	SOM        string `json:"som"`
	Unit       string `json:"unit"`
	GrowthRate string `json:"growthRate"`
}

type Competitor struct {
	Name     string `json:"name" validate:"nonempty"`
	Type     string `json:"type" validate:"competitor_type"`
	Strength string `json:"strength"`
	Weakness string `json:"weakness"`
}

type MarketAnalysis struct {
	MarketSize           MarketSize   `json:"marketSize"`
	Competitors          []Competitor `json:"competitors" validate:"dive"`
	CompetitiveAdvantage string       `json:"competitiveAdvantage"`
}

// FinancialMetrics is one scenario's yearly figures.
type FinancialMetrics struct {
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

type Scenarios struct {
	Best     FinancialMetrics `json:"best"`
	Moderate FinancialMetrics `json:"moderate"`
	Worst    FinancialMetrics `json:"worst"`
}

type YearlyProjection struct {
	Year      string    `json:"year" validate:"projection_year"`
	Scenarios Scenarios `json:"scenarios"`
}

type RoadmapItem struct {
	Timeframe   string `json:"timeframe"`
	Department  string `json:"department"`
	Task        string `json:"task" validate:"nonempty"`
	Deliverable string `json:"deliverable"`
	Priority    string `json:"priority" validate:"level"`
	Status      string `json:"status" validate:"roadmap_status"`
	Resource    string `json:"resource"`
	StartMonth  int    `json:"startMonth" validate:"min=1,max=6"`
	Duration    int    `json:"duration" validate:"min=1"`
}

// Kind implements Artifact.
func (a *AnalysisResult) Kind() Kind { return KindAnalysis }

// Validate checks the result against the analysis schema.
func (a *AnalysisResult) Validate() ValidationResult {
	return validateStruct(a)
}

// Clone returns a copy whose action plan can be edited independently.
// Other slices are shared and must be treated as read-only.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	out.DepartmentalActionPlan = CloneActionPlan(a.DepartmentalActionPlan)
	out.Roadmap = slices.Clone(a.Roadmap)
	return &out
}
