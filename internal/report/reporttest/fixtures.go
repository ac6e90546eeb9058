// Package reporttest provides schema-valid artifact fixtures for tests.
package reporttest

import (
	"encoding/json"

	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// AnalysisJSON is a valid analyze payload as a generator would emit it,
// with tasks as bare strings.
const AnalysisJSON = `{
  "overallScore": 72,
  "executiveSummary": "একটি সম্ভাবনাময় শিক্ষা প্রযুক্তি উদ্যোগ।",
  "swot": {
    "strengths": ["Low cost"],
    "weaknesses": ["Small team"],
    "opportunities": ["Growing demand"],
    "threats": ["Competition"]
  },
  "suggestions": ["Pilot in two schools"],
  "segmentAnalysis": [{"segment": "Parents", "feedback": "Strong fit", "score": 8}],
  "riskAnalysis": [{"risk": "Churn", "impact": "High", "probability": "Medium", "mitigation": "Engagement"}],
  "kpis": ["Monthly active learners"],
  "marketingStrategy": {"tagline": "Learn smarter", "topChannels": ["Facebook"], "growthHack": "Referral"},
  "elevatorPitch": "AI tutoring for every child.",
  "marketAnalysis": {
    "marketSize": {"tam": "5000 Crore BDT", "sam": "800 Crore BDT", "som": "20 Crore BDT", "unit": "BDT Yearly", "growthRate": "12% YoY"},
    "competitors": [{"name": "10 Minute School", "type": "Direct", "strength": "Brand", "weakness": "Generic"}],
    "competitiveAdvantage": "Personalised paths"
  },
  "departmentalActionPlan": [
    {"department": "Marketing", "roles": [{"role": "Lead", "tasks": ["Design flyer", "Run ads"]}]},
    {"department": "Tech", "roles": [{"role": "Engineer", "tasks": ["Build MVP"]}]}
  ],
  "financialProjections": [
    {"year": "Year 1", "scenarios": {"best": {"revenue": 100, "cost": 60, "profit": 40}, "moderate": {"revenue": 80, "cost": 60, "profit": 20}, "worst": {"revenue": 50, "cost": 60, "profit": -10}}}
  ],
  "roadmap": [
    {"timeframe": "Month 1", "department": "Tech", "task": "Build MVP", "deliverable": "App", "priority": "High", "status": "Planned", "resource": "2 devs", "startMonth": 1, "duration": 2}
  ]
}`

// BudgetJSON is a valid budget payload with one recurring and one one-time item.
const BudgetJSON = `{
  "totalBudget": 1,
  "capex": 1,
  "opex": 1,
  "currency": "BDT",
  "breakdown": [
    {"category": "Tech", "total": 0, "items": [
      {"item": "Server", "cost": 5000, "type": "Recurring (Monthly)"},
      {"item": "Domain", "cost": 1200, "type": "One-time"}
    ]}
  ],
  "advice": ["Keep a reserve"],
  "costGuides": [{"title": "Trade license", "description": "City corporation fees"}]
}`

// CashFlowJSON is a valid cash-flow payload.
const CashFlowJSON = `{
  "currentCashPosition": 50000,
  "burnRate": 20000,
  "runwayMonths": 2.5,
  "cashCrunchWarning": "Month 3 is tight",
  "forecasts": [
    {"period": "Month 1 (30 Days)", "projectedInflow": 10000, "projectedOutflow": 20000, "netCashFlow": -10000, "riskLevel": "Warning", "analysis": "Low sales"}
  ],
  "upcomingPayments": [{"billName": "Rent", "amount": 8000, "dueDate": "Day 5", "priority": "Critical"}],
  "marketRisks": [{"indicatorName": "Dollar rate", "score": 70, "trend": "Rising", "details": "Imports"}],
  "stakeholderRisks": [{"name": "Supplier X", "type": "Vendor", "riskScore": 40, "reliability": "Medium", "historyComment": "Late twice"}],
  "variableCostRisks": [{"category": "Marketing", "currentEstimate": 5000, "volatility": "High", "potentialSpike": "+50%", "mitigationTip": "Cap spend"}],
  "mitigationActions": [{"riskTitle": "Cash crunch", "actionTitle": "Pre-sell", "description": "Collect deposits", "impact": "Two more months"}]
}`

// LaunchJSON is a valid launch payload without ids.
const LaunchJSON = `{
  "readinessScore": 55,
  "criticalMissing": ["Trade license"],
  "first14Days": [
    {"phaseName": "Day 1-3", "tasks": [{"task": "Open bank account", "source": "Operations"}]},
    {"phaseName": "Day 4-7", "tasks": [{"task": "Launch page", "source": "Marketing Plan"}]}
  ],
  "setupChecklist": [{"item": "Trade License", "whyNeeded": "Legal", "riskIfIgnored": "Fines"}],
  "firstMonthExpenseEstimate": 30000,
  "firstCustomerTactics": [{"title": "Friends and family", "description": "Soft launch", "costType": "Free"}],
  "panicSolutions": [{"category": "Money", "advice": "Cut costs", "actionStep": "Pause ads"}]
}`

func mustDecode[T any](raw string) *T {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		panic(err)
	}
	return &v
}

// Analysis returns a fresh decoded AnalysisJSON. Task ids are empty.
func Analysis() *report.AnalysisResult { return mustDecode[report.AnalysisResult](AnalysisJSON) }

// Budget returns a fresh decoded BudgetJSON with stale aggregates.
func Budget() *report.BudgetPlan { return mustDecode[report.BudgetPlan](BudgetJSON) }

// CashFlow returns a fresh decoded CashFlowJSON.
func CashFlow() *report.CashFlowAnalysis { return mustDecode[report.CashFlowAnalysis](CashFlowJSON) }

// Launch returns a fresh decoded LaunchJSON.
func Launch() *report.LaunchData { return mustDecode[report.LaunchData](LaunchJSON) }
