package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// FallbackInstruction is appended to the prompt of the lenient attempt.
const FallbackInstruction = "\n\nRETURN ONLY VALID JSON. Do not include markdown formatting like ```json"

const analyzePrompt = `**ROLE:** You are "BMC AI Analyst", a seasoned business consultant and strategist.
Analyse the Business Model Canvas below and write a complete, practical, actionable business report.

**CONTEXT:**
{{.StageNote}}
Goal: {{.GoalFocus}}
Industry: {{if .Draft.Industry}}{{.Draft.Industry}}{{else}}General{{end}}

**RULES:**
1. Base the analysis on the Business Model Canvas framework.
2. Be constructive, encouraging and realistic. Where data is missing, use industry benchmarks and say so.
3. Give specific, measurable, time-bound recommendations and explain jargon simply.
4. All text must be in Bengali. Amounts are in BDT for the Bangladesh market unless the business is global.

**INPUT DATA:**
- Key Partners: {{.Draft.KeyPartners}}
- Key Activities: {{.Draft.KeyActivities}}
- Key Resources: {{.Draft.KeyResources}}
- Value Propositions: {{.Draft.ValuePropositions}}
- Customer Relationships: {{.Draft.CustomerRelationships}}
- Channels: {{.Draft.Channels}}
- Customer Segments: {{.Draft.CustomerSegments}}
- Cost Structure: {{.Draft.CostStructure}}
- Revenue Streams: {{.Draft.RevenueStreams}}

**REPORT CONTENT:**
executive summary, overall score (0-100), SWOT, market size (TAM/SAM/SOM) with 2-3 competitors (type Direct or Indirect) and the competitive advantage,
financial projections for Year 1, Year 3 and Year 5 with best/moderate/worst scenarios, a department-wise action plan with plain-string tasks,
a 6-month roadmap (priority High/Medium/Low, status Planned/In Progress/Delayed/Completed, startMonth 1-6, duration in months),
a risk matrix (impact and probability High/Medium/Low), marketing tagline, growth hack, top channels, KPIs and an elevator pitch.

**RESPONSE FORMAT:** a single JSON object with exactly these keys:
{"overallScore":0,"executiveSummary":"","swot":{"strengths":[],"weaknesses":[],"opportunities":[],"threats":[]},
"suggestions":[],"segmentAnalysis":[{"segment":"","feedback":"","score":0}],
"riskAnalysis":[{"risk":"","impact":"High","probability":"Low","mitigation":""}],"kpis":[],
"marketingStrategy":{"tagline":"","topChannels":[],"growthHack":""},"elevatorPitch":"",
"marketAnalysis":{"marketSize":{"tam":"","sam":"","som":"","unit":"","growthRate":""},"competitors":[{"name":"","type":"Direct","strength":"","weakness":""}],"competitiveAdvantage":""},
"departmentalActionPlan":[{"department":"","roles":[{"role":"","tasks":[""]}]}],
"financialProjections":[{"year":"Year 1","scenarios":{"best":{"revenue":0,"cost":0,"profit":0},"moderate":{"revenue":0,"cost":0,"profit":0},"worst":{"revenue":0,"cost":0,"profit":0}}}],
"roadmap":[{"timeframe":"","department":"","task":"","deliverable":"","priority":"High","status":"Planned","resource":"","startMonth":1,"duration":1}]}
Return ONLY the JSON object.`

const budgetPrompt = `**ROLE:** You are an experienced CFO.
**TASK:** Prepare a detailed startup budget in BDT from the canvas, action plan and roadmap below.

**CONTEXT:**
- Business Stage: {{.Draft.BusinessStage}}
- Industry: {{.Draft.Industry}}
- Cost Structure: {{.Draft.CostStructure}}
- Action Plan: {{.ActionPlanJSON}}
- Roadmap: {{.RoadmapJSON}}

**REQUIREMENTS:**
1. Realistic BDT estimates grouped into categories such as Marketing, Technology, Operations, Legal/Admin and HR.
2. Every line item is either "One-time" (CAPEX) or "Recurring (Monthly)" (OPEX).
3. 3-5 financial tips specific to this business.
4. 4 cost guides explaining the main cost drivers of this business type.
5. All text in Bengali.

**RESPONSE FORMAT:** a single JSON object:
{"totalBudget":0,"capex":0,"opex":0,"currency":"BDT",
"breakdown":[{"category":"","total":0,"items":[{"item":"","cost":0,"type":"One-time"}]}],
"advice":[],"costGuides":[{"title":"","description":""}]}
Return ONLY the JSON object.`

const cashFlowPrompt = `**ROLE:** You are an expert risk manager and financial analyst.
**TASK:** Simulate cash flow and a dynamic risk review for the next 3 months (30, 60, 90 days).

**CONTEXT:**
- Business Stage: {{.Draft.BusinessStage}}
- Industry: {{.Draft.Industry}}
- Monthly OPEX: {{printf "%.0f" .Budget.Opex}} {{.Budget.Currency}}
- CAPEX: {{printf "%.0f" .Budget.Capex}} {{.Budget.Currency}}
- Total Budget: {{printf "%.0f" .Budget.TotalBudget}} {{.Budget.Currency}}
- Revenue Streams: {{.Draft.RevenueStreams}}

**REQUIREMENTS:**
1. Forecast months 1-3; early months usually have high outflow and low inflow. riskLevel is Safe, Warning or CRITICAL.
2. Flag a cash crunch if the burn rate exhausts cash.
3. 5-7 upcoming critical payments (priority Critical/High/Medium/Low, status Pending).
4. 3-4 market risk indicators for the {{.Draft.Industry}} industry scored 0-100 with trend Rising/Falling/Stable.
5. Two vendors and one customer group with riskScore 0-100 and reliability High/Medium/Low.
6. Volatility (High/Medium/Low) of API/tech, server/hosting, marketing/ads and HR/salary costs with likely spikes.
7. Concrete mitigation actions with a short button title.
8. All text in Bengali.

**RESPONSE FORMAT:** a single JSON object:
{"currentCashPosition":0,"burnRate":0,"runwayMonths":0,"cashCrunchWarning":"",
"forecasts":[{"period":"","projectedInflow":0,"projectedOutflow":0,"netCashFlow":0,"riskLevel":"Safe","analysis":""}],
"upcomingPayments":[{"billName":"","amount":0,"dueDate":"","priority":"Critical","status":"Pending"}],
"marketRisks":[{"indicatorName":"","score":0,"trend":"Stable","details":""}],
"stakeholderRisks":[{"name":"","type":"Vendor","riskScore":0,"reliability":"High","historyComment":""}],
"variableCostRisks":[{"category":"","currentEstimate":0,"volatility":"Medium","potentialSpike":"","mitigationTip":""}],
"mitigationActions":[{"riskTitle":"","actionTitle":"","description":"","impact":""}]}
Return ONLY the JSON object.`

const launchPrompt = `**ROLE:** You are a startup launch expert and virtual consultant.
**TASK:** Build the launch dashboard for the first two weeks.

**SOURCES:**
1. Business Stage: {{.Draft.BusinessStage}}
2. SWOT weaknesses (drive readiness score and critical missing items): {{.WeaknessesJSON}}
3. Action plan (drive the 14-day tasks): {{.ActionPlanJSON}}
4. SWOT threats (drive panic solutions): {{.ThreatsJSON}}
5. Cost structure (drives first month expense): {{.Draft.CostStructure}}

**REQUIREMENTS (in Bengali):**
1. Readiness score 0-100, lower when funding or team is missing.
2. 3-4 critical missing items for this stage (e.g. trade license, bank account).
3. First 14 days split into phases "Day 1-3", "Day 4-7" and "Day 8-14"; every task has a source of the form "Action Plan -> <Department>".
4. A legal/admin setup checklist with why each item is needed and the risk if ignored.
5. A bare-minimum first month expense in BDT.
6. 3 tactics for the very first sale, costType Low-cost, Free or Paid.
7. Panic solutions for the categories Money, Customer and Fear.

**RESPONSE FORMAT:** a single JSON object:
{"readinessScore":0,"criticalMissing":[],
"first14Days":[{"phaseName":"Day 1-3","tasks":[{"task":"","source":""}]}],
"setupChecklist":[{"item":"","whyNeeded":"","riskIfIgnored":""}],
"firstMonthExpenseEstimate":0,
"firstCustomerTactics":[{"title":"","description":"","costType":"Free"}],
"panicSolutions":[{"category":"Money","advice":"","actionStep":""}]}
Return ONLY the JSON object.`

// launchPlanLimit caps the action plan excerpt sent with launch prompts.
const launchPlanLimit = 1500

var templates = map[report.Kind]*template.Template{
	report.KindAnalysis: template.Must(template.New("analyze").Parse(analyzePrompt)),
	report.KindBudget:   template.Must(template.New("budget").Parse(budgetPrompt)),
	report.KindCashFlow: template.Must(template.New("cashflow").Parse(cashFlowPrompt)),
	report.KindLaunch:   template.Must(template.New("launch").Parse(launchPrompt)),
}

type promptData struct {
	Draft          canvas.Draft
	StageNote      string
	GoalFocus      string
	ActionPlanJSON string
	RoadmapJSON    string
	WeaknessesJSON string
	ThreatsJSON    string
	Budget         *report.BudgetPlan
}

func stageNote(stage string) string {
	switch stage {
	case canvas.StageNew:
		return "NOTE: This is a NEW BUSINESS IDEA (Startup)."
	case canvas.StageExisting:
		return "NOTE: This is an EXISTING BUSINESS."
	default:
		return "NOTE: Business stage not specified, treat as general business case."
	}
}

func renderPrompt(req Request) (string, error) {
	tmpl, ok := templates[req.Kind]
	if !ok {
		return "", fmt.Errorf("no prompt for kind %q", req.Kind)
	}

	data := promptData{
		Draft:     req.Draft,
		StageNote: stageNote(req.Draft.BusinessStage),
		GoalFocus: canvas.GoalDescription(req.Draft.PrimaryGoal),
		Budget:    req.Budget,
	}
	if a := req.Analysis; a != nil {
		data.ActionPlanJSON = compactJSON(a.DepartmentalActionPlan, 0)
		data.RoadmapJSON = compactJSON(a.Roadmap, 0)
		data.WeaknessesJSON = compactJSON(a.SWOT.Weaknesses, 0)
		data.ThreatsJSON = compactJSON(a.SWOT.Threats, 0)
		if req.Kind == report.KindLaunch {
			data.ActionPlanJSON = compactJSON(a.DepartmentalActionPlan, launchPlanLimit)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// compactJSON marshals v, truncated to limit runes when limit > 0.
func compactJSON(v any, limit int) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	s := string(b)
	if limit > 0 {
		if r := []rune(s); len(r) > limit {
			s = string(r[:limit])
		}
	}
	return s
}
