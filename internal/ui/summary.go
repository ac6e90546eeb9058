package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/datasync-solution/bmc-analyst/internal/graph"
	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// Summary renders the populated parts of a result graph. Plain output has no
// ANSI codes and suits pipes and tests.
type Summary struct {
	Plain bool
	// Width caps table columns; 0 means 48.
	Width int
}

// Render returns the summary text. Empty slots are skipped.
func (s Summary) Render(snap graph.Snapshot) string {
	var sb strings.Builder
	if snap.Analysis != nil {
		s.analysis(&sb, snap.Analysis)
	}
	if snap.Budget != nil {
		s.budget(&sb, snap.Budget)
	}
	if snap.CashFlow != nil {
		s.cashFlow(&sb, snap.CashFlow)
	}
	if snap.Launch != nil {
		s.launch(&sb, snap.Launch)
	}
	return sb.String()
}

func (s Summary) paint(style lipgloss.Style, text string) string {
	return paint(!s.Plain, style, text)
}

func (s Summary) section(sb *strings.Builder, title string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(s.paint(StyleSectionTitle, title) + "\n\n")
}

func (s Summary) table(headers []string, rows [][]string) string {
	width := s.Width
	if width == 0 {
		width = 48
	}
	t := &Table{Headers: headers, Rows: rows, MaxWidth: width, Plain: s.Plain}
	return t.Render()
}

func (s Summary) analysis(sb *strings.Builder, a *report.AnalysisResult) {
	s.section(sb, "Analysis")
	score := fmt.Sprintf("%.0f/100", a.OverallScore)
	fmt.Fprintf(sb, "Overall score: %s\n", s.paint(ScoreStyle(a.OverallScore).Bold(true), score))
	if a.ExecutiveSummary != "" {
		sb.WriteString(a.ExecutiveSummary + "\n")
	}
	if a.ElevatorPitch != "" {
		fmt.Fprintf(sb, "Pitch: %s\n", s.paint(StyleSubtle, a.ElevatorPitch))
	}

	if len(a.RiskAnalysis) > 0 {
		sb.WriteString("\n")
		rows := make([][]string, 0, len(a.RiskAnalysis))
		for _, r := range a.RiskAnalysis {
			rows = append(rows, []string{r.Risk, r.Impact, r.Probability})
		}
		sb.WriteString(s.table([]string{"Risk", "Impact", "Probability"}, rows))
	}

	if len(a.DepartmentalActionPlan) > 0 {
		sb.WriteString("\n")
		rows := make([][]string, 0, len(a.DepartmentalActionPlan))
		for _, d := range a.DepartmentalActionPlan {
			tasks := 0
			for _, r := range d.Roles {
				tasks += len(r.Tasks)
			}
			rows = append(rows, []string{d.Department, fmt.Sprint(tasks), Percent(d.Progress())})
		}
		sb.WriteString(s.table([]string{"Department", "Tasks", "Done"}, rows))
	}
}

func (s Summary) budget(sb *strings.Builder, b *report.BudgetPlan) {
	s.section(sb, "Budget plan")
	fmt.Fprintf(sb, "Total %s  (capex %s, opex %s)\n\n",
		s.paint(StyleMoney, FormatBDT(b.TotalBudget)), FormatBDT(b.Capex), FormatBDT(b.Opex))

	rows := make([][]string, 0, len(b.Breakdown))
	for _, c := range b.Breakdown {
		rows = append(rows, []string{c.Category, fmt.Sprint(len(c.Items)), FormatBDT(c.Total)})
	}
	sb.WriteString(s.table([]string{"Category", "Items", "Total"}, rows))
}

func (s Summary) cashFlow(sb *strings.Builder, c *report.CashFlowAnalysis) {
	s.section(sb, "Cash flow")
	runway := c.CurrentRunway()
	runwayStyle := StyleSuccess
	if !runway.Unbounded && runway.Months < 6 {
		runwayStyle = StyleWarning
	}
	fmt.Fprintf(sb, "Cash %s, burn %s/month, runway %s\n",
		FormatBDT(c.CurrentCashPosition), FormatBDT(c.BurnRate), s.paint(runwayStyle, runway.String()))
	if c.CashCrunchWarning != "" {
		sb.WriteString(s.paint(StyleWarning, "⚠ "+c.CashCrunchWarning) + "\n")
	}

	if len(c.Forecasts) > 0 {
		sb.WriteString("\n")
		rows := make([][]string, 0, len(c.Forecasts))
		for _, f := range c.Forecasts {
			rows = append(rows, []string{f.Period, FormatBDT(f.ProjectedInflow), FormatBDT(f.ProjectedOutflow), FormatBDT(f.NetCashFlow), f.RiskLevel})
		}
		sb.WriteString(s.table([]string{"Period", "In", "Out", "Net", "Risk"}, rows))
	}
}

func (s Summary) launch(sb *strings.Builder, l *report.LaunchData) {
	s.section(sb, "Launch plan")
	fmt.Fprintf(sb, "Readiness %s, first month %s, progress %s\n",
		s.paint(ScoreStyle(l.ReadinessScore), fmt.Sprintf("%.0f/100", l.ReadinessScore)),
		FormatBDT(l.FirstMonthExpenseEstimate), Percent(l.Progress()))
	for _, m := range l.CriticalMissing {
		sb.WriteString(s.paint(StyleError, "✗ "+m) + "\n")
	}

	if len(l.First14Days) > 0 {
		sb.WriteString("\n")
		rows := make([][]string, 0, len(l.First14Days))
		for _, p := range l.First14Days {
			done := 0
			for _, t := range p.Tasks {
				if t.IsDone {
					done++
				}
			}
			rows = append(rows, []string{p.PhaseName, fmt.Sprintf("%d/%d", done, len(p.Tasks))})
		}
		sb.WriteString(s.table([]string{"Phase", "Done"}, rows))
	}
}
