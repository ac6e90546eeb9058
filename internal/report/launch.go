package report

import "slices"

// LaunchData is the first-weeks launch dashboard derived from the root report.
type LaunchData struct {
	ReadinessScore            float64              `json:"readinessScore" validate:"min=0,max=100"`
	CriticalMissing           []string             `json:"criticalMissing" validate:"required"`
	First14Days               []LaunchPhase        `json:"first14Days" validate:"required,dive"`
	SetupChecklist            []SetupChecklistItem `json:"setupChecklist" validate:"required,dive"`
	FirstMonthExpenseEstimate float64              `json:"firstMonthExpenseEstimate" validate:"min=0"`
	FirstCustomerTactics      []CustomerTactic     `json:"firstCustomerTactics" validate:"required,dive"`
	PanicSolutions            []PanicSolution      `json:"panicSolutions" validate:"required,dive"`
}

type LaunchPhase struct {
	PhaseName string       `json:"phaseName" validate:"launch_phase"`
	Tasks     []LaunchTask `json:"tasks" validate:"required,dive"`
}

type LaunchTask struct {
	ID     string `json:"id"`
	Task   string `json:"task" validate:"nonempty"`
	Source string `json:"source"`
	IsDone bool   `json:"isDone"`
}

type SetupChecklistItem struct {
	ID            string `json:"id"`
	Item          string `json:"item" validate:"nonempty"`
	WhyNeeded     string `json:"whyNeeded"`
	RiskIfIgnored string `json:"riskIfIgnored"`
	IsDone        bool   `json:"isDone"`
}

type CustomerTactic struct {
	Title       string `json:"title" validate:"nonempty"`
	Description string `json:"description"`
	CostType    string `json:"costType" validate:"cost_type"`
}

type PanicSolution struct {
	Category   string `json:"category" validate:"panic_category"`
	Advice     string `json:"advice"`
	ActionStep string `json:"actionStep"`
}

// Kind implements Artifact.
func (l *LaunchData) Kind() Kind { return KindLaunch }

// Validate checks the data against the launch schema.
func (l *LaunchData) Validate() ValidationResult {
	return validateStruct(l)
}

// Normalize gives every phase task and checklist item an id and resets
// their done flags.
func (l *LaunchData) Normalize(newID func() string) {
	for p := range l.First14Days {
		for t := range l.First14Days[p].Tasks {
			task := &l.First14Days[p].Tasks[t]
			task.ID = newID()
			task.IsDone = false
		}
	}
	for i := range l.SetupChecklist {
		l.SetupChecklist[i].ID = newID()
		l.SetupChecklist[i].IsDone = false
	}
}

// Clone deep-copies the toggleable parts of the data.
func (l *LaunchData) Clone() *LaunchData {
	if l == nil {
		return nil
	}
	out := *l
	if l.First14Days != nil {
		out.First14Days = make([]LaunchPhase, len(l.First14Days))
		for i, p := range l.First14Days {
			out.First14Days[i] = LaunchPhase{PhaseName: p.PhaseName, Tasks: slices.Clone(p.Tasks)}
		}
	}
	out.SetupChecklist = slices.Clone(l.SetupChecklist)
	return &out
}

// Progress is the rounded percentage of done phase tasks and checklist items.
func (l *LaunchData) Progress() int {
	total, done := 0, 0
	for _, p := range l.First14Days {
		for _, t := range p.Tasks {
			total++
			if t.IsDone {
				done++
			}
		}
	}
	for _, it := range l.SetupChecklist {
		total++
		if it.IsDone {
			done++
		}
	}
	return percent(done, total)
}
