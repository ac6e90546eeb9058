package report

import (
	"encoding/json"
	"fmt"
	"math"
)

// DefaultTaskText is the placeholder for a freshly added task.
const DefaultTaskText = "নতুন কাজ লিখুন..."

// DepartmentPlan is one department's roles and their tasks.
type DepartmentPlan struct {
	Department string     `json:"department" validate:"nonempty"`
	Roles      []RolePlan `json:"roles" validate:"required,dive"`
}

type RolePlan struct {
	Role  string       `json:"role" validate:"nonempty"`
	Tasks []ActionTask `json:"tasks" validate:"dive"`
}

// ActionTask is an editable checklist entry. Generators emit bare strings;
// those decode into a task with no id until NormalizeActionPlan runs.
type ActionTask struct {
	ID     string `json:"id"`
	Text   string `json:"text" validate:"nonempty"`
	IsDone bool   `json:"isDone"`
}

// UnmarshalJSON accepts either a task object or a bare string.
func (t *ActionTask) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*t = ActionTask{Text: text}
		return nil
	}

	type plain ActionTask
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	*t = ActionTask(p)
	return nil
}

// NormalizeActionPlan assigns ids to tasks that lack one. Existing ids and
// done flags are preserved.
func NormalizeActionPlan(plan []DepartmentPlan, newID func() string) {
	for d := range plan {
		for r := range plan[d].Roles {
			role := &plan[d].Roles[r]
			if role.Tasks == nil {
				role.Tasks = []ActionTask{}
			}
			for i := range role.Tasks {
				if role.Tasks[i].ID == "" {
					role.Tasks[i].ID = newID()
				}
			}
		}
	}
}

// CloneActionPlan deep-copies plan.
func CloneActionPlan(plan []DepartmentPlan) []DepartmentPlan {
	if plan == nil {
		return nil
	}
	out := make([]DepartmentPlan, len(plan))
	for d, dept := range plan {
		out[d] = DepartmentPlan{Department: dept.Department}
		if dept.Roles == nil {
			continue
		}
		out[d].Roles = make([]RolePlan, len(dept.Roles))
		for r, role := range dept.Roles {
			out[d].Roles[r] = RolePlan{Role: role.Role}
			if role.Tasks != nil {
				out[d].Roles[r].Tasks = append([]ActionTask{}, role.Tasks...)
			}
		}
	}
	return out
}

// Progress returns the rounded percentage of done tasks across all roles,
// or 0 for a department without tasks.
func (d DepartmentPlan) Progress() int {
	total, done := 0, 0
	for _, role := range d.Roles {
		for _, t := range role.Tasks {
			total++
			if t.IsDone {
				done++
			}
		}
	}
	return percent(done, total)
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
