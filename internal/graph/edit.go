package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/datasync-solution/bmc-analyst/internal/report"
)

var (
	// ErrEditInProgress is returned by task toggles while the action plan is
	// being edited and by EditBudget while a budget edit session is open.
	ErrEditInProgress = errors.New("edit in progress")
	// ErrNoEditSession is returned when committing or changing an edit that was never begun.
	ErrNoEditSession = errors.New("no edit session")
	// ErrNotFound is returned when an index or id does not address an existing element.
	ErrNotFound = errors.New("not found")
	// ErrSlotEmpty is returned when an edit targets a slot with no artifact.
	ErrSlotEmpty = errors.New("slot empty")
)

// EditBudget replaces the budget with plan, recomputing every aggregate,
// and clears the cash-flow analysis derived from the previous budget. It is
// refused while a budget edit session is open.
func (g *Graph) EditBudget(plan report.BudgetPlan) (report.BudgetPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.budgetEdit != nil {
		return report.BudgetPlan{}, fmt.Errorf("%s: %w", SlotBudget, ErrEditInProgress)
	}
	return g.editBudgetLocked(plan)
}

func (g *Graph) editBudgetLocked(plan report.BudgetPlan) (report.BudgetPlan, error) {
	if g.analysis == nil {
		return report.BudgetPlan{}, ErrNoRoot
	}
	if g.budget == nil {
		return report.BudgetPlan{}, fmt.Errorf("%s: %w", SlotBudget, ErrSlotEmpty)
	}
	next := plan.Recalculate()
	if err := next.Validate().Err(); err != nil {
		return report.BudgetPlan{}, err
	}
	g.budget = &next
	g.touch(SlotBudget)
	g.invalidate(SlotBudget)
	g.logger.Debug("budget edited", "total", next.TotalBudget)
	return next.Clone(), nil
}

// BeginBudgetEdit opens a scratch copy of the budget. Calling it while a
// session is open returns the current scratch copy.
func (g *Graph) BeginBudgetEdit() (report.BudgetPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.analysis == nil {
		return report.BudgetPlan{}, ErrNoRoot
	}
	if g.budget == nil {
		return report.BudgetPlan{}, fmt.Errorf("%s: %w", SlotBudget, ErrSlotEmpty)
	}
	if g.budgetEdit == nil {
		b := g.budget.Clone()
		g.budgetEdit = &b
	}
	return g.budgetEdit.Clone(), nil
}

// BudgetEditing reports whether a budget edit session is open.
func (g *Graph) BudgetEditing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.budgetEdit != nil
}

// ReplaceBudgetDraft swaps the scratch copy for plan.
func (g *Graph) ReplaceBudgetDraft(plan report.BudgetPlan) (report.BudgetPlan, error) {
	return g.changeBudgetDraft(func(b *report.BudgetPlan) error {
		*b = plan.Clone()
		return nil
	})
}

// AddBudgetItem appends a placeholder item to category cat of the scratch copy.
func (g *Graph) AddBudgetItem(cat int) (report.BudgetPlan, error) {
	return g.changeBudgetDraft(func(b *report.BudgetPlan) error {
		if cat < 0 || cat >= len(b.Breakdown) {
			return fmt.Errorf("category %d: %w", cat, ErrNotFound)
		}
		b.Breakdown[cat].Items = append(b.Breakdown[cat].Items, report.NewBudgetItem())
		return nil
	})
}

// UpdateBudgetItem overwrites one item of the scratch copy.
func (g *Graph) UpdateBudgetItem(cat, item int, value report.BudgetItem) (report.BudgetPlan, error) {
	return g.changeBudgetDraft(func(b *report.BudgetPlan) error {
		if cat < 0 || cat >= len(b.Breakdown) || item < 0 || item >= len(b.Breakdown[cat].Items) {
			return fmt.Errorf("item %d/%d: %w", cat, item, ErrNotFound)
		}
		b.Breakdown[cat].Items[item] = value
		return nil
	})
}

// RemoveBudgetItem deletes one item of the scratch copy.
func (g *Graph) RemoveBudgetItem(cat, item int) (report.BudgetPlan, error) {
	return g.changeBudgetDraft(func(b *report.BudgetPlan) error {
		if cat < 0 || cat >= len(b.Breakdown) || item < 0 || item >= len(b.Breakdown[cat].Items) {
			return fmt.Errorf("item %d/%d: %w", cat, item, ErrNotFound)
		}
		b.Breakdown[cat].Items = slices.Delete(b.Breakdown[cat].Items, item, item+1)
		return nil
	})
}

// AddBudgetCategory appends an empty category to the scratch copy.
func (g *Graph) AddBudgetCategory(name string) (report.BudgetPlan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Category"
	}
	return g.changeBudgetDraft(func(b *report.BudgetPlan) error {
		b.Breakdown = append(b.Breakdown, report.BudgetCategory{Category: name, Items: []report.BudgetItem{}})
		return nil
	})
}

// changeBudgetDraft applies fn to the scratch copy and refreshes its
// aggregates so totals shown during editing stay live.
func (g *Graph) changeBudgetDraft(fn func(*report.BudgetPlan) error) (report.BudgetPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.budgetEdit == nil {
		return report.BudgetPlan{}, ErrNoEditSession
	}
	next := g.budgetEdit.Clone()
	if err := fn(&next); err != nil {
		return report.BudgetPlan{}, err
	}
	next = next.Recalculate()
	g.budgetEdit = &next
	return next.Clone(), nil
}

// CommitBudgetEdit applies the scratch copy through EditBudget and closes
// the session. A scratch copy that fails validation keeps the session open.
func (g *Graph) CommitBudgetEdit() (report.BudgetPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.budgetEdit == nil {
		return report.BudgetPlan{}, ErrNoEditSession
	}
	out, err := g.editBudgetLocked(*g.budgetEdit)
	if err != nil {
		return report.BudgetPlan{}, err
	}
	g.budgetEdit = nil
	return out, nil
}

// CancelBudgetEdit discards the scratch copy. The committed budget and the
// cash-flow analysis are untouched.
func (g *Graph) CancelBudgetEdit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.budgetEdit = nil
}

// EditActionPlan replaces the report's action plan. Derived artifacts are
// kept. Tasks without ids receive fresh ones.
func (g *Graph) EditActionPlan(plan []report.DepartmentPlan) ([]report.DepartmentPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.editActionPlanLocked(plan)
}

func (g *Graph) editActionPlanLocked(plan []report.DepartmentPlan) ([]report.DepartmentPlan, error) {
	if g.analysis == nil {
		return nil, ErrNoRoot
	}
	next := report.CloneActionPlan(plan)
	report.NormalizeActionPlan(next, g.newID)
	g.analysis.DepartmentalActionPlan = next
	return report.CloneActionPlan(next), nil
}

// BeginActionPlanEdit opens a scratch copy of the action plan. Task toggles
// are refused until the session is committed or cancelled.
func (g *Graph) BeginActionPlanEdit() ([]report.DepartmentPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.analysis == nil {
		return nil, ErrNoRoot
	}
	if g.planEdit == nil {
		g.planEdit = report.CloneActionPlan(g.analysis.DepartmentalActionPlan)
		if g.planEdit == nil {
			g.planEdit = []report.DepartmentPlan{}
		}
	}
	return report.CloneActionPlan(g.planEdit), nil
}

// ActionPlanEditing reports whether an action plan edit session is open.
func (g *Graph) ActionPlanEditing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.planEdit != nil
}

// CommitActionPlanEdit applies the scratch copy and closes the session.
func (g *Graph) CommitActionPlanEdit() ([]report.DepartmentPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.planEdit == nil {
		return nil, ErrNoEditSession
	}
	out, err := g.editActionPlanLocked(g.planEdit)
	if err != nil {
		return nil, err
	}
	g.planEdit = nil
	return out, nil
}

// CancelActionPlanEdit discards the scratch copy.
func (g *Graph) CancelActionPlanEdit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.planEdit = nil
}

// AddActionTask appends a placeholder task with a fresh id to the role
// addressed by dept and role. It edits the scratch copy when a session is
// open and the committed plan otherwise.
func (g *Graph) AddActionTask(dept, role int) (report.ActionTask, error) {
	task := report.ActionTask{ID: g.newID(), Text: report.DefaultTaskText}
	err := g.changeActionPlan(func(plan []report.DepartmentPlan) error {
		r, err := roleAt(plan, dept, role)
		if err != nil {
			return err
		}
		r.Tasks = append(r.Tasks, task)
		return nil
	})
	if err != nil {
		return report.ActionTask{}, err
	}
	return task, nil
}

// UpdateActionTask sets the text of a task.
func (g *Graph) UpdateActionTask(dept, role int, taskID, text string) error {
	return g.changeActionPlan(func(plan []report.DepartmentPlan) error {
		r, err := roleAt(plan, dept, role)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(r.Tasks, func(t report.ActionTask) bool { return t.ID == taskID })
		if i < 0 {
			return fmt.Errorf("task %q: %w", taskID, ErrNotFound)
		}
		r.Tasks[i].Text = text
		return nil
	})
}

// RemoveActionTask deletes a task.
func (g *Graph) RemoveActionTask(dept, role int, taskID string) error {
	return g.changeActionPlan(func(plan []report.DepartmentPlan) error {
		r, err := roleAt(plan, dept, role)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(r.Tasks, func(t report.ActionTask) bool { return t.ID == taskID })
		if i < 0 {
			return fmt.Errorf("task %q: %w", taskID, ErrNotFound)
		}
		r.Tasks = slices.Delete(r.Tasks, i, i+1)
		return nil
	})
}

func (g *Graph) changeActionPlan(fn func([]report.DepartmentPlan) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.analysis == nil {
		return ErrNoRoot
	}
	target := g.analysis.DepartmentalActionPlan
	if g.planEdit != nil {
		target = g.planEdit
	}
	return fn(target)
}

// ToggleActionTask flips the done flag of the committed task at
// (dept, role, task) and returns the new value. It is refused while an
// action plan edit session is open.
func (g *Graph) ToggleActionTask(dept, role, task int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.analysis == nil {
		return false, ErrNoRoot
	}
	if g.planEdit != nil {
		return false, ErrEditInProgress
	}
	r, err := roleAt(g.analysis.DepartmentalActionPlan, dept, role)
	if err != nil {
		return false, err
	}
	if task < 0 || task >= len(r.Tasks) {
		return false, fmt.Errorf("task %d/%d/%d: %w", dept, role, task, ErrNotFound)
	}
	r.Tasks[task].IsDone = !r.Tasks[task].IsDone
	return r.Tasks[task].IsDone, nil
}

func roleAt(plan []report.DepartmentPlan, dept, role int) (*report.RolePlan, error) {
	if dept < 0 || dept >= len(plan) {
		return nil, fmt.Errorf("department %d: %w", dept, ErrNotFound)
	}
	roles := plan[dept].Roles
	if role < 0 || role >= len(roles) {
		return nil, fmt.Errorf("role %d/%d: %w", dept, role, ErrNotFound)
	}
	return &roles[role], nil
}

// ToggleLaunchTask flips the done flag of a launch task.
func (g *Graph) ToggleLaunchTask(taskID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.launch == nil {
		return false, fmt.Errorf("%s: %w", SlotLaunch, ErrSlotEmpty)
	}
	for p := range g.launch.First14Days {
		tasks := g.launch.First14Days[p].Tasks
		for i := range tasks {
			if tasks[i].ID == taskID {
				tasks[i].IsDone = !tasks[i].IsDone
				return tasks[i].IsDone, nil
			}
		}
	}
	for i := range g.launch.SetupChecklist {
		item := &g.launch.SetupChecklist[i]
		if item.ID == taskID {
			item.IsDone = !item.IsDone
			return item.IsDone, nil
		}
	}
	return false, fmt.Errorf("launch item %q: %w", taskID, ErrNotFound)
}

// MarkPaymentPaid sets the status of the payment at index i to Paid.
func (g *Graph) MarkPaymentPaid(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cashFlow == nil {
		return fmt.Errorf("%s: %w", SlotCashFlow, ErrSlotEmpty)
	}
	if i < 0 || i >= len(g.cashFlow.UpcomingPayments) {
		return fmt.Errorf("payment %d: %w", i, ErrNotFound)
	}
	g.cashFlow.UpcomingPayments[i].Status = report.PaymentPaid
	return nil
}
