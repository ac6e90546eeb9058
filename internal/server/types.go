package server

import "github.com/datasync-solution/bmc-analyst/internal/report"

// FieldRequest is the payload for PUT /api/draft/{field}.
type FieldRequest struct {
	Value string `json:"value"`
}

// TaskRef addresses a role inside the action plan.
type TaskRef struct {
	Department int `json:"department"`
	Role       int `json:"role"`
}

// ToggleRequest is the payload for POST /api/action-plan/toggle.
type ToggleRequest struct {
	TaskRef
	Task int `json:"task"`
}

// TaskTextRequest is the payload for PUT /api/action-plan/tasks/{id}.
type TaskTextRequest struct {
	TaskRef
	Text string `json:"text"`
}

// LaunchToggleRequest is the payload for POST /api/launch/toggle.
type LaunchToggleRequest struct {
	ID string `json:"id"`
}

// CategoryRequest is the payload for POST /api/budget/edit/categories.
type CategoryRequest struct {
	Name string `json:"name"`
}

// ToggleResponse reports the state after a toggle.
type ToggleResponse struct {
	IsDone bool `json:"isDone"`
}

// ErrorResponse is the body of every failed request. Message is the
// localized text to show the user, when there is one.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BudgetResponse is returned by every budget operation. Editing reports
// whether an edit session is still open.
type BudgetResponse struct {
	Plan    report.BudgetPlan `json:"plan"`
	Editing bool              `json:"editing"`
}
