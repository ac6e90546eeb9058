package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/graph"
	"github.com/datasync-solution/bmc-analyst/internal/history"
	"github.com/datasync-solution/bmc-analyst/internal/navigator"
	"github.com/datasync-solution/bmc-analyst/internal/report"
	"github.com/datasync-solution/bmc-analyst/internal/session"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, s.session.View())
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]any{
		"goals":      canvas.GoalsFor(r.URL.Query().Get("stage")),
		"industries": canvas.Industries,
	})
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	field, err := canvas.ParseField(r.PathValue("field"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req FieldRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.session.SetField(field, req.Value)
	writeAPIJSON(w, s.session.Draft())
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	item, ok := s.session.SaveDraft()
	if !ok {
		s.fail(w, session.ErrNotSubmittable)
		return
	}
	writeAPIJSONStatus(w, http.StatusCreated, item)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Submit(detach(r)); err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSON(w, s.session.View())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	event, err := navigator.ParseEvent(r.PathValue("event"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.navigate(w, r, event)
}

func (s *Server) handleOpen(event navigator.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.navigate(w, r, event)
	}
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, event navigator.Event) {
	if _, err := s.session.Navigate(detach(r), event); err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSON(w, s.session.View())
}

// Budget

func (s *Server) handleEditBudget(w http.ResponseWriter, r *http.Request) {
	var plan report.BudgetPlan
	if !s.decode(w, r, &plan) {
		return
	}
	s.writeBudget(w)(s.session.EditBudget(plan))
}

func (s *Server) handleBeginBudgetEdit(w http.ResponseWriter, r *http.Request) {
	s.writeBudget(w)(s.session.BeginBudgetEdit())
}

func (s *Server) handleReplaceBudgetDraft(w http.ResponseWriter, r *http.Request) {
	var plan report.BudgetPlan
	if !s.decode(w, r, &plan) {
		return
	}
	s.writeBudget(w)(s.session.Graph().ReplaceBudgetDraft(plan))
}

func (s *Server) handleCommitBudgetEdit(w http.ResponseWriter, r *http.Request) {
	s.writeBudget(w)(s.session.CommitBudgetEdit())
}

func (s *Server) handleCancelBudgetEdit(w http.ResponseWriter, r *http.Request) {
	s.session.Graph().CancelBudgetEdit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBudgetCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeBudget(w)(s.session.Graph().AddBudgetCategory(req.Name))
}

func (s *Server) handleAddBudgetItem(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.pathInt(w, r, "cat")
	if !ok {
		return
	}
	s.writeBudget(w)(s.session.Graph().AddBudgetItem(cat))
}

func (s *Server) handleUpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.pathInt(w, r, "cat")
	if !ok {
		return
	}
	item, ok := s.pathInt(w, r, "item")
	if !ok {
		return
	}
	var value report.BudgetItem
	if !s.decode(w, r, &value) {
		return
	}
	s.writeBudget(w)(s.session.Graph().UpdateBudgetItem(cat, item, value))
}

func (s *Server) handleRemoveBudgetItem(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.pathInt(w, r, "cat")
	if !ok {
		return
	}
	item, ok := s.pathInt(w, r, "item")
	if !ok {
		return
	}
	s.writeBudget(w)(s.session.Graph().RemoveBudgetItem(cat, item))
}

func (s *Server) writeBudget(w http.ResponseWriter) func(report.BudgetPlan, error) {
	return func(plan report.BudgetPlan, err error) {
		if err != nil {
			s.fail(w, err)
			return
		}
		writeAPIJSON(w, BudgetResponse{Plan: plan, Editing: s.session.Graph().BudgetEditing()})
	}
}

// Action plan

func (s *Server) handleEditActionPlan(w http.ResponseWriter, r *http.Request) {
	var plan []report.DepartmentPlan
	if !s.decode(w, r, &plan) {
		return
	}
	s.writeActionPlan(w)(s.session.Graph().EditActionPlan(plan))
}

func (s *Server) handleToggleActionTask(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	done, err := s.session.Graph().ToggleActionTask(req.Department, req.Role, req.Task)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSON(w, ToggleResponse{IsDone: done})
}

func (s *Server) handleAddActionTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRef
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.session.Graph().AddActionTask(req.Department, req.Role)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSONStatus(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateActionTask(w http.ResponseWriter, r *http.Request) {
	var req TaskTextRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.session.Graph().UpdateActionTask(req.Department, req.Role, r.PathValue("id"), req.Text); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveActionTask(w http.ResponseWriter, r *http.Request) {
	dept, err := strconv.Atoi(r.URL.Query().Get("department"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("department must be an integer"))
		return
	}
	role, err := strconv.Atoi(r.URL.Query().Get("role"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("role must be an integer"))
		return
	}
	if err := s.session.Graph().RemoveActionTask(dept, role, r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBeginActionPlanEdit(w http.ResponseWriter, r *http.Request) {
	s.writeActionPlan(w)(s.session.Graph().BeginActionPlanEdit())
}

func (s *Server) handleCommitActionPlanEdit(w http.ResponseWriter, r *http.Request) {
	s.writeActionPlan(w)(s.session.Graph().CommitActionPlanEdit())
}

func (s *Server) handleCancelActionPlanEdit(w http.ResponseWriter, r *http.Request) {
	s.session.Graph().CancelActionPlanEdit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeActionPlan(w http.ResponseWriter) func([]report.DepartmentPlan, error) {
	return func(plan []report.DepartmentPlan, err error) {
		if err != nil {
			s.fail(w, err)
			return
		}
		writeAPIJSON(w, plan)
	}
}

// Launch and cash flow

func (s *Server) handleToggleLaunchTask(w http.ResponseWriter, r *http.Request) {
	var req LaunchToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	done, err := s.session.Graph().ToggleLaunchTask(req.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSON(w, ToggleResponse{IsDone: done})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	cf := s.session.Graph().Snapshot().CashFlow
	if cf == nil {
		s.fail(w, graph.ErrSlotEmpty)
		return
	}
	cash, err := queryFloat(r, "cash", cf.CurrentCashPosition)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	burn, err := queryFloat(r, "burn", cf.BurnRate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeAPIJSON(w, report.Simulate(cf, cash, burn))
}

func (s *Server) handleMarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
	i, ok := s.pathInt(w, r, "index")
	if !ok {
		return
	}
	if err := s.session.Graph().MarkPaymentPaid(i); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	items := s.session.History().Items()
	if items == nil {
		items = []history.Item{}
	}
	writeAPIJSON(w, items)
}

func (s *Server) handleRestoreHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Restore(r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	writeAPIJSON(w, s.session.View())
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.session.DeleteHistory(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// helpers

// detach keeps the request's values but drops its cancellation. A client
// disconnect must not abort a generation; the generator timeout bounds it.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func (s *Server) pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New(name+" must be an integer"))
		return 0, false
	}
	return n, true
}

func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, generator.ErrGeneration):
		status = http.StatusBadGateway
	case errors.Is(err, session.ErrNotSubmittable), errors.Is(err, report.ErrSchema):
		status = http.StatusBadRequest
	case errors.Is(err, history.ErrNotFound), errors.Is(err, graph.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, navigator.ErrTransitionRefused),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, graph.ErrNoRoot),
		errors.Is(err, graph.ErrMissingDependency),
		errors.Is(err, graph.ErrInFlight),
		errors.Is(err, graph.ErrStaleResult),
		errors.Is(err, graph.ErrSlotEmpty),
		errors.Is(err, graph.ErrEditInProgress),
		errors.Is(err, graph.ErrNoEditSession):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var genErr *generator.Error
	if errors.As(err, &genErr) {
		resp.Message = genErr.UserMessage()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeAPIJSON(w http.ResponseWriter, data any) {
	writeAPIJSONStatus(w, http.StatusOK, data)
}

func writeAPIJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
