package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/goals", s.handleGoals)

	// Draft
	mux.HandleFunc("PUT /api/draft/{field}", s.handleSetField)
	mux.HandleFunc("POST /api/draft/save", s.handleSaveDraft)
	mux.HandleFunc("POST /api/submit", s.handleSubmit)

	// Navigation
	mux.HandleFunc("POST /api/navigate/{event}", s.handleNavigate)
	mux.HandleFunc("POST /api/launch", s.handleOpen("launch"))
	mux.HandleFunc("POST /api/budget", s.handleOpen("generateBudget"))
	mux.HandleFunc("POST /api/cashflow", s.handleOpen("viewRiskManager"))

	// Budget
	mux.HandleFunc("PUT /api/budget", s.handleEditBudget)
	mux.HandleFunc("POST /api/budget/edit", s.handleBeginBudgetEdit)
	mux.HandleFunc("PUT /api/budget/edit", s.handleReplaceBudgetDraft)
	mux.HandleFunc("POST /api/budget/edit/commit", s.handleCommitBudgetEdit)
	mux.HandleFunc("DELETE /api/budget/edit", s.handleCancelBudgetEdit)
	mux.HandleFunc("POST /api/budget/edit/categories", s.handleAddBudgetCategory)
	mux.HandleFunc("POST /api/budget/edit/categories/{cat}/items", s.handleAddBudgetItem)
	mux.HandleFunc("PUT /api/budget/edit/categories/{cat}/items/{item}", s.handleUpdateBudgetItem)
	mux.HandleFunc("DELETE /api/budget/edit/categories/{cat}/items/{item}", s.handleRemoveBudgetItem)

	// Action plan
	mux.HandleFunc("PUT /api/action-plan", s.handleEditActionPlan)
	mux.HandleFunc("POST /api/action-plan/toggle", s.handleToggleActionTask)
	mux.HandleFunc("POST /api/action-plan/tasks", s.handleAddActionTask)
	mux.HandleFunc("PUT /api/action-plan/tasks/{id}", s.handleUpdateActionTask)
	mux.HandleFunc("DELETE /api/action-plan/tasks/{id}", s.handleRemoveActionTask)
	mux.HandleFunc("POST /api/action-plan/edit", s.handleBeginActionPlanEdit)
	mux.HandleFunc("POST /api/action-plan/edit/commit", s.handleCommitActionPlanEdit)
	mux.HandleFunc("DELETE /api/action-plan/edit", s.handleCancelActionPlanEdit)

	// Launch and cash flow
	mux.HandleFunc("POST /api/launch/toggle", s.handleToggleLaunchTask)
	mux.HandleFunc("GET /api/cashflow/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/cashflow/payments/{index}/paid", s.handleMarkPaymentPaid)

	// History
	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("POST /api/history/{id}/restore", s.handleRestoreHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleDeleteHistory)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.corsMiddleware(s.metricsMiddleware(mux))
}
