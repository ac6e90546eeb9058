package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasync-solution/bmc-analyst/internal/generator"
	"github.com/datasync-solution/bmc-analyst/internal/history"
	"github.com/datasync-solution/bmc-analyst/internal/metrics"
	"github.com/datasync-solution/bmc-analyst/internal/report"
	"github.com/datasync-solution/bmc-analyst/internal/report/reporttest"
	"github.com/datasync-solution/bmc-analyst/internal/session"
)

type stubGateway struct {
	mu   sync.Mutex
	fail map[report.Kind]error
}

func (g *stubGateway) Generate(ctx context.Context, req generator.Request) (report.Artifact, error) {
	g.mu.Lock()
	err := g.fail[req.Kind]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &generator.Error{Kind: req.Kind, Reason: generator.ReasonTransport, Attempts: 1, Err: err}
	}
	switch req.Kind {
	case report.KindAnalysis:
		return reporttest.Analysis(), nil
	case report.KindBudget:
		return reporttest.Budget(), nil
	case report.KindCashFlow:
		return reporttest.CashFlow(), nil
	case report.KindLaunch:
		return reporttest.Launch(), nil
	}
	return nil, fmt.Errorf("unexpected kind %q", req.Kind)
}

func newTestServer(t *testing.T) (http.Handler, *stubGateway) {
	t.Helper()
	gw := &stubGateway{fail: make(map[report.Kind]error)}
	sess := session.New(gw, history.NewStore(nil))
	srv := New(sess, Config{Port: 0, AllowedOrigins: []string{"http://localhost:5173"}}, metrics.NewCollector(), nil)
	return srv.Handler(), gw
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func submit(t *testing.T, h http.Handler) session.View {
	t.Helper()
	rec := do(t, h, http.MethodPut, "/api/draft/valuePropositions", FieldRequest{Value: "AI tutoring for kids"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[session.View](t, rec)
}

func TestState(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[session.View](t, rec)
	assert.Equal(t, "INPUT", string(v.Screen))
	assert.False(t, v.Submittable)
}

func TestSetField(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/draft/nickname", FieldRequest{Value: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/draft/channels", FieldRequest{Value: "Facebook"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"channels":"Facebook"`)

	rec = do(t, h, http.MethodPut, "/api/draft/channels", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	v := submit(t, h)
	assert.Equal(t, "RESULT", string(v.Screen))
	assert.NotNil(t, v.Results.Analysis)
	assert.Equal(t, 1, v.History)
}

func TestSubmitFailure(t *testing.T) {
	h, gw := newTestServer(t)
	gw.fail[report.KindAnalysis] = &generator.Error{Kind: report.KindAnalysis, Reason: generator.ReasonTimeout, Attempts: 1, Err: context.DeadlineExceeded}

	do(t, h, http.MethodPut, "/api/draft/valuePropositions", FieldRequest{Value: "AI tutoring"})
	rec := do(t, h, http.MethodPost, "/api/submit", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, generator.UserMessage(report.KindAnalysis), resp.Message)

	v := decodeBody[session.View](t, do(t, h, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "INPUT", string(v.Screen))
	assert.Equal(t, "AI tutoring", v.Draft.ValuePropositions)
	assert.Equal(t, resp.Message, v.LastError)
}

func TestNavigate(t *testing.T) {
	h, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/navigate/fly", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/navigate/viewRoadmap", nil).Code)

	submit(t, h)
	rec := do(t, h, http.MethodPost, "/api/navigate/viewRoadmap", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ROADMAP", string(decodeBody[session.View](t, rec).Screen))

	rec = do(t, h, http.MethodPost, "/api/budget", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[session.View](t, rec)
	assert.Equal(t, "BUDGET_PLAN", string(v.Screen))
	require.NotNil(t, v.Results.Budget)
	assert.Equal(t, v.Results.Budget.Capex+v.Results.Budget.Opex, v.Results.Budget.TotalBudget)
}

func TestGenerationSurvivesClientDisconnect(t *testing.T) {
	h, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	post := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	do(t, h, http.MethodPut, "/api/draft/valuePropositions", FieldRequest{Value: "AI tutoring for kids"})
	rec := post("/api/submit")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	do(t, h, http.MethodPost, "/api/navigate/viewRoadmap", nil)
	rec = post("/api/budget")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := decodeBody[session.View](t, do(t, h, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "BUDGET_PLAN", string(v.Screen))
	assert.NotNil(t, v.Results.Budget)
	assert.Empty(t, v.LastError)
}

func TestCreatedResponsesAreJSON(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)

	rec := do(t, h, http.MethodPost, "/api/draft/save", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodPost, "/api/action-plan/tasks", TaskRef{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestBudgetEditOffBudgetScreen(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)
	for _, path := range []string{"/api/navigate/viewRoadmap", "/api/budget", "/api/cashflow"} {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path, nil).Code, path)
	}

	plan := *reporttest.Budget()
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPut, "/api/budget", plan).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/budget/edit", nil).Code)

	v := decodeBody[session.View](t, do(t, h, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "CASH_FLOW_MANAGER", string(v.Screen))
	assert.NotNil(t, v.Results.CashFlow)
}

func TestBudgetEditClearsCashFlow(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)
	for _, path := range []string{"/api/navigate/viewRoadmap", "/api/budget", "/api/cashflow", "/api/navigate/back"} {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path, nil).Code, path)
	}

	rec := do(t, h, http.MethodGet, "/api/cashflow/simulate?cash=0&burn=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sim := decodeBody[report.Simulation](t, rec)
	assert.Equal(t, report.Runway{}, sim.Runway)

	plan := *reporttest.Budget()
	plan.Breakdown[0].Items[0].Cost = 8000
	rec = do(t, h, http.MethodPut, "/api/budget", plan)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 8000.0, decodeBody[BudgetResponse](t, rec).Plan.Opex)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/api/cashflow/simulate", nil).Code)
	v := decodeBody[session.View](t, do(t, h, http.MethodGet, "/api/state", nil))
	assert.Nil(t, v.Results.CashFlow)
}

func TestBudgetEditSession(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)
	do(t, h, http.MethodPost, "/api/navigate/viewRoadmap", nil)
	do(t, h, http.MethodPost, "/api/budget", nil)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/budget/edit/commit", nil).Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/budget/edit", nil).Code)
	rec := do(t, h, http.MethodPost, "/api/budget/edit/categories/0/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[BudgetResponse](t, rec)
	assert.True(t, resp.Editing)
	last := len(resp.Plan.Breakdown[0].Items) - 1

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/api/budget/edit/categories/0/items/%d", last),
		report.BudgetItem{Item: "Laptop", Cost: 900, Type: "One-time"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/budget/edit/categories/x/items", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/budget/edit/categories/9/items/0", nil).Code)

	rec = do(t, h, http.MethodPost, "/api/budget/edit/commit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[BudgetResponse](t, rec)
	assert.False(t, resp.Editing)
	assert.Equal(t, resp.Plan.Capex+resp.Plan.Opex, resp.Plan.TotalBudget)
}

func TestActionPlan(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)

	rec := do(t, h, http.MethodPost, "/api/action-plan/toggle", ToggleRequest{Task: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[ToggleResponse](t, rec).IsDone)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/action-plan/toggle", ToggleRequest{Task: 99}).Code)

	rec = do(t, h, http.MethodPost, "/api/action-plan/tasks", TaskRef{})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decodeBody[report.ActionTask](t, rec)
	require.NotEmpty(t, task.ID)

	rec = do(t, h, http.MethodPut, "/api/action-plan/tasks/"+task.ID, TaskTextRequest{Text: "Hire a designer"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/action-plan/tasks/"+task.ID+"?department=0&role=0", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/action-plan/tasks/"+task.ID+"?department=0&role=0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/action-plan/edit", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/action-plan/toggle", ToggleRequest{}).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/action-plan/edit", nil).Code)
}

func TestLaunchToggle(t *testing.T) {
	h, _ := newTestServer(t)
	submit(t, h)
	do(t, h, http.MethodPost, "/api/navigate/viewActionPlan", nil)
	rec := do(t, h, http.MethodPost, "/api/launch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	launch := decodeBody[session.View](t, rec).Results.Launch
	require.NotNil(t, launch)

	id := launch.SetupChecklist[0].ID
	rec = do(t, h, http.MethodPost, "/api/launch/toggle", LaunchToggleRequest{ID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[ToggleResponse](t, rec).IsDone)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/launch/toggle", LaunchToggleRequest{ID: "nope"}).Code)
}

func TestHistory(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/draft/save", nil).Code)

	do(t, h, http.MethodPut, "/api/draft/customerSegments", FieldRequest{Value: "Parents"})
	rec = do(t, h, http.MethodPost, "/api/draft/save", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeBody[history.Item](t, rec)

	do(t, h, http.MethodPut, "/api/draft/customerSegments", FieldRequest{Value: "Teachers"})
	rec = do(t, h, http.MethodPost, "/api/history/"+item.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Parents", decodeBody[session.View](t, rec).Draft.CustomerSegments)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/history/missing/restore", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/history/"+item.ID, nil).Code)
	assert.JSONEq(t, "[]", do(t, h, http.MethodGet, "/api/history", nil).Body.String())
}

func TestGoals(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/goals?stage=Existing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"Expansion"`)
	assert.Contains(t, rec.Body.String(), `"RMG"`)
}

func TestCORS(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/state", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/state", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodGet, "/api/state", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="GET /api/state"`), rec.Body.String())
}

func TestFailMapping(t *testing.T) {
	srv := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		err  error
		want int
	}{
		{session.ErrNotSubmittable, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", report.ErrSchema), http.StatusBadRequest},
		{&generator.Error{Kind: report.KindBudget, Reason: generator.ReasonUnavailable}, http.StatusBadGateway},
		{history.ErrNotFound, http.StatusNotFound},
		{session.ErrSuperseded, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.fail(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	srv.fail(rec, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
