package engine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/decision"
)

func setupRouter(t *testing.T) (chi.Router, *Engine, *audit.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	trail := audit.NewStore(database)
	e, _ := newTestEngine(t, testOptions())
	r := chi.NewRouter()
	RegisterRoutes(r, e, trail)
	return r, e, trail
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHTTPActivateAndStatus(t *testing.T) {
	r, e, trail := setupRouter(t)

	rec := do(t, r, http.MethodPost, "/api/engine/activate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !e.IsActive() {
		t.Fatal("engine not active after POST /activate")
	}

	rec = do(t, r, http.MethodGet, "/api/engine/status", "")
	var s Status
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Active || s.Criteria.MinConfidence != 85 {
		t.Errorf("status = %+v", s)
	}

	entries, err := trail.Query(t.Context(), audit.QueryFilter{Action: audit.ActionEngineActivated})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ActorID != "alice" {
		t.Errorf("audit entries = %+v", entries)
	}

	// A second activation changes nothing and is not audited.
	do(t, r, http.MethodPost, "/api/engine/activate", "")
	entries, _ = trail.Query(t.Context(), audit.QueryFilter{Action: audit.ActionEngineActivated})
	if len(entries) != 1 {
		t.Errorf("expected 1 activation entry, got %d", len(entries))
	}

	rec = do(t, r, http.MethodPost, "/api/engine/deactivate", "")
	if rec.Code != http.StatusOK || e.IsActive() {
		t.Errorf("deactivate: code %d active %v", rec.Code, e.IsActive())
	}
}

func TestHTTPPatchCriteria(t *testing.T) {
	r, e, trail := setupRouter(t)

	rec := do(t, r, http.MethodPatch, "/api/engine/criteria", `{"min_confidence": 75}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got decision.Criteria
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MinConfidence != 75 || got.MaxRiskLevel != 30 {
		t.Errorf("criteria = %+v", got)
	}
	if e.Criteria().MinConfidence != 75 {
		t.Error("engine criteria not updated")
	}

	entries, _ := trail.Query(t.Context(), audit.QueryFilter{Scope: audit.ScopeCriteria})
	if len(entries) != 1 {
		t.Fatalf("expected 1 criteria entry, got %d", len(entries))
	}
	if !strings.Contains(entries[0].PreviousValue, `"min_confidence":85`) ||
		!strings.Contains(entries[0].NewValue, `"min_confidence":75`) {
		t.Errorf("audit values = %s -> %s", entries[0].PreviousValue, entries[0].NewValue)
	}

	tests := []struct {
		name string
		body string
	}{
		{"out of range", `{"max_risk_level": 150}`},
		{"negative weight", `{"priority_weights": {"critical": -1, "high": 75, "medium": 50, "low": 25}}`},
		{"unknown field", `{"min_confidense": 10}`},
		{"empty patch", `{}`},
		{"malformed", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPatch, "/api/engine/criteria", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
	if e.Criteria().MaxRiskLevel != 30 {
		t.Error("rejected patch changed the criteria")
	}
}

func TestHTTPExecuteDecision(t *testing.T) {
	r, e, trail := setupRouter(t)
	seed(e, pendingDecision("decision_1", 100, 0))

	rec := do(t, r, http.MethodPost, "/api/engine/decisions/decision_1/execute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool              `json:"success"`
		Decision decision.Decision `json:"decision"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Decision.Status != decision.StatusCompleted {
		t.Errorf("response = %+v", resp)
	}

	// Executing a terminal decision is a conflict.
	rec = do(t, r, http.MethodPost, "/api/engine/decisions/decision_1/execute", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("re-execute status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = do(t, r, http.MethodPost, "/api/engine/decisions/missing/execute", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	entries, _ := trail.Query(t.Context(), audit.QueryFilter{Scope: audit.ScopeDecision, ScopeID: "decision_1"})
	if len(entries) != 1 {
		t.Errorf("expected 1 decision audit entry, got %d", len(entries))
	}
}

func TestHTTPEvaluate(t *testing.T) {
	r, _, _ := setupRouter(t)

	body := `{"type":"security","priority":"critical","confidence":92,"risk_level":20,"impact":80}`
	rec := do(t, r, http.MethodPost, "/api/engine/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ev decision.Evaluation
	if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ev.Approved || ev.Score != 110 {
		t.Errorf("evaluation = %+v, want approved with score 110", ev)
	}

	rec = do(t, r, http.MethodPost, "/api/engine/evaluate", `{"type":"weather","priority":"low"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHTTPTickListAndClear(t *testing.T) {
	r, e, _ := setupRouter(t)

	for range 3 {
		rec := do(t, r, http.MethodPost, "/api/engine/tick", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("tick status = %d", rec.Code)
		}
	}

	rec := do(t, r, http.MethodGet, "/api/engine/decisions?status=pending&limit=2", "")
	var ds []decision.Decision
	if err := json.NewDecoder(rec.Body).Decode(&ds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("listed %d decisions, want 2", len(ds))
	}

	rec = do(t, r, http.MethodGet, "/api/engine/decisions/"+ds[0].ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/api/engine/decisions/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = do(t, r, http.MethodDelete, "/api/engine/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if len(e.Decisions()) != 0 {
		t.Error("history not cleared")
	}
	if m := e.Metrics(); m.TotalDecisions != 3 || m.PendingDecisions != 0 {
		t.Errorf("metrics after clear = %+v", m)
	}
}

func TestHTTPModes(t *testing.T) {
	r, e, _ := setupRouter(t)

	rec := do(t, r, http.MethodPost, "/api/engine/auto-mode", "")
	var auto map[string]bool
	json.NewDecoder(rec.Body).Decode(&auto)
	if !auto["auto_mode"] || !e.Status().AutoMode {
		t.Errorf("auto mode not enabled: %v", auto)
	}

	rec = do(t, r, http.MethodPut, "/api/engine/learning-mode", `{"enabled": false}`)
	if rec.Code != http.StatusOK || e.Status().LearningMode {
		t.Errorf("learning mode: code %d, on %v", rec.Code, e.Status().LearningMode)
	}

	rec = do(t, r, http.MethodPut, "/api/engine/learning-mode", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing enabled status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHTTPGeneratePreview(t *testing.T) {
	r, e, _ := setupRouter(t)

	rec := do(t, r, http.MethodPost, "/api/engine/generate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Decision   decision.Decision   `json:"decision"`
		Evaluation decision.Evaluation `json:"evaluation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Decision.ID == "" || resp.Evaluation.Reason == "" {
		t.Errorf("preview = %+v", resp)
	}
	if len(e.Decisions()) != 0 {
		t.Error("preview was retained")
	}
}
