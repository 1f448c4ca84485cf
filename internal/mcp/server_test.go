package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

func newTestEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()
	opts.Source = decision.NewSource(11)
	opts.TickInterval = time.Hour
	opts.GenerateProbability = 1
	opts.PreCheckDelay = 0
	opts.SimulatedSecond = 0
	eng := engine.New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Close(ctx)
	})
	return eng
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"get_engine_status", getEngineStatusTool, "get_engine_status"},
		{"control_engine", controlEngineTool, "control_engine"},
		{"list_decisions", listDecisionsTool, "list_decisions"},
		{"get_decision", getDecisionTool, "get_decision"},
		{"evaluate_decision", evaluateDecisionTool, "evaluate_decision"},
		{"execute_decision", executeDecisionTool, "execute_decision"},
		{"update_criteria", updateCriteriaTool, "update_criteria"},
		{"generate_preview", generatePreviewTool, "generate_preview"},
		{"search_archive", searchArchiveTool, "search_archive"},
		{"get_archive_stats", getArchiveStatsTool, "get_archive_stats"},
		{"get_decision_trail", getDecisionTrailTool, "get_decision_trail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.engine != eng {
		t.Error("engine not set correctly")
	}
}

func TestHandleGetEngineStatus(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	out := text(t, call(t, srv.handleGetEngineStatus, nil))
	for _, want := range []string{"Engine: inactive", "Min confidence: 85%", "Total decisions: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestHandleControlEngine(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	result := call(t, srv.handleControlEngine, map[string]any{"action": "activate"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !eng.IsActive() {
		t.Fatal("engine not activated")
	}

	out := text(t, call(t, srv.handleControlEngine, map[string]any{"action": "auto_on"}))
	if !strings.Contains(out, "fully autonomous") {
		t.Errorf("expected fully autonomous status, got:\n%s", out)
	}

	out = text(t, call(t, srv.handleControlEngine, map[string]any{"action": "activate"}))
	if !strings.Contains(out, "No change") {
		t.Errorf("second activate should be a no-op, got:\n%s", out)
	}

	call(t, srv.handleControlEngine, map[string]any{"action": "deactivate"})
	if st := eng.Status(); st.Active || st.AutoMode {
		t.Errorf("after deactivate: %+v", st)
	}

	if !call(t, srv.handleControlEngine, map[string]any{}).IsError {
		t.Error("expected error for missing action")
	}
	if !call(t, srv.handleControlEngine, map[string]any{"action": "reboot"}).IsError {
		t.Error("expected error for unknown action")
	}
}

func TestHandleListAndGetDecision(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)
	ctx := context.Background()

	out := text(t, call(t, srv.handleListDecisions, nil))
	if !strings.Contains(out, "No decisions found") {
		t.Errorf("expected empty message, got %q", out)
	}

	var last decision.Decision
	for i := 0; i < 5; i++ {
		last, _ = eng.Tick(ctx)
	}

	out = text(t, call(t, srv.handleListDecisions, map[string]any{"limit": 3}))
	if !strings.Contains(out, "Found 3 decision(s)") {
		t.Errorf("expected 3 decisions, got:\n%s", out)
	}

	out = text(t, call(t, srv.handleListDecisions, map[string]any{"status": "completed"}))
	if !strings.Contains(out, "No decisions found") {
		t.Errorf("no decision should be completed yet, got:\n%s", out)
	}

	out = text(t, call(t, srv.handleGetDecision, map[string]any{"id": last.ID}))
	if !strings.Contains(out, last.ID) || !strings.Contains(out, last.Description) {
		t.Errorf("get_decision output:\n%s", out)
	}

	if !call(t, srv.handleGetDecision, map[string]any{"id": "decision_missing"}).IsError {
		t.Error("expected error for unknown id")
	}
	if !call(t, srv.handleGetDecision, map[string]any{}).IsError {
		t.Error("expected error for missing id")
	}
}

func TestHandleEvaluateDecision(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	tests := []struct {
		name    string
		args    map[string]any
		isError bool
		want    string
	}{
		{
			name: "approved security decision",
			args: map[string]any{"type": "security", "priority": "critical", "confidence": 95.0, "risk_level": 10.0, "impact": 80.0},
			want: "Verdict: approved\nScore: 110.0",
		},
		{
			name: "derived risk rejects",
			args: map[string]any{"type": "development", "priority": "low", "confidence": 60.0},
			want: "Verdict: rejected",
		},
		{
			name:    "invalid type",
			args:    map[string]any{"type": "marketing", "priority": "low", "confidence": 60.0},
			isError: true,
		},
		{
			name:    "invalid priority",
			args:    map[string]any{"type": "security", "priority": "urgent", "confidence": 60.0},
			isError: true,
		},
		{
			name:    "missing confidence",
			args:    map[string]any{"type": "security", "priority": "low"},
			isError: true,
		},
		{
			name:    "fractional confidence",
			args:    map[string]any{"type": "security", "priority": "low", "confidence": 60.5},
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, srv.handleEvaluateDecision, tt.args)
			if result.IsError != tt.isError {
				t.Fatalf("IsError = %v, want %v: %v", result.IsError, tt.isError, result.Content)
			}
			if tt.want != "" && !strings.Contains(text(t, result), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, text(t, result))
			}
		})
	}

	if eng.Metrics().TotalDecisions != 0 {
		t.Error("evaluate_decision must not change engine state")
	}
}

func TestHandleExecuteDecision(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	d, _ := eng.Tick(context.Background())

	result := call(t, srv.handleExecuteDecision, map[string]any{"id": d.ID})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	out := text(t, result)
	if !strings.Contains(out, "Execution succeeded") && !strings.Contains(out, "Execution failed") {
		t.Errorf("unexpected output:\n%s", out)
	}
	got, _ := eng.Decision(d.ID)
	if !got.Status.Terminal() {
		t.Errorf("status after execute = %s", got.Status)
	}

	if !call(t, srv.handleExecuteDecision, map[string]any{"id": d.ID}).IsError {
		t.Error("expected error re-executing a finished decision")
	}
	if !call(t, srv.handleExecuteDecision, map[string]any{"id": "decision_missing"}).IsError {
		t.Error("expected error for unknown id")
	}
}

func TestHandleUpdateCriteria(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	result := call(t, srv.handleUpdateCriteria, map[string]any{
		"min_confidence":         70.0,
		"require_human_approval": true,
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	c := eng.Criteria()
	if c.MinConfidence != 70 || !c.RequireHumanApproval {
		t.Errorf("criteria = %+v", c)
	}
	if c.MaxRiskLevel != 30 {
		t.Errorf("MaxRiskLevel changed to %d", c.MaxRiskLevel)
	}

	bad := []map[string]any{
		{},
		{"max_risk_level": 150.0},
		{"min_confidence": "high"},
		{"require_human_approval": "yes"},
	}
	for _, args := range bad {
		if !call(t, srv.handleUpdateCriteria, args).IsError {
			t.Errorf("expected error for %v", args)
		}
	}
	if eng.Criteria() != c {
		t.Error("rejected updates must not change criteria")
	}
}

func TestHandleGeneratePreview(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	out := text(t, call(t, srv.handleGeneratePreview, nil))
	if !strings.Contains(out, "Decision decision_") || !strings.Contains(out, "Verdict:") {
		t.Errorf("preview output:\n%s", out)
	}
	if len(eng.Decisions()) != 0 {
		t.Error("generate_preview must not retain the decision")
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		args    map[string]any
		want    *int
		wantErr bool
	}{
		{map[string]any{}, nil, false},
		{map[string]any{"n": nil}, nil, false},
		{map[string]any{"n": 42.0}, ptr(42), false},
		{map[string]any{"n": 7}, ptr(7), false},
		{map[string]any{"n": 1.5}, nil, true},
		{map[string]any{"n": "3"}, nil, true},
	}
	for _, tt := range tests {
		got, err := intArg(tt.args, "n")
		if (err != nil) != tt.wantErr {
			t.Errorf("intArg(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("intArg(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func ptr(n int) *int { return &n }

// --- record tools ---

func newTestServerWithRecords(t *testing.T) (*Server, *engine.Engine, *audit.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	arch := archive.NewStore(database)
	trail := audit.NewStore(database)

	opts := engine.DefaultOptions()
	opts.Recorder = arch
	eng := newTestEngine(t, opts)

	srv := NewServer(eng)
	srv.SetRecordDeps(RecordDeps{Archive: arch, Audit: trail})
	return srv, eng, trail
}

func TestHandleSearchArchive(t *testing.T) {
	srv, eng, _ := newTestServerWithRecords(t)
	ctx := context.Background()

	out := text(t, call(t, srv.handleSearchArchive, nil))
	if !strings.Contains(out, "No archived decisions") {
		t.Errorf("expected empty archive, got %q", out)
	}

	for i := 0; i < 4; i++ {
		eng.Tick(ctx)
	}
	eng.ClearHistory(ctx)

	out = text(t, call(t, srv.handleSearchArchive, map[string]any{"status": "pending"}))
	if !strings.Contains(out, "Found 4 archived decision(s)") {
		t.Errorf("archive should outlive ClearHistory, got:\n%s", out)
	}

	out = text(t, call(t, srv.handleGetArchiveStats, nil))
	if !strings.Contains(out, "Archived decisions: 4") || !strings.Contains(out, "pending: 4") {
		t.Errorf("stats output:\n%s", out)
	}
}

func TestAgentChangesAreAudited(t *testing.T) {
	srv, eng, trail := newTestServerWithRecords(t)
	ctx := context.Background()

	call(t, srv.handleControlEngine, map[string]any{"action": "activate"})
	call(t, srv.handleUpdateCriteria, map[string]any{"max_risk_level": 40.0})

	d, _ := eng.Tick(ctx)
	call(t, srv.handleExecuteDecision, map[string]any{"id": d.ID})

	entries, err := trail.Query(ctx, audit.QueryFilter{ActorID: AgentID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.ActorType != audit.ActorAgent {
			t.Errorf("ActorType = %s, want agent", e.ActorType)
		}
	}

	out := text(t, call(t, srv.handleGetDecisionTrail, map[string]any{"decision_id": d.ID}))
	if !strings.Contains(out, string(audit.ActionDecisionExecuted)) {
		t.Errorf("decision trail:\n%s", out)
	}

	out = text(t, call(t, srv.handleGetDecisionTrail, nil))
	if !strings.Contains(out, string(audit.ActionCriteriaUpdated)) || !strings.Contains(out, string(audit.ActionEngineActivated)) {
		t.Errorf("recent trail:\n%s", out)
	}
}

func TestNoAuditWithoutStore(t *testing.T) {
	eng := newTestEngine(t, engine.DefaultOptions())
	srv := NewServer(eng)

	// Must not panic without record deps.
	call(t, srv.handleUpdateCriteria, map[string]any{"min_confidence": 80.0})
	if eng.Criteria().MinConfidence != 80 {
		t.Error("criteria not updated")
	}
}
