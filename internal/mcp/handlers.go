package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// handleGetEngineStatus reports engine flags, criteria and metrics.
func (s *Server) handleGetEngineStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatStatus(s.engine.Status())), nil
}

// handleControlEngine activates, deactivates or toggles auto mode.
func (s *Server) handleControlEngine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: action"), nil
	}

	before := s.engine.Status()
	var (
		changed     bool
		auditAction audit.Action
	)
	switch action {
	case "activate":
		changed = s.engine.Activate(ctx)
		auditAction = audit.ActionEngineActivated
	case "deactivate":
		changed = s.engine.Deactivate(ctx)
		auditAction = audit.ActionEngineDeactivated
	case "auto_on", "auto_off":
		enabled := action == "auto_on"
		changed = before.AutoMode != enabled
		s.engine.SetAutoMode(ctx, enabled)
		auditAction = audit.ActionAutoModeChanged
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}

	after := s.engine.Status()
	if changed {
		s.audit(ctx, audit.Entry{
			Action:  auditAction,
			Scope:   audit.ScopeEngine,
			Summary: fmt.Sprintf("Agent requested %s", action),
		}, flags(before), flags(after))
	}

	var sb strings.Builder
	if changed {
		sb.WriteString(fmt.Sprintf("Applied %s.\n\n", action))
	} else {
		sb.WriteString(fmt.Sprintf("No change: engine already in the requested state for %s.\n\n", action))
	}
	sb.WriteString(formatStatus(after))
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListDecisions lists retained decisions, optionally by status.
func (s *Server) handleListDecisions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := decision.Status(request.GetString("status", ""))
	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var matched []decision.Decision
	for _, d := range s.engine.Decisions() {
		if status != "" && d.Status != status {
			continue
		}
		matched = append(matched, d)
		if len(matched) >= limit {
			break
		}
	}

	if len(matched) == 0 {
		return mcp.NewToolResultText("No decisions found. Activate the engine or call generate_preview to see sample decisions."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d decision(s):\n", len(matched)))
	for _, d := range matched {
		sb.WriteString(fmt.Sprintf("\n- %s [%s] %s/%s confidence %d%% risk %d%%: %s",
			d.ID, d.Status, d.Type, d.Priority, d.Confidence, d.RiskLevel, d.Description))
	}
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetDecision returns one decision with its execution log.
func (s *Server) handleGetDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	d, ok := s.engine.Decision(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("decision %q not found", id)), nil
	}
	return mcp.NewToolResultText(formatDecision(d, nil)), nil
}

// handleEvaluateDecision scores a hypothetical decision.
func (s *Server) handleEvaluateDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := decision.Type(request.GetString("type", ""))
	if !typ.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid type %q", typ)), nil
	}
	priority := decision.Priority(request.GetString("priority", ""))
	if !priority.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid priority %q", priority)), nil
	}

	args := request.GetArguments()
	confidence, err := intArg(args, "confidence")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if confidence == nil {
		return mcp.NewToolResultError("missing required parameter: confidence"), nil
	}
	risk, err := intArg(args, "risk_level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	impact, err := intArg(args, "impact")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d := decision.Decision{
		Type:       typ,
		Priority:   priority,
		Confidence: *confidence,
		RiskLevel:  decision.RiskFor(*confidence, priority),
		Impact:     50,
	}
	if risk != nil {
		d.RiskLevel = *risk
	}
	if impact != nil {
		d.Impact = *impact
	}

	ev := s.engine.Evaluate(d)
	return mcp.NewToolResultText(formatEvaluation(ev)), nil
}

// handleExecuteDecision runs a pending or approved decision to completion.
func (s *Server) handleExecuteDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	succeeded, err := s.engine.ManualExecute(ctx, id)
	switch {
	case errors.Is(err, engine.ErrDecisionNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("decision %q not found", id)), nil
	case errors.Is(err, engine.ErrNotExecutable):
		return mcp.NewToolResultError(fmt.Sprintf("decision %q cannot be executed: %v", id, err)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("execution failed: %v", err)), nil
	}

	d, _ := s.engine.Decision(id)
	s.audit(ctx, audit.Entry{
		Action:  audit.ActionDecisionExecuted,
		Scope:   audit.ScopeDecision,
		ScopeID: id,
		Summary: fmt.Sprintf("Agent executed %s: %s", id, d.Status),
	}, nil, nil)

	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Execution %s.\n\n%s", outcome, formatDecision(d, nil))), nil
}

// handleUpdateCriteria applies a partial criteria update.
func (s *Server) handleUpdateCriteria(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var patch decision.CriteriaPatch
	fields := []struct {
		name string
		dst  **int
	}{
		{"min_confidence", &patch.MinConfidence},
		{"max_risk_level", &patch.MaxRiskLevel},
		{"auto_execute_threshold", &patch.AutoExecuteThreshold},
		{"decision_timeout", &patch.DecisionTimeout},
	}
	for _, f := range fields {
		v, err := intArg(args, f.name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		*f.dst = v
	}
	if v, ok := args["require_human_approval"]; ok {
		b, ok := v.(bool)
		if !ok {
			return mcp.NewToolResultError("require_human_approval must be a boolean"), nil
		}
		patch.RequireHumanApproval = &b
	}

	if patch.Empty() {
		return mcp.NewToolResultError("no criteria fields supplied"), nil
	}

	previous := s.engine.Criteria()
	if err := previous.Merge(patch).Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updated := s.engine.UpdateCriteria(ctx, patch)

	s.audit(ctx, audit.Entry{
		Action:  audit.ActionCriteriaUpdated,
		Scope:   audit.ScopeCriteria,
		Summary: "Agent updated decision criteria",
	}, previous, updated)

	return mcp.NewToolResultText(fmt.Sprintf("Criteria updated.\n\n%s", formatCriteria(updated))), nil
}

// handleGeneratePreview generates and scores a decision without retaining it.
func (s *Server) handleGeneratePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := s.engine.Generate()
	ev := s.engine.Evaluate(d)
	return mcp.NewToolResultText(formatDecision(d, &ev)), nil
}

// intArg reads an optional whole-number argument. JSON numbers arrive as
// float64.
func intArg(args map[string]any, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	var n int
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return nil, fmt.Errorf("%s must be a whole number", key)
		}
		n = int(x)
	case int:
		n = x
	default:
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &n, nil
}

type engineFlags struct {
	Active   bool `json:"active"`
	AutoMode bool `json:"auto_mode"`
}

func flags(s engine.Status) engineFlags {
	return engineFlags{Active: s.Active, AutoMode: s.AutoMode}
}

func formatStatus(st engine.Status) string {
	var sb strings.Builder

	state := "inactive"
	switch {
	case st.FullyAutonomous:
		state = "fully autonomous"
	case st.Active:
		state = "active (manual approval)"
	}
	sb.WriteString(fmt.Sprintf("Engine: %s\n", state))
	sb.WriteString(fmt.Sprintf("Auto mode: %t, learning mode: %t\n", st.AutoMode, st.LearningMode))

	m := st.Metrics
	sb.WriteString("\nMetrics:\n")
	sb.WriteString(fmt.Sprintf("- Total decisions: %d\n", m.TotalDecisions))
	sb.WriteString(fmt.Sprintf("- Successful executions: %d\n", m.SuccessfulExecutions))
	sb.WriteString(fmt.Sprintf("- Failed executions: %d\n", m.FailedExecutions))
	sb.WriteString(fmt.Sprintf("- Pending decisions: %d\n", m.PendingDecisions))
	sb.WriteString(fmt.Sprintf("- Average confidence: %.1f%%\n", m.AverageConfidence))
	sb.WriteString(fmt.Sprintf("- System efficiency: %.1f%%\n", m.SystemEfficiency))
	sb.WriteString(fmt.Sprintf("- Decision velocity: %.2f/h\n", m.DecisionVelocity))

	c := st.Counts
	sb.WriteString(fmt.Sprintf("\nRetained: %d (pending %d, approved %d, executing %d, completed %d, failed %d, rejected %d)\n",
		st.Retained, c.Pending, c.Approved, c.Executing, c.Completed, c.Failed, c.Rejected))

	sb.WriteString("\n")
	sb.WriteString(formatCriteria(st.Criteria))
	return sb.String()
}

func formatCriteria(c decision.Criteria) string {
	var sb strings.Builder
	sb.WriteString("Criteria:\n")
	sb.WriteString(fmt.Sprintf("- Min confidence: %d%%\n", c.MinConfidence))
	sb.WriteString(fmt.Sprintf("- Max risk level: %d%%\n", c.MaxRiskLevel))
	sb.WriteString(fmt.Sprintf("- Auto-execute threshold: %d%%\n", c.AutoExecuteThreshold))
	sb.WriteString(fmt.Sprintf("- Require human approval: %t\n", c.RequireHumanApproval))
	w := c.PriorityWeights
	sb.WriteString(fmt.Sprintf("- Priority weights: critical %d, high %d, medium %d, low %d\n", w.Critical, w.High, w.Medium, w.Low))
	sb.WriteString(fmt.Sprintf("- Decision timeout: %ds\n", c.DecisionTimeout))
	return sb.String()
}

func formatEvaluation(ev decision.Evaluation) string {
	verdict := "rejected"
	if ev.Approved {
		verdict = "approved"
	}
	return fmt.Sprintf("Verdict: %s\nScore: %.1f\nReasons: %s\n", verdict, ev.Score, ev.Reason)
}

func formatDecision(d decision.Decision, ev *decision.Evaluation) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Decision %s\n", d.ID))
	sb.WriteString(fmt.Sprintf("Description: %s\n", d.Description))
	sb.WriteString(fmt.Sprintf("Type: %s, priority: %s, status: %s\n", d.Type, d.Priority, d.Status))
	sb.WriteString(fmt.Sprintf("Confidence: %d%%, risk: %d%%, impact: %d%%, estimated time: %ds\n",
		d.Confidence, d.RiskLevel, d.Impact, d.EstimatedTime))
	sb.WriteString(fmt.Sprintf("Auto-execute: %t\n", d.AutoExecute))
	if len(d.Dependencies) > 0 {
		sb.WriteString(fmt.Sprintf("Dependencies: %s\n", strings.Join(d.Dependencies, ", ")))
	}
	if ev != nil {
		sb.WriteString("\n")
		sb.WriteString(formatEvaluation(*ev))
	}
	if len(d.ExecutionLog) > 0 {
		sb.WriteString("\nExecution log:\n")
		for _, e := range d.ExecutionLog {
			line := fmt.Sprintf("- %s %s [%s]", e.Timestamp.Format("15:04:05"), e.Action, e.Result)
			if e.Details != "" {
				line += ": " + e.Details
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
