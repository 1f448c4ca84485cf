package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// AgentID identifies changes made through MCP in the audit trail.
const AgentID = "mcp"

// RecordDeps holds the optional persistent stores. With them the server
// exposes archive and audit tools and records agent changes.
type RecordDeps struct {
	Archive *archive.Store
	Audit   *audit.Store
}

// SetRecordDeps sets the persistent stores and registers the tools that
// read them.
func (s *Server) SetRecordDeps(deps RecordDeps) {
	s.records = &deps
	if deps.Archive != nil {
		s.mcp.AddTool(searchArchiveTool, s.handleSearchArchive)
		s.mcp.AddTool(getArchiveStatsTool, s.handleGetArchiveStats)
	}
	if deps.Audit != nil {
		s.mcp.AddTool(getDecisionTrailTool, s.handleGetDecisionTrail)
	}
}

// searchArchiveTool defines the search_archive MCP tool.
var searchArchiveTool = mcp.NewTool("search_archive",
	mcp.WithDescription("Search every decision ever made, including ones the engine no longer retains."),
	mcp.WithString("status",
		mcp.Description("Only return decisions in this status"),
		mcp.Enum("pending", "evaluating", "approved", "executing", "completed", "failed", "rejected"),
	),
	mcp.WithString("type",
		mcp.Description("Only return decisions of this type"),
		mcp.Enum("infrastructure", "development", "optimization", "security", "resource", "strategic"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 20)"),
	),
)

// getArchiveStatsTool defines the get_archive_stats MCP tool.
var getArchiveStatsTool = mcp.NewTool("get_archive_stats",
	mcp.WithDescription("Get totals, per-status and per-type counts and the success rate across the whole archive."),
)

// getDecisionTrailTool defines the get_decision_trail MCP tool.
var getDecisionTrailTool = mcp.NewTool("get_decision_trail",
	mcp.WithDescription("Get the audit trail of who changed the engine, its criteria or a decision."),
	mcp.WithString("decision_id",
		mcp.Description("Only entries for this decision; omit for the most recent entries"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries (default 20)"),
	),
)

func (s *Server) handleSearchArchive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	results, err := s.records.Archive.List(ctx, archive.ListFilter{
		Status: decision.Status(request.GetString("status", "")),
		Type:   decision.Type(request.GetString("type", "")),
		Limit:  limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("archive search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No archived decisions match."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d archived decision(s):\n", len(results)))
	for _, d := range results {
		sb.WriteString(fmt.Sprintf("\n- %s %s [%s] %s/%s: %s",
			d.Timestamp.Format("2006-01-02 15:04:05"), d.ID, d.Status, d.Type, d.Priority, d.Description))
	}
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetArchiveStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.records.Archive.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("archive stats failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Archived decisions: %d\n", st.Total))
	sb.WriteString(fmt.Sprintf("Success rate: %.1f%%\n", st.SuccessRate))
	sb.WriteString(fmt.Sprintf("Average confidence: %.1f%%, average risk: %.1f%%\n", st.AverageConfidence, st.AverageRisk))

	sb.WriteString("\nBy status:\n")
	for _, status := range []decision.Status{
		decision.StatusPending, decision.StatusApproved, decision.StatusExecuting,
		decision.StatusCompleted, decision.StatusFailed, decision.StatusRejected,
	} {
		if n := st.ByStatus[status]; n > 0 {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", status, n))
		}
	}
	sb.WriteString("\nBy type:\n")
	for _, typ := range decision.Types {
		if n := st.ByType[typ]; n > 0 {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", typ, n))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetDecisionTrail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	filter := audit.QueryFilter{Limit: limit}
	if id := request.GetString("decision_id", ""); id != "" {
		filter.Scope = audit.ScopeDecision
		filter.ScopeID = id
	}

	entries, err := s.records.Audit.Query(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("audit query failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No audit entries found."), nil
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("- %s %s/%s %s: %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.ActorType, e.ActorID, e.Action, e.Summary))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// audit records an agent change when an audit store is configured.
func (s *Server) audit(ctx context.Context, entry audit.Entry, previous, next any) {
	if s.records == nil || s.records.Audit == nil {
		return
	}
	entry.ActorType = audit.ActorAgent
	entry.ActorID = AgentID
	if err := s.records.Audit.LogChange(context.WithoutCancel(ctx), entry, previous, next); err != nil {
		log.Printf("mcp: recording audit entry: %v", err)
	}
}
