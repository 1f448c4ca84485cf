package mcp

import "github.com/mark3labs/mcp-go/mcp"

// getEngineStatusTool defines the get_engine_status MCP tool.
var getEngineStatusTool = mcp.NewTool("get_engine_status",
	mcp.WithDescription("Get the decision engine state: active and auto mode flags, criteria, metrics and decision counts."),
)

// controlEngineTool defines the control_engine MCP tool.
var controlEngineTool = mcp.NewTool("control_engine",
	mcp.WithDescription("Activate or deactivate the engine, or switch auto mode on or off."),
	mcp.WithString("action",
		mcp.Required(),
		mcp.Description("What to do"),
		mcp.Enum("activate", "deactivate", "auto_on", "auto_off"),
	),
)

// listDecisionsTool defines the list_decisions MCP tool.
var listDecisionsTool = mcp.NewTool("list_decisions",
	mcp.WithDescription("List the decisions the engine currently retains, newest first."),
	mcp.WithString("status",
		mcp.Description("Only return decisions in this status"),
		mcp.Enum("pending", "evaluating", "approved", "executing", "completed", "failed", "rejected"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of decisions to return (default 10)"),
	),
)

// getDecisionTool defines the get_decision MCP tool.
var getDecisionTool = mcp.NewTool("get_decision",
	mcp.WithDescription("Get a retained decision with its execution log."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Decision ID, for example decision_3f2c9a1e-8b7d-4c55-9e0a-6d1f2b3c4d5e"),
	),
)

// evaluateDecisionTool defines the evaluate_decision MCP tool.
var evaluateDecisionTool = mcp.NewTool("evaluate_decision",
	mcp.WithDescription("Score a hypothetical decision against the current criteria without changing engine state."),
	mcp.WithString("type",
		mcp.Required(),
		mcp.Description("Decision category"),
		mcp.Enum("infrastructure", "development", "optimization", "security", "resource", "strategic"),
	),
	mcp.WithString("priority",
		mcp.Required(),
		mcp.Description("Decision priority"),
		mcp.Enum("critical", "high", "medium", "low"),
	),
	mcp.WithNumber("confidence",
		mcp.Required(),
		mcp.Description("Confidence percentage, 0-100"),
	),
	mcp.WithNumber("risk_level",
		mcp.Description("Risk percentage, 0-100 (default derived from confidence and priority)"),
	),
	mcp.WithNumber("impact",
		mcp.Description("Impact percentage, 0-100 (default 50)"),
	),
)

// executeDecisionTool defines the execute_decision MCP tool.
var executeDecisionTool = mcp.NewTool("execute_decision",
	mcp.WithDescription("Execute a pending or approved decision and wait for the outcome."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Decision ID"),
	),
)

// updateCriteriaTool defines the update_criteria MCP tool.
var updateCriteriaTool = mcp.NewTool("update_criteria",
	mcp.WithDescription("Change decision criteria. Only the supplied fields are updated."),
	mcp.WithNumber("min_confidence",
		mcp.Description("Minimum confidence percentage for approval"),
	),
	mcp.WithNumber("max_risk_level",
		mcp.Description("Maximum risk percentage for approval"),
	),
	mcp.WithNumber("auto_execute_threshold",
		mcp.Description("Confidence percentage above which generated decisions are marked auto-executable"),
	),
	mcp.WithBoolean("require_human_approval",
		mcp.Description("Hold approved decisions for a human instead of executing them"),
	),
	mcp.WithNumber("decision_timeout",
		mcp.Description("Execution timeout in seconds"),
	),
)

// generatePreviewTool defines the generate_preview MCP tool.
var generatePreviewTool = mcp.NewTool("generate_preview",
	mcp.WithDescription("Generate a sample decision and its evaluation without retaining it."),
)
