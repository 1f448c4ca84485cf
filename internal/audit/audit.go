package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorAgent  ActorType = "agent"
)

// Action describes what was done.
type Action string

const (
	ActionEngineActivated   Action = "engine_activated"
	ActionEngineDeactivated Action = "engine_deactivated"
	ActionAutoModeChanged   Action = "auto_mode_changed"
	ActionLearningChanged   Action = "learning_mode_changed"
	ActionCriteriaUpdated   Action = "criteria_updated"
	ActionHistoryCleared    Action = "history_cleared"
	ActionDecisionExecuted  Action = "decision_executed"
)

// Scope describes what an action applied to.
type Scope string

const (
	ScopeEngine   Scope = "engine"
	ScopeCriteria Scope = "criteria"
	ScopeDecision Scope = "decision"
)

// Entry is a single audit trail record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	Scope         Scope     `json:"scope"`
	ScopeID       string    `json:"scope_id,omitempty"`
	Summary       string    `json:"summary"`
	Detail        string    `json:"detail,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}
