package decision

import "time"

// Type is the category of work a decision proposes.
type Type string

const (
	TypeInfrastructure Type = "infrastructure"
	TypeDevelopment    Type = "development"
	TypeOptimization   Type = "optimization"
	TypeSecurity       Type = "security"
	TypeResource       Type = "resource"
	TypeStrategic      Type = "strategic"
)

// Types lists every decision type in catalogue order.
var Types = []Type{
	TypeInfrastructure,
	TypeDevelopment,
	TypeOptimization,
	TypeSecurity,
	TypeResource,
	TypeStrategic,
}

// Valid reports whether t is a known decision type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// critical reports whether the type touches a critical system component.
func (t Type) critical() bool {
	return t == TypeSecurity || t == TypeInfrastructure
}

// Priority is derived from the urgency sampled at generation time.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status tracks where a decision is in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEvaluating Status = "evaluating"
	StatusApproved   Status = "approved"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Executable reports whether a decision in status s may be handed to the executor.
func (s Status) Executable() bool {
	return s == StatusPending || s == StatusApproved
}

// LogResult is the outcome recorded on an execution log entry.
type LogResult string

const (
	ResultSuccess LogResult = "success"
	ResultFailure LogResult = "failure"
	ResultWarning LogResult = "warning"
)

// LogEntry is one line of a decision's execution audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Result    LogResult `json:"result"`
	Details   string    `json:"details"`
}

// Decision is a candidate autonomous action with scored attributes.
type Decision struct {
	ID            string     `json:"id"`
	Type          Type       `json:"type"`
	Priority      Priority   `json:"priority"`
	Description   string     `json:"description"`
	Confidence    int        `json:"confidence"`
	RiskLevel     int        `json:"risk_level"`
	Impact        int        `json:"impact"`
	EstimatedTime int        `json:"estimated_time"` // seconds
	Dependencies  []string   `json:"dependencies"`
	Status        Status     `json:"status"`
	AutoExecute   bool       `json:"auto_execute"`
	ExecutionLog  []LogEntry `json:"execution_log"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Clone returns a deep copy so callers never share slices with the engine.
func (d Decision) Clone() Decision {
	c := d
	c.Dependencies = append([]string{}, d.Dependencies...)
	c.ExecutionLog = append([]LogEntry{}, d.ExecutionLog...)
	return c
}

// RiskFor computes the risk level for a confidence and priority pair.
func RiskFor(confidence int, priority Priority) int {
	risk := 100 - confidence
	if priority == PriorityCritical {
		risk -= 20
	}
	return max(0, risk)
}

// PriorityFor maps an urgency sample in [0,1) to a priority.
func PriorityFor(urgency float64) Priority {
	switch {
	case urgency > 0.8:
		return PriorityCritical
	case urgency > 0.6:
		return PriorityHigh
	case urgency > 0.3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Evaluation is the verdict produced by Evaluate.
type Evaluation struct {
	Approved bool    `json:"approved"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}
