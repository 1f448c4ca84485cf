package engine

import (
	"time"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// Metrics are the running engine statistics.
type Metrics struct {
	TotalDecisions       int       `json:"total_decisions"`
	SuccessfulExecutions int       `json:"successful_executions"`
	FailedExecutions     int       `json:"failed_executions"`
	PendingDecisions     int       `json:"pending_decisions"`
	AverageConfidence    float64   `json:"average_confidence"`
	AverageExecutionTime float64   `json:"average_execution_time"`
	DecisionVelocity     float64   `json:"decision_velocity"`
	SystemEfficiency     float64   `json:"system_efficiency"`
	LastDecisionTime     time.Time `json:"last_decision_time"`
}

// StatusCounts tallies retained decisions by status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Executing int `json:"executing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Active          bool              `json:"active"`
	AutoMode        bool              `json:"auto_mode"`
	LearningMode    bool              `json:"learning_mode"`
	FullyAutonomous bool              `json:"fully_autonomous"`
	Criteria        decision.Criteria `json:"criteria"`
	Metrics         Metrics           `json:"metrics"`
	Counts          StatusCounts      `json:"counts"`
	Retained        int               `json:"retained"`
}

// Metrics returns a copy of the current metrics.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// Status returns the engine flags, criteria, metrics and per-status counts.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Active:          e.active,
		AutoMode:        e.autoMode,
		LearningMode:    e.learningMode,
		FullyAutonomous: e.active && e.autoMode,
		Criteria:        e.criteria,
		Metrics:         e.metrics,
		Retained:        len(e.decisions),
	}
	for _, d := range e.decisions {
		switch d.Status {
		case decision.StatusPending, decision.StatusEvaluating:
			s.Counts.Pending++
		case decision.StatusApproved:
			s.Counts.Approved++
		case decision.StatusExecuting:
			s.Counts.Executing++
		case decision.StatusCompleted:
			s.Counts.Completed++
		case decision.StatusFailed:
			s.Counts.Failed++
		case decision.StatusRejected:
			s.Counts.Rejected++
		}
	}
	return s
}

// recomputeLocked refreshes the derived metrics from one consistent view of
// the retained list. Callers hold e.mu.
func (e *Engine) recomputeLocked() {
	m := &e.metrics

	m.AverageConfidence = 0
	m.AverageExecutionTime = 0
	if n := len(e.decisions); n > 0 {
		var confSum, timeSum, completed int
		for _, d := range e.decisions {
			confSum += d.Confidence
			if d.Status == decision.StatusCompleted {
				timeSum += d.EstimatedTime
				completed++
			}
		}
		m.AverageConfidence = float64(confSum) / float64(n)
		if completed > 0 {
			m.AverageExecutionTime = float64(timeSum) / float64(completed)
		}
	}

	m.SystemEfficiency = 0
	if m.TotalDecisions > 0 {
		m.SystemEfficiency = float64(m.SuccessfulExecutions) / float64(m.TotalDecisions) * 100
	}

	// Lifetime total over hours since first activation, so ticks driven
	// before activation count too.
	m.DecisionVelocity = 0
	if !e.activatedAt.IsZero() {
		if hours := e.now().Sub(e.activatedAt).Hours(); hours > 0 {
			m.DecisionVelocity = float64(m.TotalDecisions) / hours
		}
	}
}
