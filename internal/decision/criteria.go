package decision

import "fmt"

// PriorityWeights assigns an additive scoring weight to each priority.
type PriorityWeights struct {
	Critical int `json:"critical" yaml:"critical" koanf:"critical"`
	High     int `json:"high" yaml:"high" koanf:"high"`
	Medium   int `json:"medium" yaml:"medium" koanf:"medium"`
	Low      int `json:"low" yaml:"low" koanf:"low"`
}

// Weight returns the weight configured for p, or 0 for an unknown priority.
func (w PriorityWeights) Weight(p Priority) int {
	switch p {
	case PriorityCritical:
		return w.Critical
	case PriorityHigh:
		return w.High
	case PriorityMedium:
		return w.Medium
	case PriorityLow:
		return w.Low
	}
	return 0
}

// Criteria is the policy configuration consulted by the evaluator and generator.
type Criteria struct {
	MinConfidence        int             `json:"min_confidence" yaml:"min_confidence" koanf:"min_confidence"`
	MaxRiskLevel         int             `json:"max_risk_level" yaml:"max_risk_level" koanf:"max_risk_level"`
	AutoExecuteThreshold int             `json:"auto_execute_threshold" yaml:"auto_execute_threshold" koanf:"auto_execute_threshold"`
	RequireHumanApproval bool            `json:"require_human_approval" yaml:"require_human_approval" koanf:"require_human_approval"`
	PriorityWeights      PriorityWeights `json:"priority_weights" yaml:"priority_weights" koanf:"priority_weights"`
	DecisionTimeout      int             `json:"decision_timeout" yaml:"decision_timeout" koanf:"decision_timeout"` // seconds
}

// DefaultCriteria returns the stock policy.
func DefaultCriteria() Criteria {
	return Criteria{
		MinConfidence:        85,
		MaxRiskLevel:         30,
		AutoExecuteThreshold: 90,
		RequireHumanApproval: false,
		PriorityWeights: PriorityWeights{
			Critical: 100,
			High:     75,
			Medium:   50,
			Low:      25,
		},
		DecisionTimeout: 300,
	}
}

// CriteriaPatch is a partial criteria update. Nil fields are left untouched.
type CriteriaPatch struct {
	MinConfidence        *int             `json:"min_confidence,omitempty"`
	MaxRiskLevel         *int             `json:"max_risk_level,omitempty"`
	AutoExecuteThreshold *int             `json:"auto_execute_threshold,omitempty"`
	RequireHumanApproval *bool            `json:"require_human_approval,omitempty"`
	PriorityWeights      *PriorityWeights `json:"priority_weights,omitempty"`
	DecisionTimeout      *int             `json:"decision_timeout,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CriteriaPatch) Empty() bool {
	return p.MinConfidence == nil && p.MaxRiskLevel == nil && p.AutoExecuteThreshold == nil &&
		p.RequireHumanApproval == nil && p.PriorityWeights == nil && p.DecisionTimeout == nil
}

// Merge applies p on top of c. The merge is shallow: a supplied
// PriorityWeights replaces all four weights at once.
func (c Criteria) Merge(p CriteriaPatch) Criteria {
	if p.MinConfidence != nil {
		c.MinConfidence = *p.MinConfidence
	}
	if p.MaxRiskLevel != nil {
		c.MaxRiskLevel = *p.MaxRiskLevel
	}
	if p.AutoExecuteThreshold != nil {
		c.AutoExecuteThreshold = *p.AutoExecuteThreshold
	}
	if p.RequireHumanApproval != nil {
		c.RequireHumanApproval = *p.RequireHumanApproval
	}
	if p.PriorityWeights != nil {
		c.PriorityWeights = *p.PriorityWeights
	}
	if p.DecisionTimeout != nil {
		c.DecisionTimeout = *p.DecisionTimeout
	}
	return c
}

// Validate checks that thresholds are percentages and weights are non-negative.
// The engine itself accepts any criteria; callers at the edges use this.
func (c Criteria) Validate() error {
	percentages := []struct {
		name  string
		value int
	}{
		{"min_confidence", c.MinConfidence},
		{"max_risk_level", c.MaxRiskLevel},
		{"auto_execute_threshold", c.AutoExecuteThreshold},
	}
	for _, p := range percentages {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%s must be within [0,100], got %d", p.name, p.value)
		}
	}

	w := c.PriorityWeights
	if w.Critical < 0 || w.High < 0 || w.Medium < 0 || w.Low < 0 {
		return fmt.Errorf("priority_weights must be non-negative")
	}

	if c.DecisionTimeout < 0 {
		return fmt.Errorf("decision_timeout must be non-negative")
	}
	return nil
}
