package decision

import (
	"fmt"
	"strings"
)

// ApprovalScore is the minimum score a decision needs to be approved.
const ApprovalScore = 70

// Evaluate scores d against c. It is pure: d is never modified.
//
// Approval requires the score threshold and both hard gates; a high score
// cannot compensate for low confidence or excess risk.
func Evaluate(d Decision, c Criteria) Evaluation {
	var (
		score   float64
		reasons []string
	)

	confident := d.Confidence >= c.MinConfidence
	if confident {
		score += 30
		reasons = append(reasons, "High confidence level")
	} else {
		reasons = append(reasons, fmt.Sprintf("Low confidence (%d%% < %d%%)", d.Confidence, c.MinConfidence))
	}

	safe := d.RiskLevel <= c.MaxRiskLevel
	if safe {
		score += 25
		reasons = append(reasons, "Acceptable risk level")
	} else {
		reasons = append(reasons, fmt.Sprintf("High risk (%d%% > %d%%)", d.RiskLevel, c.MaxRiskLevel))
	}

	weight := c.PriorityWeights.Weight(d.Priority)
	score += float64(weight*3) / 10
	reasons = append(reasons, fmt.Sprintf("Priority weight: %d", weight))

	if d.Impact > 70 {
		score += 15
		reasons = append(reasons, "High impact potential")
	}

	if d.Type.critical() {
		score += 10
		reasons = append(reasons, "Critical system component")
	}

	return Evaluation{
		Approved: score >= ApprovalScore && confident && safe,
		Score:    score,
		Reason:   strings.Join(reasons, ", "),
	}
}
