package decision

import (
	"time"

	"github.com/google/uuid"
)

// Generator produces candidate decisions with randomized but bounded attributes.
type Generator struct {
	src       Source
	catalogue Catalogue
	newID     func() string
	now       func() time.Time
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithCatalogue replaces the scenario catalogue. Types missing from c fall
// back to DefaultCatalogue.
func WithCatalogue(c Catalogue) GeneratorOption {
	return func(g *Generator) {
		merged := make(Catalogue, len(Types))
		for _, t := range Types {
			if len(c[t]) > 0 {
				merged[t] = c[t]
			} else {
				merged[t] = DefaultCatalogue[t]
			}
		}
		g.catalogue = merged
	}
}

// WithIDFunc overrides decision id generation.
func WithIDFunc(fn func() string) GeneratorOption {
	return func(g *Generator) { g.newID = fn }
}

// WithNow overrides the creation timestamp source.
func WithNow(fn func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = fn }
}

// NewGenerator creates a Generator drawing from src.
func NewGenerator(src Source, opts ...GeneratorOption) *Generator {
	g := &Generator{
		src:       src,
		catalogue: DefaultCatalogue,
		newID:     func() string { return "decision_" + uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new pending decision. Only AutoExecuteThreshold and
// MaxRiskLevel of c are consulted.
func (g *Generator) Generate(c Criteria) Decision {
	typ := Types[g.src.IntN(len(Types))]
	scenarios := g.catalogue[typ]
	description := scenarios[g.src.IntN(len(scenarios))]

	confidence := 60 + g.src.IntN(40)
	complexity := g.src.Float64()
	urgency := g.src.Float64()

	if typ.critical() {
		confidence = min(100, confidence+10)
	}
	if complexity > 0.7 {
		confidence = max(50, confidence-15)
	}

	priority := PriorityFor(urgency)
	risk := RiskFor(confidence, priority)
	impact := 1 + g.src.IntN(100)
	estimated := 60 + g.src.IntN(600)

	return Decision{
		ID:            g.newID(),
		Type:          typ,
		Priority:      priority,
		Description:   description,
		Confidence:    confidence,
		RiskLevel:     risk,
		Impact:        impact,
		EstimatedTime: estimated,
		Dependencies:  []string{},
		Status:        StatusPending,
		AutoExecute:   confidence >= c.AutoExecuteThreshold && risk <= c.MaxRiskLevel,
		ExecutionLog:  []LogEntry{},
		Timestamp:     g.now(),
	}
}
