package rules

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

// RuleCircularDependency is the identifier for the cycle-detection rule.
const RuleCircularDependency = "circular_dependency"

// CircularDependencyRule reports every simple cycle of length >= 2 in the
// graph. Self-loops are enumerated by the graph engine but are not
// architecture-level circular dependencies, so they are skipped here.
type CircularDependencyRule struct {
	log *zap.Logger
}

func NewCircularDependencyRule(logger *zap.Logger) *CircularDependencyRule {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircularDependencyRule{log: logger.Named(RuleCircularDependency)}
}

func (r *CircularDependencyRule) ID() string { return RuleCircularDependency }

// Evaluate emits one warning finding per cycle. NodeIDs carry the cycle
// members in traversal order; the message renders them as "A -> B -> C".
func (r *CircularDependencyRule) Evaluate(g *graph.Graph) (findings []schemas.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("cycle enumeration aborted", zap.Any("panic", rec))
			findings = nil
		}
	}()

	for _, cycle := range g.SimpleCycles() {
		if len(cycle) < 2 {
			continue
		}
		findings = append(findings, schemas.Finding{
			RuleID:   r.ID(),
			Severity: schemas.SeverityWarning,
			Message:  fmt.Sprintf("Circular dependency detected: %s", strings.Join(cycle, " -> ")),
			NodeIDs:  cycle,
			Metadata: map[string]any{"cycle": cycle},
		})
	}
	return findings
}
