// Package rules implements the structural and security analyzers that run
// over a finished dependency graph. Each rule is a pure function of the
// graph (the secret detector additionally re-reads files referenced by node
// metadata) and produces findings; rules never panic or error past their
// boundary — a failing sub-check degrades to "no finding".
package rules

import (
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

// Rule is the analyzer contract. ID must be stable: it is how rules are
// enabled in configuration and how findings are attributed in reports.
type Rule interface {
	ID() string
	Evaluate(g *graph.Graph) []schemas.Finding
}

// Defaults returns the built-in rule set in evaluation order. Findings are
// concatenated in this order, so it is part of the observable contract.
func Defaults(spofThreshold int, logger *zap.Logger) []Rule {
	return []Rule{
		NewCircularDependencyRule(logger),
		NewSinglePointFailureRule(spofThreshold, logger),
		NewSecretDetectorRule(logger),
	}
}

// Enabled filters rules down to the configured enabled-set, preserving
// order. Unknown ids in the set are ignored.
func Enabled(all []Rule, enabledIDs []string) []Rule {
	enabled := make(map[string]bool, len(enabledIDs))
	for _, id := range enabledIDs {
		enabled[id] = true
	}
	var out []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			out = append(out, r)
		}
	}
	return out
}
