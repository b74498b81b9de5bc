package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

// RuleSinglePointFailure is the identifier for the fan-in/orphan rule.
const RuleSinglePointFailure = "single_point_failure"

// DefaultSPOFThreshold is the in-degree at or above which a node is
// flagged as a potential single point of failure.
const DefaultSPOFThreshold = 3

// SinglePointFailureRule runs two independent per-node checks: a fan-in
// threshold check and an orphan check for reliability-sensitive kinds. A
// single node can produce zero, one, or two findings.
type SinglePointFailureRule struct {
	threshold int
	log       *zap.Logger
}

func NewSinglePointFailureRule(threshold int, logger *zap.Logger) *SinglePointFailureRule {
	if threshold <= 0 {
		threshold = DefaultSPOFThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SinglePointFailureRule{threshold: threshold, log: logger.Named(RuleSinglePointFailure)}
}

func (r *SinglePointFailureRule) ID() string { return RuleSinglePointFailure }

func (r *SinglePointFailureRule) Evaluate(g *graph.Graph) []schemas.Finding {
	var findings []schemas.Finding

	for _, node := range g.Nodes() {
		inDegree := g.InDegree(node.ID)
		if inDegree >= r.threshold {
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID(),
				Severity: schemas.SeverityWarning,
				Message: fmt.Sprintf(
					"Potential single point of failure: %s (type: %s) has %d incoming dependencies",
					node.Name, node.Kind, inDegree,
				),
				NodeIDs: []string{node.ID},
				Metadata: map[string]any{
					"in_degree":    inDegree,
					"node_type":    string(node.Kind),
					"predecessors": g.Predecessors(node.ID),
				},
			})
		}

		if reliabilitySensitive(node.Kind) && g.OutDegree(node.ID) == 0 {
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID(),
				Severity: schemas.SeverityInfo,
				Message:  fmt.Sprintf("Node %s has no outgoing connections - may be orphaned", node.ID),
				NodeIDs:  []string{node.ID},
				Metadata: map[string]any{"type": "orphaned"},
			})
		}
	}
	return findings
}

// reliabilitySensitive reports whether an isolated node of this kind is
// worth flagging. Libraries and infra resources are leaves by nature.
func reliabilitySensitive(kind schemas.NodeKind) bool {
	switch kind {
	case schemas.NodeService, schemas.NodeDatabase, schemas.NodeQueue, schemas.NodeContainer:
		return true
	}
	return false
}
