package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

// fanInGraph builds a graph where n callers all depend on a single target
// node of the given kind. The callers are libraries so they do not trip
// the orphan check themselves.
func fanInGraph(t *testing.T, n int, targetKind schemas.NodeKind) *graph.Graph {
	t.Helper()
	g := graph.New(zap.NewNop())
	g.AddNode(schemas.Node{ID: "target", Name: "target", Kind: targetKind})
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("caller-%d", i)
		g.AddNode(schemas.Node{ID: id, Name: id, Kind: schemas.NodeLibrary})
		require.NoError(t, g.AddEdge(schemas.Edge{Source: id, Target: "target", Kind: schemas.EdgeDependsOn}))
	}
	return g
}

func findingsByMeta(findings []schemas.Finding, key, value string) []schemas.Finding {
	var out []schemas.Finding
	for _, f := range findings {
		if f.Metadata[key] == value {
			out = append(out, f)
		}
	}
	return out
}

func TestSPOFBelowThresholdProducesNoFanInFinding(t *testing.T) {
	g := fanInGraph(t, 2, schemas.NodeExternalAPI)
	rule := NewSinglePointFailureRule(3, zap.NewNop())

	findings := rule.Evaluate(g)
	for _, f := range findings {
		assert.NotContains(t, f.Metadata, "in_degree",
			"in-degree 2 must not trip a threshold-3 SPOF check")
	}
}

func TestSPOFAtThresholdProducesExactlyOneFinding(t *testing.T) {
	g := fanInGraph(t, 3, schemas.NodeExternalAPI)
	rule := NewSinglePointFailureRule(3, zap.NewNop())

	var spof []schemas.Finding
	for _, f := range rule.Evaluate(g) {
		if _, ok := f.Metadata["in_degree"]; ok {
			spof = append(spof, f)
		}
	}
	require.Len(t, spof, 1)

	f := spof[0]
	assert.Equal(t, schemas.SeverityWarning, f.Severity)
	assert.Equal(t, []string{"target"}, f.NodeIDs)
	assert.Equal(t, 3, f.Metadata["in_degree"])
	assert.Equal(t, string(schemas.NodeExternalAPI), f.Metadata["node_type"])
	assert.Len(t, f.Metadata["predecessors"], 3)
}

func TestOrphanDetection(t *testing.T) {
	// A service with incoming edges but no outgoing edges is orphaned
	// (info), and with in-degree 2 < threshold it must not also be a SPOF.
	g := fanInGraph(t, 2, schemas.NodeService)
	rule := NewSinglePointFailureRule(3, zap.NewNop())

	findings := rule.Evaluate(g)
	orphans := findingsByMeta(findings, "type", "orphaned")
	require.Len(t, orphans, 1)
	assert.Equal(t, schemas.SeverityInfo, orphans[0].Severity)
	assert.Equal(t, []string{"target"}, orphans[0].NodeIDs)

	for _, f := range findings {
		assert.NotContains(t, f.Metadata, "in_degree")
	}
}

func TestOrphanCheckIgnoresLeafKinds(t *testing.T) {
	g := graph.New(zap.NewNop())
	g.AddNode(schemas.Node{ID: "lib:requests", Name: "requests", Kind: schemas.NodeLibrary})
	g.AddNode(schemas.Node{ID: "tf:vpc", Name: "vpc", Kind: schemas.NodeInfraResource})
	rule := NewSinglePointFailureRule(3, zap.NewNop())

	assert.Empty(t, rule.Evaluate(g))
}

func TestSPOFAndOrphanCanBothFireForOneNode(t *testing.T) {
	g := fanInGraph(t, 4, schemas.NodeDatabase)
	rule := NewSinglePointFailureRule(3, zap.NewNop())

	findings := rule.Evaluate(g)
	var forTarget []schemas.Finding
	for _, f := range findings {
		if len(f.NodeIDs) == 1 && f.NodeIDs[0] == "target" {
			forTarget = append(forTarget, f)
		}
	}
	require.Len(t, forTarget, 2)
}
