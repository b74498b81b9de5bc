package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

func serviceGraph(t *testing.T, nodes []string, edges [][2]string) *graph.Graph {
	t.Helper()
	g := graph.New(zap.NewNop())
	for _, id := range nodes {
		g.AddNode(schemas.Node{ID: id, Name: id, Kind: schemas.NodeService})
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(schemas.Edge{Source: e[0], Target: e[1], Kind: schemas.EdgeDependsOn}))
	}
	return g
}

// isRotation reports whether got is a rotation of want.
func isRotation(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for shift := range want {
		match := true
		for i := range want {
			if got[i] != want[(i+shift)%len(want)] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestCircularDependencyAcyclicGraph(t *testing.T) {
	g := serviceGraph(t,
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)
	rule := NewCircularDependencyRule(zap.NewNop())

	assert.Empty(t, rule.Evaluate(g))
}

func TestCircularDependencyTriangle(t *testing.T) {
	g := serviceGraph(t,
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
	)
	rule := NewCircularDependencyRule(zap.NewNop())

	findings := rule.Evaluate(g)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, RuleCircularDependency, f.RuleID)
	assert.Equal(t, schemas.SeverityWarning, f.Severity)
	assert.True(t, isRotation([]string{"A", "B", "C"}, f.NodeIDs),
		"node_ids %v should be a rotation of [A B C]", f.NodeIDs)
	assert.Contains(t, f.Message, " -> ")
}

func TestCircularDependencySkipsSelfLoops(t *testing.T) {
	g := serviceGraph(t,
		[]string{"A", "B"},
		[][2]string{{"A", "A"}, {"A", "B"}, {"B", "A"}},
	)
	rule := NewCircularDependencyRule(zap.NewNop())

	findings := rule.Evaluate(g)
	require.Len(t, findings, 1)
	assert.Len(t, findings[0].NodeIDs, 2)
}
