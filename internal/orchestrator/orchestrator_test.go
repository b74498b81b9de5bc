package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(config.NewDefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	return o
}

// writeRepo lays out a small polyglot repository with a terraform cycle.
func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("svc-a/requirements.txt", "flask==2.3.0\n")
	write("svc-b/requirements.txt", "flask==2.3.0\nrequests>=2.31\n")
	write("api/Dockerfile", "FROM alpine:3.19\nEXPOSE 8080\n")
	write("infra/main.tf", `
resource "aws_ecs_service" "front" {
  upstream = "${aws_ecs_service.back.id}"
}

resource "aws_ecs_service" "back" {
  upstream = "${aws_ecs_service.front.id}"
}
`)
	// Excluded directories must never contribute entities.
	write("node_modules/evil/package.json", `{"name": "evil", "dependencies": {"leftpad": "1.0.0"}}`)

	return root
}

func TestNewRejectsNilDependencies(t *testing.T) {
	_, err := New(nil, zap.NewNop())
	require.Error(t, err)
	_, err = New(config.NewDefaultConfig(), nil)
	require.Error(t, err)
}

func TestScanRepository(t *testing.T) {
	root := writeRepo(t)
	o := testOrchestrator(t)

	result, err := o.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, result.RepoID, 16)
	assert.Equal(t, RepoID(mustCanonical(t, root)), result.RepoID)
	assert.Equal(t, mustCanonical(t, root), result.Metadata["repo_path"])

	ids := make(map[string]schemas.Node, len(result.Nodes))
	for _, n := range result.Nodes {
		ids[n.ID] = n
	}

	// One project node per manifest, deduplicated shared libraries, the
	// container, its base image, and both terraform services.
	for _, want := range []string{
		"python:svc-a", "python:svc-b", "lib:flask", "lib:requests",
		"container:api", "lib:alpine:3.19",
		"aws_ecs_service.front", "aws_ecs_service.back",
	} {
		assert.Contains(t, ids, want)
	}
	assert.NotContains(t, ids, "npm:evil", "excluded directories must be pruned")
	assert.NotContains(t, ids, "lib:leftpad")

	// Every surviving edge is referentially intact.
	for _, e := range result.Edges {
		assert.Contains(t, ids, e.Source)
		assert.Contains(t, ids, e.Target)
	}

	// The terraform reference cycle must be reported.
	var circular []schemas.Finding
	for _, f := range result.Findings {
		if f.RuleID == rules.RuleCircularDependency {
			circular = append(circular, f)
		}
	}
	require.Len(t, circular, 1)
	assert.Equal(t, schemas.SeverityWarning, circular[0].Severity)
	assert.ElementsMatch(t, []string{"aws_ecs_service.front", "aws_ecs_service.back"}, circular[0].NodeIDs)
}

func TestScanNodeOrderIsGroupedByKind(t *testing.T) {
	root := writeRepo(t)
	o := testOrchestrator(t)

	result, err := o.Scan(context.Background(), root)
	require.NoError(t, err)

	rank := make(map[schemas.NodeKind]int, len(schemas.NodeKinds))
	for i, kind := range schemas.NodeKinds {
		rank[kind] = i
	}
	for i := 1; i < len(result.Nodes); i++ {
		assert.LessOrEqual(t, rank[result.Nodes[i-1].Kind], rank[result.Nodes[i].Kind],
			"nodes must be grouped in the fixed kind order")
	}
}

func TestScanIsDeterministic(t *testing.T) {
	root := writeRepo(t)
	o := testOrchestrator(t)

	first, err := o.Scan(context.Background(), root)
	require.NoError(t, err)
	second, err := o.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first.RepoID, second.RepoID)
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.Findings, second.Findings)
}

func TestScanMissingRepository(t *testing.T) {
	o := testOrchestrator(t)
	_, err := o.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("flask\n"), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Scan.MaxFileSize = 2
	o, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	result, err := o.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
}

func TestBuildGraphEdgeDedupIgnoresKind(t *testing.T) {
	o := testOrchestrator(t)

	nodes := []schemas.Node{
		{ID: "a", Name: "a", Kind: schemas.NodeService},
		{ID: "b", Name: "b", Kind: schemas.NodeService},
	}
	edges := []schemas.Edge{
		{Source: "a", Target: "b", Kind: schemas.EdgeCalls},
		{Source: "a", Target: "b", Kind: schemas.EdgeDependsOn},
		{Source: "b", Target: "a", Kind: schemas.EdgeCalls},
	}

	g := o.buildGraph(nodes, edges)

	// The dedup key is the ordered endpoint pair; the kind does not
	// distinguish edges, so only the first a->b edge survives.
	require.Equal(t, 2, g.EdgeCount())
	for _, e := range g.Edges() {
		if e.Source == "a" {
			assert.Equal(t, schemas.EdgeCalls, e.Kind)
		}
	}
}

func TestBuildGraphDropsDanglingEdges(t *testing.T) {
	o := testOrchestrator(t)

	nodes := []schemas.Node{{ID: "a", Name: "a", Kind: schemas.NodeService}}
	edges := []schemas.Edge{
		{Source: "a", Target: "ghost", Kind: schemas.EdgeCalls},
		{Source: "ghost", Target: "a", Kind: schemas.EdgeCalls},
	}

	g := o.buildGraph(nodes, edges)
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestRepoID(t *testing.T) {
	id := RepoID("/srv/repos/payments")
	assert.Len(t, id, 16)
	assert.Equal(t, id, RepoID("/srv/repos/payments"))
	assert.NotEqual(t, id, RepoID("/srv/repos/billing"))
}

func mustCanonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := canonicalPath(path)
	require.NoError(t, err)
	return resolved
}
