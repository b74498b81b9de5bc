package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

func TestGoModExtractor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "go.mod", `module example.com/payments

go 1.22

require (
	github.com/jackc/pgx/v5 v5.7.6
	go.uber.org/zap v1.27.0
	golang.org/x/sys v0.30.0 // indirect
)
`)

	ex := NewGoModExtractor(zap.NewNop())
	nodes, edges := ex.Extract(path)

	svc := findNode(t, nodes, "go:example.com/payments")
	assert.Equal(t, schemas.NodeService, svc.Kind)
	assert.Equal(t, "payments", svc.Name)
	assert.Equal(t, "go", svc.Metadata["language"])

	pgx := findNode(t, nodes, "lib:github.com/jackc/pgx/v5")
	assert.Equal(t, schemas.NodeLibrary, pgx.Kind)
	assert.Equal(t, "v5.7.6", pgx.Metadata["version"])
	assert.Equal(t, false, pgx.Metadata["indirect"])

	sys := findNode(t, nodes, "lib:golang.org/x/sys")
	assert.Equal(t, true, sys.Metadata["indirect"])

	require.Len(t, edges, 3)
	assert.True(t, hasEdge(edges, "go:example.com/payments", "lib:go.uber.org/zap", schemas.EdgeDependsOn))
}

func TestGoModExtractorMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "go.mod", "this is not a module file {{{")

	ex := NewGoModExtractor(zap.NewNop())
	nodes, edges := ex.Extract(path)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}
