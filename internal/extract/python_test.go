package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

func TestPythonExtractorFastAPIService(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "src/billing/api.py", `
import os
from fastapi import FastAPI
from sqlalchemy.orm import Session

app = FastAPI(title="billing")

@app.get("/invoices")
def list_invoices():
    return []
`)

	ex := NewPythonExtractor(zap.NewNop())
	nodes, edges := ex.Extract(path)

	svc := findNode(t, nodes, "billing.api")
	assert.Equal(t, schemas.NodeService, svc.Kind)
	assert.Equal(t, "fastapi", svc.Metadata["framework"])
	assert.Equal(t, path, svc.Metadata["source"])

	findNode(t, nodes, "lib:os")
	findNode(t, nodes, "lib:fastapi")
	findNode(t, nodes, "lib:sqlalchemy")

	assert.True(t, hasEdge(edges, "billing.api", "lib:fastapi", schemas.EdgeDependsOn))
	assert.True(t, hasEdge(edges, "billing.api", "lib:os", schemas.EdgeDependsOn))
}

func TestPythonExtractorORMModels(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "src/billing/models.py", `
from sqlalchemy.orm import DeclarativeBase

class Base(DeclarativeBase):
    pass

class Invoice(Base):
    pass

class Helper:
    pass
`)

	ex := NewPythonExtractor(zap.NewNop())
	nodes, _ := ex.Extract(path)

	model := findNode(t, nodes, "billing.models.Invoice")
	assert.Equal(t, schemas.NodeDatabase, model.Kind)
	assert.Equal(t, "Invoice", model.Name)

	// Plain classes are not persistence models.
	for _, n := range nodes {
		assert.NotEqual(t, "billing.models.Helper", n.ID)
	}
}

func TestPythonExtractorPlainModule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "util.py", "import json\nimport json\n")

	ex := NewPythonExtractor(zap.NewNop())
	nodes, edges := ex.Extract(path)

	// No service detected: library nodes only, deduplicated, no edges.
	require.Len(t, nodes, 1)
	assert.Equal(t, "lib:json", nodes[0].ID)
	assert.Empty(t, edges)
}

func TestPythonExtractorUnreadable(t *testing.T) {
	ex := NewPythonExtractor(zap.NewNop())
	nodes, edges := ex.Extract("/nonexistent/app.py")
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}
