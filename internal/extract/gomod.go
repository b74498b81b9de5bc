package extract

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"github.com/archlens/archlens/api/schemas"
)

// GoModExtractor reads go.mod files with golang.org/x/mod and emits one
// service node for the module itself plus a library node and depends_on
// edge per require directive.
type GoModExtractor struct {
	log *zap.Logger
}

func NewGoModExtractor(logger *zap.Logger) *GoModExtractor {
	return &GoModExtractor{log: logger.Named("extract.gomod")}
}

func (e *GoModExtractor) Name() string { return "gomod" }

func (e *GoModExtractor) CanHandle(path string) bool {
	return filepath.Base(path) == "go.mod"
}

func (e *GoModExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	raw, err := os.ReadFile(path)
	if err != nil {
		e.log.Debug("unreadable go.mod", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	f, err := modfile.Parse(path, raw, nil)
	if err != nil || f.Module == nil {
		e.log.Debug("malformed go.mod", zap.String("path", path), zap.Error(err))
		return nil, nil
	}

	modulePath := f.Module.Mod.Path
	projectID := "go:" + modulePath
	nodes := []schemas.Node{{
		ID:   projectID,
		Name: filepath.Base(modulePath),
		Kind: schemas.NodeService,
		Metadata: map[string]any{
			"language": "go",
			"module":   modulePath,
			"source":   path,
		},
	}}

	var edges []schemas.Edge
	for _, req := range f.Require {
		libID := "lib:" + req.Mod.Path
		nodes = append(nodes, schemas.Node{
			ID:   libID,
			Name: req.Mod.Path,
			Kind: schemas.NodeLibrary,
			Metadata: map[string]any{
				"version":         req.Mod.Version,
				"package_manager": "gomod",
				"indirect":        req.Indirect,
				"source":          path,
			},
		})
		edges = append(edges, schemas.Edge{
			Source:   projectID,
			Target:   libID,
			Kind:     schemas.EdgeDependsOn,
			Metadata: map[string]any{"version": req.Mod.Version},
		})
	}
	return nodes, edges
}
