package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

var (
	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([a-zA-Z0-9_.]+)`)
	pyFromImportRe = regexp.MustCompile(`(?m)^\s*from\s+([a-zA-Z0-9_.]+)\s+import\s+`)
	// App construction for the two frameworks the heuristics know about.
	pyFlaskAppRe   = regexp.MustCompile(`(?m)^\s*(\w+)\s*=\s*Flask\(`)
	pyFastAPIAppRe = regexp.MustCompile(`(?m)^\s*(\w+)\s*=\s*FastAPI\(`)
	// Class-based detection: route-decorated handlers and ORM models.
	pyRouteClassRe = regexp.MustCompile(`(?m)^\s*@\w+\.(?:get|post|put|delete|patch|route)\(`)
	pyClassRe      = regexp.MustCompile(`(?m)^class\s+([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s*:`)
)

// pyModelBases marks class bases that indicate a persistence model.
var pyModelBases = []string{"Base", "db.Model", "Model", "DeclarativeBase"}

// PythonExtractor derives service, database and library entities from
// Python sources with line-oriented heuristics: imports become library
// nodes, Flask/FastAPI app construction and route decorators mark the
// module as a service, and ORM-base classes become database nodes.
type PythonExtractor struct {
	log *zap.Logger
}

func NewPythonExtractor(logger *zap.Logger) *PythonExtractor {
	return &PythonExtractor{log: logger.Named("extract.python")}
}

func (e *PythonExtractor) Name() string { return "python" }

func (e *PythonExtractor) CanHandle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

func (e *PythonExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	raw, err := os.ReadFile(path)
	if err != nil {
		e.log.Debug("unreadable python file", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	content := string(raw)
	module := pyModuleName(path)

	// Imports. Only the top-level package matters for the library node key.
	libs := map[string]bool{}
	for _, m := range pyImportRe.FindAllStringSubmatch(content, -1) {
		libs[strings.SplitN(m[1], ".", 2)[0]] = true
	}
	for _, m := range pyFromImportRe.FindAllStringSubmatch(content, -1) {
		top := strings.SplitN(m[1], ".", 2)[0]
		if top != "" {
			libs[top] = true
		}
	}

	var nodes []schemas.Node
	var edges []schemas.Edge

	// Service detection: app construction or any route decorator makes the
	// module a service node keyed by its dotted path.
	framework := ""
	switch {
	case pyFastAPIAppRe.MatchString(content):
		framework = "fastapi"
	case pyFlaskAppRe.MatchString(content):
		framework = "flask"
	case pyRouteClassRe.MatchString(content):
		framework = "unknown"
	}
	var serviceID string
	if framework != "" {
		serviceID = module
		nodes = append(nodes, schemas.Node{
			ID:   serviceID,
			Name: filepath.Base(strings.ReplaceAll(module, ".", "/")),
			Kind: schemas.NodeService,
			Metadata: map[string]any{
				"module":    module,
				"framework": framework,
				"source":    path,
			},
		})
	}

	// ORM models become database nodes keyed module.Class.
	for _, m := range pyClassRe.FindAllStringSubmatch(content, -1) {
		className, bases := m[1], m[2]
		if !pyIsModelBase(bases) {
			continue
		}
		nodes = append(nodes, schemas.Node{
			ID:       module + "." + className,
			Name:     className,
			Kind:     schemas.NodeDatabase,
			Metadata: map[string]any{"module": module, "source": path},
		})
	}

	// Library nodes in sorted order for deterministic output, with a
	// depends_on edge from the service when one was detected.
	sorted := make([]string, 0, len(libs))
	for lib := range libs {
		sorted = append(sorted, lib)
	}
	sort.Strings(sorted)
	for _, lib := range sorted {
		libID := "lib:" + lib
		nodes = append(nodes, schemas.Node{
			ID:       libID,
			Name:     lib,
			Kind:     schemas.NodeLibrary,
			Metadata: map[string]any{"source": module},
		})
		if serviceID != "" {
			edges = append(edges, schemas.Edge{
				Source:   serviceID,
				Target:   libID,
				Kind:     schemas.EdgeDependsOn,
				Metadata: map[string]any{"import": lib},
			})
		}
	}

	return nodes, edges
}

// pyModuleName turns a file path into a dotted module path, trimming
// everything up to and including a "src" path element when present.
func pyModuleName(path string) string {
	clean := strings.TrimSuffix(filepath.ToSlash(path), ".py")
	parts := strings.Split(clean, "/")
	for i, p := range parts {
		if p == "src" && i+1 < len(parts) {
			parts = parts[i+1:]
			break
		}
	}
	// Drop leading path noise like "." or empty segments from absolute paths.
	var kept []string
	for _, p := range parts {
		if p != "" && p != "." {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

func pyIsModelBase(bases string) bool {
	for _, base := range strings.Split(bases, ",") {
		base = strings.TrimSpace(base)
		for _, known := range pyModelBases {
			if base == known {
				return true
			}
		}
	}
	return false
}
