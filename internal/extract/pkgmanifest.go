package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

var (
	// requirement lines: name followed by an optional version specifier.
	reqLineRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*([=<>!~]+.*)?$`)

	// pyproject [project] dependencies array, parsed textually. A TOML
	// decoder buys nothing here: only the quoted strings matter.
	pyprojectDepsRe  = regexp.MustCompile(`(?s)dependencies\s*=\s*\[(.*?)\]`)
	pyprojectNameRe  = regexp.MustCompile(`(?m)^name\s*=\s*"([^"]+)"`)
	quotedStringRe   = regexp.MustCompile(`"([^"]+)"`)
	pyReqSpecSplitRe = regexp.MustCompile(`[=<>!~\[; ]`)
)

// PackageManifestExtractor handles package.json, requirements.txt and
// pyproject.toml. Each manifest yields a project node plus one library node
// and depends_on edge per declared dependency.
type PackageManifestExtractor struct {
	log *zap.Logger
}

func NewPackageManifestExtractor(logger *zap.Logger) *PackageManifestExtractor {
	return &PackageManifestExtractor{log: logger.Named("extract.pkgmanifest")}
}

func (e *PackageManifestExtractor) Name() string { return "pkgmanifest" }

func (e *PackageManifestExtractor) CanHandle(path string) bool {
	switch filepath.Base(path) {
	case "package.json", "requirements.txt", "pyproject.toml":
		return true
	}
	return false
}

func (e *PackageManifestExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.Warn("manifest unreadable", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	switch filepath.Base(path) {
	case "package.json":
		return e.extractPackageJSON(path, data)
	case "requirements.txt":
		return e.extractRequirements(path, data)
	case "pyproject.toml":
		return e.extractPyproject(path, data)
	}
	return nil, nil
}

func (e *PackageManifestExtractor) extractPackageJSON(path string, data []byte) ([]schemas.Node, []schemas.Edge) {
	var manifest struct {
		Name            string            `json:"name"`
		Version         string            `json:"version"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		e.log.Warn("malformed package.json", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	name := manifest.Name
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}
	projectID := "npm:" + name

	nodes := []schemas.Node{{
		ID:   projectID,
		Name: name,
		Kind: schemas.NodeService,
		Metadata: map[string]any{
			"language": "javascript",
			"version":  manifest.Version,
			"source":   path,
		},
	}}
	var edges []schemas.Edge

	appendDeps := func(deps map[string]string, dev bool) {
		names := make([]string, 0, len(deps))
		for dep := range deps {
			names = append(names, dep)
		}
		sort.Strings(names)
		for _, dep := range names {
			libID := "lib:" + dep
			nodes = append(nodes, schemas.Node{
				ID:   libID,
				Name: dep,
				Kind: schemas.NodeLibrary,
				Metadata: map[string]any{
					"version":         deps[dep],
					"package_manager": "npm",
					"dev":             dev,
					"source":          path,
				},
			})
			edges = append(edges, schemas.Edge{
				Source:   projectID,
				Target:   libID,
				Kind:     schemas.EdgeDependsOn,
				Metadata: map[string]any{"version": deps[dep], "dev": dev},
			})
		}
	}
	appendDeps(manifest.Dependencies, false)
	appendDeps(manifest.DevDependencies, true)
	return nodes, edges
}

func (e *PackageManifestExtractor) extractRequirements(path string, data []byte) ([]schemas.Node, []schemas.Edge) {
	projectName := filepath.Base(filepath.Dir(path))
	projectID := "python:" + projectName

	nodes := []schemas.Node{{
		ID:   projectID,
		Name: projectName,
		Kind: schemas.NodeService,
		Metadata: map[string]any{
			"language": "python",
			"source":   path,
		},
	}}
	var edges []schemas.Edge

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := reqLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dep, spec := m[1], strings.TrimSpace(m[2])
		libID := "lib:" + strings.ToLower(dep)
		nodes = append(nodes, schemas.Node{
			ID:   libID,
			Name: dep,
			Kind: schemas.NodeLibrary,
			Metadata: map[string]any{
				"version":         spec,
				"package_manager": "pip",
				"source":          path,
			},
		})
		edges = append(edges, schemas.Edge{
			Source:   projectID,
			Target:   libID,
			Kind:     schemas.EdgeDependsOn,
			Metadata: map[string]any{"version": spec},
		})
	}
	return nodes, edges
}

func (e *PackageManifestExtractor) extractPyproject(path string, data []byte) ([]schemas.Node, []schemas.Edge) {
	content := string(data)

	projectName := filepath.Base(filepath.Dir(path))
	if m := pyprojectNameRe.FindStringSubmatch(content); m != nil {
		projectName = m[1]
	}
	projectID := "python:" + projectName

	nodes := []schemas.Node{{
		ID:   projectID,
		Name: projectName,
		Kind: schemas.NodeService,
		Metadata: map[string]any{
			"language": "python",
			"source":   path,
		},
	}}
	var edges []schemas.Edge

	depsBlock := pyprojectDepsRe.FindStringSubmatch(content)
	if depsBlock == nil {
		return nodes, edges
	}
	for _, m := range quotedStringRe.FindAllStringSubmatch(depsBlock[1], -1) {
		requirement := strings.TrimSpace(m[1])
		dep := pyReqSpecSplitRe.Split(requirement, 2)[0]
		if dep == "" {
			continue
		}
		spec := strings.TrimSpace(strings.TrimPrefix(requirement, dep))
		libID := "lib:" + strings.ToLower(dep)
		nodes = append(nodes, schemas.Node{
			ID:   libID,
			Name: dep,
			Kind: schemas.NodeLibrary,
			Metadata: map[string]any{
				"version":         spec,
				"package_manager": "pip",
				"source":          path,
			},
		})
		edges = append(edges, schemas.Edge{
			Source:   projectID,
			Target:   libID,
			Kind:     schemas.EdgeDependsOn,
			Metadata: map[string]any{"version": spec},
		})
	}
	return nodes, edges
}
