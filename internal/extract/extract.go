// Package extract implements the per-artifact-family extractors that turn
// individual repository files into graph entities. Extractors are
// deliberately forgiving: malformed input never produces an error, only
// empty results, so one broken file cannot abort a scan.
package extract

import (
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

// Defaults returns the built-in extractors in dispatch priority order. The
// orchestrator hands each candidate file to the first extractor whose
// CanHandle accepts it, so order matters for ambiguous names.
func Defaults(logger *zap.Logger) []schemas.Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []schemas.Extractor{
		NewPythonExtractor(logger),
		NewGoModExtractor(logger),
		NewTerraformExtractor(logger),
		NewDockerExtractor(logger),
		NewKubernetesExtractor(logger),
		NewPackageManifestExtractor(logger),
	}
}

// Select returns the first extractor that can handle path, or nil.
func Select(extractors []schemas.Extractor, path string) schemas.Extractor {
	for _, ex := range extractors {
		if ex.CanHandle(path) {
			return ex
		}
	}
	return nil
}
