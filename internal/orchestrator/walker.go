package orchestrator

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// walker collects scan candidates from a repository tree. Excluded
// directories are pruned during traversal so their subtrees are never
// visited; include patterns gate which files become candidates.
type walker struct {
	includePatterns []string
	excludeDirs     map[string]bool
	log             *zap.Logger
}

func newWalker(includePatterns, excludeDirs []string, logger *zap.Logger) *walker {
	excluded := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = true
	}
	return &walker{
		includePatterns: includePatterns,
		excludeDirs:     excluded,
		log:             logger.Named("walker"),
	}
}

// collect returns matching file paths under root in lexical order. Traversal
// errors on individual entries are skipped, not propagated: a permission
// problem deep in the tree must not abort the scan.
func (w *walker) collect(root string) []string {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Debug("walk error, skipping entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && w.excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if w.matches(root, path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		w.log.Warn("repository walk aborted", zap.String("root", root), zap.Error(err))
	}

	sort.Strings(files)
	return files
}

// matches checks a file against the include patterns. Patterns without a
// path separator match the base name; patterns with one match the
// slash-normalized path relative to the walk root.
func (w *walker) matches(root, path string) bool {
	base := filepath.Base(path)
	rel, relErr := filepath.Rel(root, path)
	for _, pattern := range w.includePatterns {
		if strings.ContainsRune(pattern, '/') {
			if relErr == nil {
				if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
					return true
				}
			}
			continue
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
