package schemas

// Extractor is the per-artifact-family extraction contract. An extractor
// turns one file into nodes and edges; it never returns an error. Malformed
// or unreadable input yields empty results so that a single bad file cannot
// abort a scan.
//
// CanHandle must stay cheap: filename and extension checks, plus at most a
// content peek for ambiguous formats (e.g. YAML that may or may not be a
// Kubernetes manifest). The orchestrator dispatches each candidate file to
// the first extractor, in a fixed priority order, whose CanHandle returns
// true; at most one extractor processes a given file.
type Extractor interface {
	Name() string
	CanHandle(path string) bool
	Extract(path string) ([]Node, []Edge)
}
