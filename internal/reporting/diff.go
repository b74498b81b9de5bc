package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/archlens/archlens/api/schemas"
)

// DiffReporter renders a markdown comparison of two scan results. Nodes are
// compared by ID, edges by their (source, target) pair and findings by the
// (rule_id, severity, message) triple.
type DiffReporter struct {
	out io.WriteCloser
	now func() time.Time
}

func NewDiffReporter(out io.WriteCloser) *DiffReporter {
	return &DiffReporter{out: out, now: time.Now}
}

// WriteDiff renders the changes going from old to new.
func (r *DiffReporter) WriteDiff(oldResult, newResult *schemas.ScanResult) error {
	var b strings.Builder

	b.WriteString("# Architecture Diff Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.now().UTC().Format(time.RFC3339))

	addedNodes, removedNodes := diffSets(nodeKeys(oldResult), nodeKeys(newResult))
	b.WriteString("## Node Changes\n\n")
	fmt.Fprintf(&b, "- **Added:** %d\n", len(addedNodes))
	fmt.Fprintf(&b, "- **Removed:** %d\n\n", len(removedNodes))
	writeChangeList(&b, "### Added Nodes", addedNodes)
	writeChangeList(&b, "### Removed Nodes", removedNodes)

	addedEdges, removedEdges := diffSets(edgeKeys(oldResult), edgeKeys(newResult))
	b.WriteString("## Edge Changes\n\n")
	fmt.Fprintf(&b, "- **Added:** %d\n", len(addedEdges))
	fmt.Fprintf(&b, "- **Removed:** %d\n\n", len(removedEdges))
	writeChangeList(&b, "### Added Edges", addedEdges)
	writeChangeList(&b, "### Removed Edges", removedEdges)

	oldFindings := findingKeys(oldResult)
	newFindings := findingKeys(newResult)
	added, resolved := diffFindings(oldFindings, newFindings)
	b.WriteString("## Findings Changes\n\n")
	fmt.Fprintf(&b, "- **New:** %d\n", len(added))
	fmt.Fprintf(&b, "- **Resolved:** %d\n\n", len(resolved))
	if len(added) > 0 {
		b.WriteString("### New Findings\n\n")
		for _, f := range added {
			fmt.Fprintf(&b, "- **[%s]** %s: %s\n", f.severity, f.ruleID, f.message)
		}
		b.WriteString("\n")
	}
	if len(resolved) > 0 {
		b.WriteString("### Resolved Findings\n\n")
		for _, f := range resolved {
			fmt.Fprintf(&b, "- ~~%s: %s~~\n", f.ruleID, f.message)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *DiffReporter) Close() error {
	return r.out.Close()
}

func nodeKeys(result *schemas.ScanResult) map[string]struct{} {
	keys := make(map[string]struct{}, len(result.Nodes))
	for _, n := range result.Nodes {
		keys[n.ID] = struct{}{}
	}
	return keys
}

// edgeKeys ignores the edge kind: an edge that only changed kind is not a
// topology change.
func edgeKeys(result *schemas.ScanResult) map[string]struct{} {
	keys := make(map[string]struct{}, len(result.Edges))
	for _, e := range result.Edges {
		keys[e.Source+" -> "+e.Target] = struct{}{}
	}
	return keys
}

type findingKey struct {
	ruleID   string
	severity schemas.Severity
	message  string
}

func findingKeys(result *schemas.ScanResult) map[findingKey]struct{} {
	keys := make(map[findingKey]struct{}, len(result.Findings))
	for _, f := range result.Findings {
		keys[findingKey{f.RuleID, f.Severity, f.Message}] = struct{}{}
	}
	return keys
}

func diffSets(old, updated map[string]struct{}) (added, removed []string) {
	for k := range updated {
		if _, ok := old[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range old {
		if _, ok := updated[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func diffFindings(old, updated map[findingKey]struct{}) (added, resolved []findingKey) {
	for k := range updated {
		if _, ok := old[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range old {
		if _, ok := updated[k]; !ok {
			resolved = append(resolved, k)
		}
	}
	sortFindingKeys(added)
	sortFindingKeys(resolved)
	return added, resolved
}

func sortFindingKeys(keys []findingKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ruleID != keys[j].ruleID {
			return keys[i].ruleID < keys[j].ruleID
		}
		if keys[i].severity != keys[j].severity {
			return keys[i].severity < keys[j].severity
		}
		return keys[i].message < keys[j].message
	})
}

func writeChangeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
