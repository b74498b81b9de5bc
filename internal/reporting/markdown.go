package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/archlens/archlens/api/schemas"
)

// MarkdownReporter renders a human-readable architecture report.
type MarkdownReporter struct {
	out io.WriteCloser
	now func() time.Time
}

func NewMarkdownReporter(out io.WriteCloser) *MarkdownReporter {
	return &MarkdownReporter{out: out, now: time.Now}
}

func (r *MarkdownReporter) Write(result *schemas.ScanResult) error {
	var b strings.Builder

	b.WriteString("# Architecture Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", r.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Repository ID:** %s\n\n", result.RepoID)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Nodes:** %d\n", len(result.Nodes))
	fmt.Fprintf(&b, "- **Total Edges:** %d\n", len(result.Edges))
	fmt.Fprintf(&b, "- **Findings:** %d\n\n", len(result.Findings))

	b.WriteString("## Node Statistics\n\n")
	for _, kc := range countByKey(result.Nodes, func(n schemas.Node) string { return string(n.Kind) }) {
		fmt.Fprintf(&b, "- **%s:** %d\n", kc.key, kc.count)
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	if len(result.Findings) == 0 {
		b.WriteString("No findings detected.\n\n")
	}
	for _, f := range result.Findings {
		fmt.Fprintf(&b, "### %s %s\n\n", severityEmoji(f.Severity), f.RuleID)
		fmt.Fprintf(&b, "**Severity:** %s\n\n", f.Severity)
		fmt.Fprintf(&b, "**Message:** %s\n\n", f.Message)
		if len(f.NodeIDs) > 0 {
			fmt.Fprintf(&b, "**Affected Nodes:** %s\n\n", strings.Join(f.NodeIDs, ", "))
		}
	}

	b.WriteString("## Top Central Nodes\n\n")
	central := topCentralNodes(result, 10)
	if len(central) == 0 {
		b.WriteString("No nodes in graph.\n")
	}
	for _, c := range central {
		fmt.Fprintf(&b, "- **%s** (centrality: %.3f)\n", c.id, c.centrality)
	}
	b.WriteString("\n")

	b.WriteString("## Dependency Matrix\n\n### Edges by Type\n\n")
	for _, kc := range countByKey(result.Edges, func(e schemas.Edge) string { return string(e.Kind) }) {
		fmt.Fprintf(&b, "- **%s:** %d\n", kc.key, kc.count)
	}
	b.WriteString("\n")

	b.WriteString("## Suggested Improvements\n\n")
	for _, s := range suggestions(result) {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *MarkdownReporter) Close() error {
	return r.out.Close()
}

type keyCount struct {
	key   string
	count int
}

func countByKey[T any](items []T, key func(T) string) []keyCount {
	counts := map[string]int{}
	for _, item := range items {
		counts[key(item)]++
	}
	out := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

type centralNode struct {
	id         string
	centrality float64
}

// topCentralNodes ranks nodes by degree centrality: total degree divided by
// the number of other nodes.
func topCentralNodes(result *schemas.ScanResult, limit int) []centralNode {
	if len(result.Nodes) == 0 {
		return nil
	}
	degree := make(map[string]int, len(result.Nodes))
	for _, n := range result.Nodes {
		degree[n.ID] = 0
	}
	for _, e := range result.Edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	denominator := float64(len(result.Nodes) - 1)
	nodes := make([]centralNode, 0, len(degree))
	for _, n := range result.Nodes {
		c := 0.0
		if denominator > 0 {
			c = float64(degree[n.ID]) / denominator
		}
		nodes = append(nodes, centralNode{id: n.ID, centrality: c})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].centrality != nodes[j].centrality {
			return nodes[i].centrality > nodes[j].centrality
		}
		return nodes[i].id < nodes[j].id
	})
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes
}

func severityEmoji(severity schemas.Severity) string {
	switch severity {
	case schemas.SeverityError:
		return ":x:"
	case schemas.SeverityWarning:
		return ":warning:"
	case schemas.SeverityInfo:
		return ":information_source:"
	}
	return ":question:"
}

func suggestions(result *schemas.ScanResult) []string {
	seen := map[string]bool{}
	for _, f := range result.Findings {
		seen[f.RuleID] = true
	}

	var out []string
	if seen["circular_dependency"] {
		out = append(out, "Review and break circular dependencies to improve maintainability")
	}
	if seen["single_point_failure"] {
		out = append(out, "Add redundancy for critical services that have many dependencies")
	}
	if seen["secret_detector"] {
		out = append(out, "Move secrets to environment variables or a secrets manager")
	}
	if len(out) == 0 {
		out = append(out,
			"Architecture looks healthy!",
			"Consider adding monitoring and alerting for production deployments")
	}
	return out
}
