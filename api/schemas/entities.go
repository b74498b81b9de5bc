// Package schemas defines the shared value types exchanged between the
// extraction, graph, rule, storage and reporting layers. These shapes are
// normative for anything that persists or renders a scan.
package schemas

// NodeKind classifies an architecture entity. The set is closed; extractors
// must not invent new kinds.
type NodeKind string

const (
	NodeService       NodeKind = "service"
	NodeDatabase      NodeKind = "database"
	NodeQueue         NodeKind = "queue"
	NodeExternalAPI   NodeKind = "external_api"
	NodeContainer     NodeKind = "container"
	NodeInfraResource NodeKind = "infra_resource"
	NodeLibrary       NodeKind = "library"
)

// NodeKinds lists every node kind in the fixed order used when packaging a
// ScanResult. Order matters: it is part of the observable output contract.
var NodeKinds = []NodeKind{
	NodeService,
	NodeDatabase,
	NodeQueue,
	NodeExternalAPI,
	NodeContainer,
	NodeInfraResource,
	NodeLibrary,
}

// EdgeKind classifies a directed relationship between two nodes.
type EdgeKind string

const (
	EdgeCalls      EdgeKind = "calls"
	EdgeDependsOn  EdgeKind = "depends_on"
	EdgeConnectsTo EdgeKind = "connects_to"
	EdgeBuilds     EdgeKind = "builds"
	EdgeDeploys    EdgeKind = "deploys"
)

// Severity is a descriptive label on a finding. The levels are unordered;
// nothing in the engine ranks or compares them.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Node is a single architecture entity. ID is the sole graph key: two nodes
// with equal IDs are the same node, and the orchestrator keeps only the
// first one extracted. IDs are derived deterministically from artifact
// identity (e.g. "lib:flask", "container:api") so repeated scans of the
// same tree produce the same keys.
type Node struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     NodeKind       `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

// Edge is a directed relationship from Source to Target. Both endpoints
// must already exist in the graph before the edge can be inserted.
type Edge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Kind     EdgeKind       `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

// Finding is one rule-engine output record. Findings have no identity
// beyond their fields and are never merged after production.
type Finding struct {
	RuleID   string         `json:"rule_id"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	NodeIDs  []string       `json:"node_ids"`
	Metadata map[string]any `json:"metadata"`
}

// ScanResult is the immutable unit of persistence and exchange produced at
// the end of a scan. RepoID is a deterministic function of the canonical
// scanned path, so re-scans of the same repository correlate across runs.
type ScanResult struct {
	RepoID   string         `json:"repo_id"`
	Nodes    []Node         `json:"nodes"`
	Edges    []Edge         `json:"edges"`
	Findings []Finding      `json:"findings"`
	Metadata map[string]any `json:"metadata"`
}

// ToMap renders the node in the structural map shape used by graph
// export/import and by the reporting and persistence collaborators.
func (n Node) ToMap() map[string]any {
	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"id":       n.ID,
		"name":     n.Name,
		"type":     string(n.Kind),
		"metadata": meta,
	}
}

// NodeFromMap rebuilds a Node from its map shape. Missing name falls back
// to the id; missing type falls back to service, matching importer behavior
// for hand-edited graph files.
func NodeFromMap(data map[string]any) Node {
	n := Node{Kind: NodeService, Metadata: map[string]any{}}
	if id, ok := data["id"].(string); ok {
		n.ID = id
		n.Name = id
	}
	if name, ok := data["name"].(string); ok {
		n.Name = name
	}
	if typ, ok := data["type"].(string); ok && typ != "" {
		n.Kind = NodeKind(typ)
	}
	if meta, ok := data["metadata"].(map[string]any); ok {
		n.Metadata = meta
	}
	return n
}

// ToMap renders the edge in its structural map shape.
func (e Edge) ToMap() map[string]any {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"source":   e.Source,
		"target":   e.Target,
		"type":     string(e.Kind),
		"metadata": meta,
	}
}

// EdgeFromMap rebuilds an Edge from its map shape. Missing type falls back
// to depends_on.
func EdgeFromMap(data map[string]any) Edge {
	e := Edge{Kind: EdgeDependsOn, Metadata: map[string]any{}}
	if s, ok := data["source"].(string); ok {
		e.Source = s
	}
	if t, ok := data["target"].(string); ok {
		e.Target = t
	}
	if typ, ok := data["type"].(string); ok && typ != "" {
		e.Kind = EdgeKind(typ)
	}
	if meta, ok := data["metadata"].(map[string]any); ok {
		e.Metadata = meta
	}
	return e
}
