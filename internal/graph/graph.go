// Package graph owns the in-memory directed dependency graph built during a
// scan. It is a derived, rebuildable view: after packaging, the ScanResult's
// node and edge lists are the source of truth and the live graph can be
// discarded or rebuilt from them on demand.
//
// The representation is a plain adjacency map (node id -> node data, node
// id -> outgoing arcs). The engine performs no I/O; serialization is layered
// on top in serializer.go.
package graph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

// ErrDanglingEndpoint is returned by AddEdge when the source or target key
// has not been added as a node. The orchestrator catches it and drops the
// offending edge; any other caller should treat it as an extractor bug or an
// unresolved cross-file reference.
var ErrDanglingEndpoint = fmt.Errorf("edge endpoint not present in graph")

// arc is one stored outgoing edge. Only one arc is kept per ordered
// (source, target) pair; re-adding overwrites kind and metadata.
type arc struct {
	target   string
	kind     schemas.EdgeKind
	metadata map[string]any
}

// Graph is a directed graph keyed by node ID. It is exclusively owned by a
// single in-flight scan and is not safe for concurrent mutation.
type Graph struct {
	nodes    map[string]schemas.Node
	order    []string         // node ids in insertion order
	outgoing map[string][]arc // source id -> arcs in insertion order
	incoming map[string][]string
	edgeIdx  map[[2]string]int // (source, target) -> index into outgoing[source]
	log      *zap.Logger
}

// New creates an empty graph.
func New(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		nodes:    make(map[string]schemas.Node),
		outgoing: make(map[string][]arc),
		incoming: make(map[string][]string),
		edgeIdx:  make(map[[2]string]int),
		log:      logger.Named("graph"),
	}
}

// AddNode inserts a node, overwriting any existing node with the same ID.
// Insertion order is preserved for the first occurrence of each ID.
func (g *Graph) AddNode(node schemas.Node) {
	if _, exists := g.nodes[node.ID]; !exists {
		g.order = append(g.order, node.ID)
	}
	g.nodes[node.ID] = node
	g.log.Debug("node added", zap.String("id", node.ID), zap.String("kind", string(node.Kind)))
}

// AddEdge inserts a directed arc. Both endpoints must already exist as
// nodes, otherwise ErrDanglingEndpoint is returned and the graph is left
// unchanged. Adding a second edge between the same ordered pair overwrites
// the stored kind and metadata; deduplication policy lives in the
// orchestrator, not here.
func (g *Graph) AddEdge(edge schemas.Edge) error {
	if _, ok := g.nodes[edge.Source]; !ok {
		return fmt.Errorf("source %q: %w", edge.Source, ErrDanglingEndpoint)
	}
	if _, ok := g.nodes[edge.Target]; !ok {
		return fmt.Errorf("target %q: %w", edge.Target, ErrDanglingEndpoint)
	}

	key := [2]string{edge.Source, edge.Target}
	a := arc{target: edge.Target, kind: edge.Kind, metadata: edge.Metadata}
	if idx, ok := g.edgeIdx[key]; ok {
		g.outgoing[edge.Source][idx] = a
		return nil
	}
	g.edgeIdx[key] = len(g.outgoing[edge.Source])
	g.outgoing[edge.Source] = append(g.outgoing[edge.Source], a)
	g.incoming[edge.Target] = append(g.incoming[edge.Target], edge.Source)
	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node for id and whether it exists.
func (g *Graph) Node(id string) (schemas.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []schemas.Node {
	out := make([]schemas.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// NodesOfKind returns all nodes of the given kind in insertion order.
func (g *Graph) NodesOfKind(kind schemas.NodeKind) []schemas.Node {
	var out []schemas.Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns every edge in the graph, grouped by source node in
// insertion order.
func (g *Graph) Edges() []schemas.Edge {
	var out []schemas.Edge
	for _, src := range g.order {
		for _, a := range g.outgoing[src] {
			out = append(out, schemas.Edge{
				Source:   src,
				Target:   a.target,
				Kind:     a.kind,
				Metadata: a.metadata,
			})
		}
	}
	return out
}

// InDegree returns the number of incoming edges for id; zero for unknown
// ids (unknown keys are not an error for degree and adjacency queries).
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// OutDegree returns the number of outgoing edges for id.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// Predecessors returns the ids of nodes with an edge into id.
func (g *Graph) Predecessors(id string) []string {
	if len(g.incoming[id]) == 0 {
		return nil
	}
	out := make([]string, len(g.incoming[id]))
	copy(out, g.incoming[id])
	return out
}

// Successors returns the ids of nodes id has an edge to.
func (g *Graph) Successors(id string) []string {
	arcs := g.outgoing[id]
	if len(arcs) == 0 {
		return nil
	}
	out := make([]string, 0, len(arcs))
	for _, a := range arcs {
		out = append(out, a.target)
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edgeIdx) }

// Export renders the graph as a node-link structural map:
// {"nodes": [{id,name,type,metadata}], "edges": [{source,target,type,metadata}]}.
// The round-trip through Import is lossless for those four fields per entity.
func (g *Graph) Export() map[string]any {
	nodes := make([]map[string]any, 0, len(g.order))
	for _, n := range g.Nodes() {
		nodes = append(nodes, n.ToMap())
	}
	edges := make([]map[string]any, 0, len(g.edgeIdx))
	for _, e := range g.Edges() {
		edges = append(edges, e.ToMap())
	}
	return map[string]any{"nodes": nodes, "edges": edges}
}

// Import rebuilds a graph from the structural map produced by Export. Edges
// referencing unknown nodes are rejected with ErrDanglingEndpoint.
func Import(data map[string]any, logger *zap.Logger) (*Graph, error) {
	g := New(logger)

	rawNodes, _ := data["nodes"].([]map[string]any)
	if rawNodes == nil {
		// JSON decoding yields []any; accept both shapes.
		if anyNodes, ok := data["nodes"].([]any); ok {
			for _, item := range anyNodes {
				if m, ok := item.(map[string]any); ok {
					rawNodes = append(rawNodes, m)
				}
			}
		}
	}
	for _, m := range rawNodes {
		g.AddNode(schemas.NodeFromMap(m))
	}

	rawEdges, _ := data["edges"].([]map[string]any)
	if rawEdges == nil {
		if anyEdges, ok := data["edges"].([]any); ok {
			for _, item := range anyEdges {
				if m, ok := item.(map[string]any); ok {
					rawEdges = append(rawEdges, m)
				}
			}
		}
	}
	for _, m := range rawEdges {
		if err := g.AddEdge(schemas.EdgeFromMap(m)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromResult rebuilds a live graph from a persisted ScanResult, e.g. for
// reporting on a historical scan. Dangling edges should not exist in a
// packaged result; if one does, it is an error rather than a skip.
func FromResult(result *schemas.ScanResult, logger *zap.Logger) (*Graph, error) {
	g := New(logger)
	for _, n := range result.Nodes {
		g.AddNode(n)
	}
	for _, e := range result.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}
