package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/archlens/archlens/api/schemas"
)

// kindColors drives node fill colors in rendered diagrams.
var kindColors = map[schemas.NodeKind]string{
	schemas.NodeService:       "#3498db",
	schemas.NodeDatabase:      "#e67e22",
	schemas.NodeQueue:         "#9b59b6",
	schemas.NodeExternalAPI:   "#1abc9c",
	schemas.NodeContainer:     "#e74c3c",
	schemas.NodeInfraResource: "#95a5a6",
	schemas.NodeLibrary:       "#2ecc71",
}

const defaultNodeColor = "#95a5a6"

// DOTReporter emits a Graphviz digraph of the scanned architecture.
type DOTReporter struct {
	out io.WriteCloser
}

func NewDOTReporter(out io.WriteCloser) *DOTReporter {
	return &DOTReporter{out: out}
}

func (r *DOTReporter) Write(result *schemas.ScanResult) error {
	var b strings.Builder

	b.WriteString("digraph architecture {\n")
	b.WriteString("    rankdir=\"LR\";\n")
	b.WriteString("    size=\"12,8\";\n")
	b.WriteString("    dpi=\"150\";\n\n")

	for _, n := range result.Nodes {
		color, ok := kindColors[n.Kind]
		if !ok {
			color = defaultNodeColor
		}
		fmt.Fprintf(&b, "    %q [label=%q, color=%q, style=filled, fillcolor=%q, fontcolor=white];\n",
			n.ID, n.Name, color, color)
	}
	b.WriteString("\n")

	for _, e := range result.Edges {
		fmt.Fprintf(&b, "    %q -> %q [label=%q];\n", e.Source, e.Target, string(e.Kind))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *DOTReporter) Close() error {
	return r.out.Close()
}
