package graph

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON exports the graph's node-link map to a JSON file. This is the
// only I/O the graph package performs and it operates on the exported map,
// never on the live structure.
func (g *Graph) WriteJSON(path string) error {
	data, err := json.MarshalIndent(g.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write graph file %s: %w", path, err)
	}
	return nil
}

// ReadJSON imports a graph from a JSON file previously produced by
// WriteJSON (or any file honoring the node-link shape).
func ReadJSON(path string, logger *zap.Logger) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph file %s: %w", path, err)
	}
	return Import(data, logger)
}
