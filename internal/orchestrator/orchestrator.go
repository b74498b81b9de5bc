// Package orchestrator manages the high-level lifecycle of a scan: walking
// the repository, dispatching files to extractors, deduplicating entities,
// building the graph and evaluating rules into an immutable ScanResult.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/extract"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/rules"
)

// Orchestrator coordinates extraction and rule evaluation for a scan.
type Orchestrator struct {
	cfg        *config.Config
	logger     *zap.Logger
	extractors []schemas.Extractor
	rules      []rules.Rule
}

// New creates an Orchestrator with the default extractor and rule sets,
// filtered and parameterized by configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	logger = logger.Named("orchestrator")
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		extractors: extract.Defaults(logger),
		rules:      rules.Enabled(rules.Defaults(cfg.Scan.SPOFThreshold, logger), cfg.Scan.EnabledRules),
	}, nil
}

// RepoID derives the stable repository identifier from the canonical
// absolute path: the first 16 hex characters of its SHA-256.
func RepoID(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return hex.EncodeToString(sum[:])[:16]
}

// Scan runs the full pipeline against a repository and returns the result.
// The returned ScanResult is never mutated afterwards.
func (o *Orchestrator) Scan(ctx context.Context, repoPath string) (*schemas.ScanResult, error) {
	repoPath, err := canonicalPath(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repository path: %w", err)
	}

	scanID := uuid.NewString()
	log := o.logger.With(zap.String("scan_id", scanID), zap.String("repo", repoPath))
	log.Info("Starting repository scan")

	nodes, edges, err := o.collectEntities(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	log.Info("Extraction complete",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))

	g := o.buildGraph(nodes, edges)

	findings := o.evaluateRules(g)
	log.Info("Rule evaluation complete", zap.Int("findings", len(findings)))

	// Node order in the result is fixed by kind, then insertion order
	// within each kind, so repeated scans of the same tree are comparable.
	var ordered []schemas.Node
	for _, kind := range schemas.NodeKinds {
		ordered = append(ordered, g.NodesOfKind(kind)...)
	}

	return &schemas.ScanResult{
		RepoID:   RepoID(repoPath),
		Nodes:    ordered,
		Edges:    g.Edges(),
		Findings: findings,
		Metadata: map[string]any{"repo_path": repoPath},
	}, nil
}

// collectEntities walks the repository and runs extractors over candidate
// files. Extraction is parallelized, but results are merged in sorted file
// order so first-seen node deduplication stays deterministic.
func (o *Orchestrator) collectEntities(ctx context.Context, repoPath string) ([]schemas.Node, []schemas.Edge, error) {
	files := newWalker(o.cfg.Scan.IncludePatterns, o.cfg.Scan.ExcludeDirs, o.logger).collect(repoPath)

	type extraction struct {
		nodes []schemas.Node
		edges []schemas.Edge
	}
	results := make([]extraction, len(files))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(o.cfg.Scan.Workers)
	for i, file := range files {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ex := extract.Select(o.extractors, file)
			if ex == nil {
				return nil
			}
			info, err := os.Stat(file)
			if err != nil || info.Size() > o.cfg.Scan.MaxFileSize {
				return nil
			}
			results[i].nodes, results[i].edges = ex.Extract(file)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, fmt.Errorf("extraction aborted: %w", err)
	}

	var allNodes []schemas.Node
	var allEdges []schemas.Edge
	seenNodes := make(map[string]bool)
	for _, res := range results {
		for _, node := range res.nodes {
			if seenNodes[node.ID] {
				continue
			}
			seenNodes[node.ID] = true
			allNodes = append(allNodes, node)
		}
		allEdges = append(allEdges, res.edges...)
	}
	return allNodes, allEdges, nil
}

// buildGraph assembles the deduplicated graph. Edge deduplication keys on
// the ordered (source, target) pair only: two edges between the same pair
// with different kinds collapse to whichever came first. Edges referencing
// unknown endpoints are dropped.
func (o *Orchestrator) buildGraph(nodes []schemas.Node, edges []schemas.Edge) *graph.Graph {
	g := graph.New(o.logger)
	for _, node := range nodes {
		g.AddNode(node)
	}

	seenEdges := make(map[[2]string]bool)
	for _, edge := range edges {
		key := [2]string{edge.Source, edge.Target}
		if seenEdges[key] {
			continue
		}
		if err := g.AddEdge(edge); err != nil {
			o.logger.Debug("dropping dangling edge",
				zap.String("source", edge.Source),
				zap.String("target", edge.Target),
				zap.Error(err))
			continue
		}
		seenEdges[key] = true
	}
	return g
}

func (o *Orchestrator) evaluateRules(g *graph.Graph) []schemas.Finding {
	findings := []schemas.Finding{}
	for _, rule := range o.rules {
		findings = append(findings, rule.Evaluate(g)...)
	}
	return findings
}

// canonicalPath resolves a repository path to its canonical absolute form
// so two spellings of the same directory produce the same repo id.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
