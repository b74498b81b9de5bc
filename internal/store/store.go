// Package store persists scan results in PostgreSQL. Each scan gets an
// auto-incrementing id; nodes, edges and findings are bulk-copied per scan
// and read back to rebuild the immutable ScanResult.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

// ErrScanNotFound is returned when a scan id has no stored result.
var ErrScanNotFound = errors.New("scan not found")

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is a registered scan target.
type Repository struct {
	ID          string
	Name        string
	Path        string
	CreatedAt   time.Time
	LastScanned *time.Time
}

// ScanSummary describes one stored scan without its entity payload.
type ScanSummary struct {
	ID        int64
	RepoID    string
	ScannedAt time.Time
	Metadata  map[string]any
}

// Store provides the PostgreSQL persistence layer.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		last_scanned TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS scans (
		id BIGSERIAL PRIMARY KEY,
		repo_id TEXT NOT NULL REFERENCES repositories(id),
		scanned_at TIMESTAMPTZ NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS scan_nodes (
		scan_id BIGINT NOT NULL REFERENCES scans(id),
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (scan_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS scan_edges (
		id BIGSERIAL PRIMARY KEY,
		scan_id BIGINT NOT NULL REFERENCES scans(id),
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		type TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS scan_findings (
		id BIGSERIAL PRIMARY KEY,
		scan_id BIGINT NOT NULL REFERENCES scans(id),
		rule_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		node_ids JSONB NOT NULL DEFAULT '[]',
		metadata JSONB NOT NULL DEFAULT '{}'
	)`,
}

// Migrate creates the schema when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

// SaveResult registers the repository, inserts a scan row and bulk-copies
// the result's entities within one transaction. It returns the new scan id.
func (s *Store) SaveResult(ctx context.Context, repoPath string, result *schemas.ScanResult) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO repositories (id, name, path, created_at, last_scanned)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			path = EXCLUDED.path,
			last_scanned = EXCLUDED.last_scanned`,
		result.RepoID, filepath.Base(repoPath), repoPath, now)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert repository: %w", err)
	}

	metadata, err := json.Marshal(orEmptyMap(result.Metadata))
	if err != nil {
		return 0, fmt.Errorf("failed to encode scan metadata: %w", err)
	}

	var scanID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO scans (repo_id, scanned_at, metadata)
		VALUES ($1, $2, $3) RETURNING id`,
		result.RepoID, now, metadata).Scan(&scanID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}

	if err := s.persistNodes(ctx, tx, scanID, result.Nodes); err != nil {
		return 0, err
	}
	if err := s.persistEdges(ctx, tx, scanID, result.Edges); err != nil {
		return 0, err
	}
	if err := s.persistFindings(ctx, tx, scanID, result.Findings); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return scanID, nil
}

func (s *Store) persistNodes(ctx context.Context, tx pgx.Tx, scanID int64, nodes []schemas.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(nodes))
	for i, n := range nodes {
		metadata, err := json.Marshal(orEmptyMap(n.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for node %s: %w", n.ID, err)
		}
		rows[i] = []interface{}{scanID, n.ID, n.Name, string(n.Kind), metadata}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"scan_nodes"},
		[]string{"scan_id", "id", "name", "type", "metadata"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy nodes: %w", err)
	}
	if int(copied) != len(nodes) {
		return fmt.Errorf("mismatch in copied node count: expected %d, got %d", len(nodes), copied)
	}
	return nil
}

func (s *Store) persistEdges(ctx context.Context, tx pgx.Tx, scanID int64, edges []schemas.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(edges))
	for i, e := range edges {
		metadata, err := json.Marshal(orEmptyMap(e.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for edge %s->%s: %w", e.Source, e.Target, err)
		}
		rows[i] = []interface{}{scanID, e.Source, e.Target, string(e.Kind), metadata}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"scan_edges"},
		[]string{"scan_id", "source", "target", "type", "metadata"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy edges: %w", err)
	}
	if int(copied) != len(edges) {
		return fmt.Errorf("mismatch in copied edge count: expected %d, got %d", len(edges), copied)
	}
	return nil
}

func (s *Store) persistFindings(ctx context.Context, tx pgx.Tx, scanID int64, findings []schemas.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(findings))
	for i, f := range findings {
		nodeIDs, err := json.Marshal(orEmptySlice(f.NodeIDs))
		if err != nil {
			return fmt.Errorf("failed to encode node ids for finding %s: %w", f.RuleID, err)
		}
		metadata, err := json.Marshal(orEmptyMap(f.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for finding %s: %w", f.RuleID, err)
		}
		rows[i] = []interface{}{scanID, f.RuleID, string(f.Severity), f.Message, nodeIDs, metadata}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"scan_findings"},
		[]string{"scan_id", "rule_id", "severity", "message", "node_ids", "metadata"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	if int(copied) != len(findings) {
		return fmt.Errorf("mismatch in copied finding count: expected %d, got %d", len(findings), copied)
	}
	return nil
}

// GetScan rebuilds the stored ScanResult for a scan id.
func (s *Store) GetScan(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
	var repoID string
	var metadataRaw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT repo_id, metadata FROM scans WHERE id = $1`, scanID).
		Scan(&repoID, &metadataRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scan %d: %w", scanID, ErrScanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan: %w", err)
	}

	result := &schemas.ScanResult{RepoID: repoID}
	if err := json.Unmarshal(metadataRaw, &result.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode scan metadata: %w", err)
	}

	if result.Nodes, err = s.scanNodes(ctx, scanID); err != nil {
		return nil, err
	}
	if result.Edges, err = s.scanEdges(ctx, scanID); err != nil {
		return nil, err
	}
	if result.Findings, err = s.scanFindings(ctx, scanID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) scanNodes(ctx context.Context, scanID int64) ([]schemas.Node, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, type, metadata FROM scan_nodes WHERE scan_id = $1`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []schemas.Node
	for rows.Next() {
		var n schemas.Node
		var kind string
		var metadataRaw []byte
		if err := rows.Scan(&n.ID, &n.Name, &kind, &metadataRaw); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		n.Kind = schemas.NodeKind(kind)
		if err := json.Unmarshal(metadataRaw, &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode node metadata: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) scanEdges(ctx context.Context, scanID int64) ([]schemas.Edge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, target, type, metadata FROM scan_edges WHERE scan_id = $1 ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []schemas.Edge
	for rows.Next() {
		var e schemas.Edge
		var kind string
		var metadataRaw []byte
		if err := rows.Scan(&e.Source, &e.Target, &kind, &metadataRaw); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		e.Kind = schemas.EdgeKind(kind)
		if err := json.Unmarshal(metadataRaw, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode edge metadata: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) scanFindings(ctx context.Context, scanID int64) ([]schemas.Finding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rule_id, severity, message, node_ids, metadata FROM scan_findings WHERE scan_id = $1 ORDER BY id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []schemas.Finding
	for rows.Next() {
		var f schemas.Finding
		var severity string
		var nodeIDsRaw, metadataRaw []byte
		if err := rows.Scan(&f.RuleID, &severity, &f.Message, &nodeIDsRaw, &metadataRaw); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		f.Severity = schemas.Severity(severity)
		if err := json.Unmarshal(nodeIDsRaw, &f.NodeIDs); err != nil {
			return nil, fmt.Errorf("failed to decode finding node ids: %w", err)
		}
		if err := json.Unmarshal(metadataRaw, &f.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode finding metadata: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// LatestScan returns the most recent stored result for a repository.
func (s *Store) LatestScan(ctx context.Context, repoID string) (*schemas.ScanResult, error) {
	var scanID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM scans WHERE repo_id = $1 ORDER BY scanned_at DESC, id DESC LIMIT 1`, repoID).
		Scan(&scanID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository %s: %w", repoID, ErrScanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest scan: %w", err)
	}
	return s.GetScan(ctx, scanID)
}

// ListScans returns summaries of all scans for a repository, newest first.
func (s *Store) ListScans(ctx context.Context, repoID string) ([]ScanSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, repo_id, scanned_at, metadata FROM scans WHERE repo_id = $1 ORDER BY scanned_at DESC, id DESC`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []ScanSummary
	for rows.Next() {
		var sc ScanSummary
		var metadataRaw []byte
		if err := rows.Scan(&sc.ID, &sc.RepoID, &sc.ScannedAt, &metadataRaw); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if err := json.Unmarshal(metadataRaw, &sc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode scan metadata: %w", err)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// ListRepositories returns all registered repositories, most recently
// scanned first.
func (s *Store) ListRepositories(ctx context.Context) ([]Repository, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, path, created_at, last_scanned FROM repositories ORDER BY last_scanned DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.CreatedAt, &r.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
