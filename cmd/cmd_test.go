// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/store"
)

// mockScanStore implements scanStore with injectable behavior per method.
type mockScanStore struct {
	saveFn      func(ctx context.Context, repoPath string, result *schemas.ScanResult) (int64, error)
	getScanFn   func(ctx context.Context, scanID int64) (*schemas.ScanResult, error)
	listReposFn func(ctx context.Context) ([]store.Repository, error)
}

func (m *mockScanStore) Migrate(ctx context.Context) error { return nil }

func (m *mockScanStore) SaveResult(ctx context.Context, repoPath string, result *schemas.ScanResult) (int64, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, repoPath, result)
	}
	return 1, nil
}

func (m *mockScanStore) GetScan(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
	if m.getScanFn != nil {
		return m.getScanFn(ctx, scanID)
	}
	return nil, store.ErrScanNotFound
}

func (m *mockScanStore) LatestScan(ctx context.Context, repoID string) (*schemas.ScanResult, error) {
	return nil, store.ErrScanNotFound
}

func (m *mockScanStore) ListScans(ctx context.Context, repoID string) ([]store.ScanSummary, error) {
	return nil, nil
}

func (m *mockScanStore) ListRepositories(ctx context.Context) ([]store.Repository, error) {
	if m.listReposFn != nil {
		return m.listReposFn(ctx)
	}
	return nil, nil
}

// mockStoreProvider hands out a fixed mock store without touching a database.
type mockStoreProvider struct {
	store *mockScanStore
	err   error
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg *config.Config) (scanStore, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() {}, nil
}

func storedResult() *schemas.ScanResult {
	return &schemas.ScanResult{
		RepoID: "feedfacefeedface",
		Nodes: []schemas.Node{
			{ID: "python:api", Name: "api", Kind: schemas.NodeService, Metadata: map[string]any{}},
			{ID: "lib:flask", Name: "flask", Kind: schemas.NodeLibrary, Metadata: map[string]any{}},
		},
		Edges: []schemas.Edge{
			{Source: "python:api", Target: "lib:flask", Kind: schemas.EdgeDependsOn, Metadata: map[string]any{}},
		},
		Findings: []schemas.Finding{
			{RuleID: "secret_detector", Severity: schemas.SeverityWarning, Message: "Possible hardcoded secret", NodeIDs: []string{"python:api"}, Metadata: map[string]any{}},
		},
		Metadata: map[string]any{"repo_path": "/repo"},
	}
}

// execute runs a command with buffered output and a background context.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestScanCommandEndToEnd(t *testing.T) {
	repo := t.TempDir()
	svcDir := filepath.Join(repo, "api")
	require.NoError(t, os.MkdirAll(svcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(svcDir, "requirements.txt"), []byte("flask==2.0\nrequests\n"), 0o644))

	outPath := filepath.Join(t.TempDir(), "report.json")

	cfg = config.NewDefaultConfig()
	out, err := execute(t, rootCmd, "scan", repo, "--output", outPath, "--format", "json")
	require.NoError(t, err)

	assert.Contains(t, out, "Scanning repository: "+repo)
	assert.Contains(t, out, "Scan complete!")
	assert.Contains(t, out, "Report saved to: "+outPath)
	// No database configured, so no scan id line.
	assert.NotContains(t, out, "Saved as scan ID")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result schemas.ScanResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.RepoID, 16)
	assert.NotEmpty(t, result.Nodes)
}

func TestReportCommandPrintsSummary(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{
		getScanFn: func(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
			assert.EqualValues(t, 7, scanID)
			return storedResult(), nil
		},
	}}

	cfg = config.NewDefaultConfig()
	out, err := execute(t, newReportCmd(provider), "7")
	require.NoError(t, err)

	assert.Contains(t, out, "Nodes: 2")
	assert.Contains(t, out, "Edges: 1")
	assert.Contains(t, out, "[warning] secret_detector: Possible hardcoded secret")
}

func TestReportCommandWritesFile(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{
		getScanFn: func(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
			return storedResult(), nil
		},
	}}

	outPath := filepath.Join(t.TempDir(), "report.md")
	cfg = config.NewDefaultConfig()
	out, err := execute(t, newReportCmd(provider), "7", "--output", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Report saved to: "+outPath)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Architecture Analysis Report")
}

func TestReportCommandScanNotFound(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{}}

	cfg = config.NewDefaultConfig()
	_, err := execute(t, newReportCmd(provider), "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan 99 not found")
}

func TestReportCommandRejectsBadScanID(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{}}

	cfg = config.NewDefaultConfig()
	_, err := execute(t, newReportCmd(provider), "not-a-number")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scan id")
}

func TestReposCommandEmpty(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{}}

	cfg = config.NewDefaultConfig()
	out, err := execute(t, newReposCmd(provider))
	require.NoError(t, err)
	assert.Contains(t, out, "No repositories scanned yet")
}

func TestReposCommandListsRepositories(t *testing.T) {
	scanned := mustParseTime(t, "2026-08-01T12:30:00Z")
	provider := &mockStoreProvider{store: &mockScanStore{
		listReposFn: func(ctx context.Context) ([]store.Repository, error) {
			return []store.Repository{
				{ID: "feedfacefeedface", Name: "shop", Path: "/repos/shop", LastScanned: &scanned},
				{ID: "a1b2c3d4e5f60718", Name: "billing", Path: "/repos/billing"},
			}, nil
		},
	}}

	cfg = config.NewDefaultConfig()
	out, err := execute(t, newReposCmd(provider))
	require.NoError(t, err)
	assert.Contains(t, out, "feedfacefeedface: shop (/repos/shop) - Last scanned: 2026-08-01 12:30:00")
	assert.Contains(t, out, "a1b2c3d4e5f60718: billing (/repos/billing) - Last scanned: Never")
}

func TestDiffCommandSummary(t *testing.T) {
	oldResult := storedResult()
	newResult := storedResult()
	newResult.Nodes = append(newResult.Nodes, schemas.Node{
		ID: "python:worker", Name: "worker", Kind: schemas.NodeService, Metadata: map[string]any{},
	})

	provider := &mockStoreProvider{store: &mockScanStore{
		getScanFn: func(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
			if scanID == 1 {
				return oldResult, nil
			}
			return newResult, nil
		},
	}}

	cfg = config.NewDefaultConfig()
	out, err := execute(t, newDiffCmd(provider), "--run1", "1", "--run2", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Added nodes: 1")
	assert.Contains(t, out, "Removed nodes: 0")
}

func TestDiffCommandWritesReport(t *testing.T) {
	provider := &mockStoreProvider{store: &mockScanStore{
		getScanFn: func(ctx context.Context, scanID int64) (*schemas.ScanResult, error) {
			return storedResult(), nil
		},
	}}

	outPath := filepath.Join(t.TempDir(), "diff.md")
	cfg = config.NewDefaultConfig()
	out, err := execute(t, newDiffCmd(provider), "--run1", "1", "--run2", "2", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Diff report saved to: "+outPath)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Architecture Diff Report")
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed.UTC()
}
