// File: cmd/diff.go
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/internal/observability"
	"github.com/archlens/archlens/internal/reporting"
	"github.com/archlens/archlens/internal/store"
)

// newDiffCmd creates the `diff` command comparing two stored scans.
func newDiffCmd(provider storeProvider) *cobra.Command {
	var run1, run2 int64
	var outputPath string

	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two scans and generate a diff report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			storeService, cleanup, err := provider.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			if cleanup != nil {
				defer cleanup()
			}

			oldResult, err := storeService.GetScan(ctx, run1)
			if err != nil {
				if errors.Is(err, store.ErrScanNotFound) {
					return fmt.Errorf("scan %d not found", run1)
				}
				return fmt.Errorf("failed to load scan %d: %w", run1, err)
			}
			newResult, err := storeService.GetScan(ctx, run2)
			if err != nil {
				if errors.Is(err, store.ErrScanNotFound) {
					return fmt.Errorf("scan %d not found", run2)
				}
				return fmt.Errorf("failed to load scan %d: %w", run2, err)
			}

			if outputPath == "" {
				// Quick summary on stdout when no report file is requested.
				oldNodes := make(map[string]struct{}, len(oldResult.Nodes))
				for _, n := range oldResult.Nodes {
					oldNodes[n.ID] = struct{}{}
				}
				var added, removed int
				seen := make(map[string]struct{}, len(newResult.Nodes))
				for _, n := range newResult.Nodes {
					seen[n.ID] = struct{}{}
					if _, ok := oldNodes[n.ID]; !ok {
						added++
					}
				}
				for id := range oldNodes {
					if _, ok := seen[id]; !ok {
						removed++
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Diff Report:")
				fmt.Fprintf(cmd.OutOrStdout(), "  Added nodes: %d\n", added)
				fmt.Fprintf(cmd.OutOrStdout(), "  Removed nodes: %d\n", removed)
				return nil
			}

			file, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to create diff report file %s: %w", outputPath, err)
			}
			diffReporter := reporting.NewDiffReporter(file)
			defer func() {
				if err := diffReporter.Close(); err != nil {
					logger.Warn("Failed to close diff reporter cleanly.")
				}
			}()

			if err := diffReporter.WriteDiff(oldResult, newResult); err != nil {
				return fmt.Errorf("failed to write diff report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Diff report saved to: %s\n", outputPath)
			return nil
		},
	}

	diffCmd.Flags().Int64Var(&run1, "run1", 0, "First scan ID to compare (required)")
	diffCmd.Flags().Int64Var(&run2, "run2", 0, "Second scan ID to compare (required)")
	_ = diffCmd.MarkFlagRequired("run1")
	_ = diffCmd.MarkFlagRequired("run2")
	diffCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the diff report")

	return diffCmd
}
