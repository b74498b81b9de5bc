// File: cmd/report.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/archlens/archlens/internal/observability"
	"github.com/archlens/archlens/internal/store"
)

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var outputPath string
	var format string

	reportCmd := &cobra.Command{
		Use:   "report [scan-id]",
		Short: "Generate a report from a previous scan",
		Long: `Loads a stored scan result by its numeric ID and renders it in the
requested format. Without --output the nodes, edges and findings are
summarized on stdout instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			scanID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid scan id %q: %w", args[0], err)
			}

			return runReport(ctx, cmd, logger, scanID, outputPath, format, provider)
		},
	}

	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, a summary is printed to stdout.")
	reportCmd.Flags().StringVarP(&format, "format", "f", "markdown", "Report format ('markdown', 'dot', 'json').")

	return reportCmd
}

// runReport contains the core, testable logic for generating a report.
func runReport(
	ctx context.Context,
	cmd *cobra.Command,
	logger *zap.Logger,
	scanID int64,
	outputPath, format string,
	provider storeProvider,
) error {
	logger.Info("Generating scan report", zap.Int64("scan_id", scanID))

	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	result, err := storeService.GetScan(ctx, scanID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			return fmt.Errorf("scan %d not found", scanID)
		}
		return fmt.Errorf("failed to load scan %d: %w", scanID, err)
	}

	if outputPath == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Nodes: %d\n", len(result.Nodes))
		fmt.Fprintf(cmd.OutOrStdout(), "Edges: %d\n", len(result.Edges))
		fmt.Fprintln(cmd.OutOrStdout(), "Findings:")
		for _, f := range result.Findings {
			fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s: %s\n", f.Severity, f.RuleID, f.Message)
		}
		return nil
	}

	if err := writeReport(result, format, outputPath, logger); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", outputPath)
	return nil
}
