// File: cmd/scan.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/observability"
	"github.com/archlens/archlens/internal/orchestrator"
	"github.com/archlens/archlens/internal/reporting"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd(provider storeProvider) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [repo-path]",
		Short: "Scan a repository and generate an architecture analysis",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line
			// flags correctly override values from the config file and
			// environment variables.
			if err := viper.BindPFlag("scan.workers", cmd.Flags().Lookup("workers")); err != nil {
				return err
			}
			if err := viper.BindPFlag("scan.spof_threshold", cmd.Flags().Lookup("spof-threshold")); err != nil {
				return err
			}
			return viper.BindPFlag("report.format", cmd.Flags().Lookup("format"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-resolve the config. Now that flags are bound in PreRunE,
			// Viper applies the overrides with the right precedence.
			resolved, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			cfg = resolved

			repoPath := args[0]
			outputPath, _ := cmd.Flags().GetString("output")

			orch, err := orchestrator.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create orchestrator: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Scanning repository: %s\n", repoPath)
			result, err := orch.Scan(ctx, repoPath)
			if err != nil {
				logger.Error("Scan failed", zap.Error(err), zap.String("repo_path", repoPath))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Scan complete!")
			fmt.Fprintf(cmd.OutOrStdout(), "  Nodes: %d\n", len(result.Nodes))
			fmt.Fprintf(cmd.OutOrStdout(), "  Edges: %d\n", len(result.Edges))
			fmt.Fprintf(cmd.OutOrStdout(), "  Findings: %d\n", len(result.Findings))

			// Persistence is optional: an unset database URL skips it.
			if cfg.Database.URL != "" {
				scanID, err := saveResult(cmd, provider, repoPath, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  Saved as scan ID: %d\n", scanID)
			} else {
				logger.Debug("Persistence disabled, database URL is empty")
			}

			if outputPath != "" {
				if err := writeReport(result, cfg.Report.Format, outputPath, logger); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", outputPath)
			}
			return nil
		},
	}

	scanCmd.Flags().StringP("output", "o", "", "Output file path for the report. If unset, no report is generated.")
	scanCmd.Flags().StringP("format", "f", "markdown", "Report format ('markdown', 'dot', 'json'). (Overrides config/env)")
	scanCmd.Flags().Int("workers", 0, "Number of concurrent extraction workers. (Overrides config/env)")
	scanCmd.Flags().Int("spof-threshold", 0, "In-degree at which a node counts as a single point of failure. (Overrides config/env)")

	return scanCmd
}

// saveResult persists a scan result through the configured store.
func saveResult(cmd *cobra.Command, provider storeProvider, repoPath string, result *schemas.ScanResult) (int64, error) {
	ctx := cmd.Context()

	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	scanID, err := storeService.SaveResult(ctx, repoPath, result)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan result: %w", err)
	}
	return scanID, nil
}

// writeReport renders a result through the reporting module.
func writeReport(result *schemas.ScanResult, format, outputPath string, logger *zap.Logger) error {
	reporter, err := reporting.New(format, outputPath)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := reporter.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
