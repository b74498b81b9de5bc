// File: cmd/repos.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReposCmd creates the `repos` command listing scanned repositories.
func newReposCmd(provider storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List all scanned repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			storeService, cleanup, err := provider.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			if cleanup != nil {
				defer cleanup()
			}

			repos, err := storeService.ListRepositories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}

			if len(repos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No repositories scanned yet")
				return nil
			}

			for _, repo := range repos {
				lastScanned := "Never"
				if repo.LastScanned != nil {
					lastScanned = repo.LastScanned.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s (%s) - Last scanned: %s\n",
					repo.ID, repo.Name, repo.Path, lastScanned)
			}
			return nil
		},
	}
}
