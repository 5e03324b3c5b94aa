package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/server"
)

func newSyncCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Make the model artifacts available locally without loading the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(ctx context.Context, app *server.App, cfg *config.Config) error {
				dir, err := app.Syncer().EnsureLocal(ctx, cfg.Model.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s ready in %s\n", cfg.Model.ID, dir)
				return nil
			})
		},
	}
}
