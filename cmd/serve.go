package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/server"
)

func newAPICmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the JSON summarization API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(ctx context.Context, app *server.App, _ *config.Config) error {
				return app.RunAPI(ctx)
			})
		},
	}
}

func newUICmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Serve the interactive HTML front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(ctx context.Context, app *server.App, _ *config.Config) error {
				return app.RunUI(ctx)
			})
		},
	}
}
