// Package cmd defines the summarizer CLI: the API and UI servers, a
// supervisor that runs both, a one-shot summarize command, and artifact sync.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/server"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// buildApp is the application factory. It is a variable so tests can swap it.
var buildApp = func(ctx context.Context, cfg *config.Config) (*server.App, error) {
	return server.Build(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "summarizer",
		Short: "Summarize news articles with a locally mirrored model.",
		Long: `summarizer fetches a news article, extracts its text with a site-specific
parser, and summarizes it with a model whose artifacts are synced from a
remote mirror or the origin repository.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return &cfg, nil
	}

	cmd.AddCommand(
		newAPICmd(loadConfig),
		newUICmd(loadConfig),
		newRunCmd(loadConfig, &cfgFile),
		newSummarizeCmd(loadConfig),
		newSyncCmd(loadConfig),
	)
	return cmd
}

type configLoader func() (*config.Config, error)

// withApp builds the App, stores it on the command context, and closes it
// when fn returns.
func withApp(cmd *cobra.Command, load configLoader, fn func(ctx context.Context, app *server.App, cfg *config.Config) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer app.Close(context.WithoutCancel(cmd.Context()))

	ctx := context.WithValue(cmd.Context(), appKey, app)
	cmd.SetContext(ctx)
	return fn(ctx, app, cfg)
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
