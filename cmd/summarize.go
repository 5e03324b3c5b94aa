package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/server"
)

func newSummarizeCmd(load configLoader) *cobra.Command {
	var (
		prompt     string
		asJSON     bool
		showSource bool
	)
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize one article and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, app *server.App, _ *config.Config) error {
				if err := app.LoadModel(ctx); err != nil {
					return err
				}
				res, err := app.Pipeline().Summarize(ctx, args[0], prompt)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if !showSource {
						res.SourceText = ""
					}
					return enc.Encode(res)
				}
				if res.Title != "" {
					fmt.Fprintln(out, res.Title)
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, res.Summary)
				if showSource {
					fmt.Fprintln(out)
					fmt.Fprintln(out, res.SourceText)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "instruction prepended to the article")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&showSource, "source", false, "also print the extracted article text")
	return cmd
}
