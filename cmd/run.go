package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-summarizer/internal/logging"
	"github.com/JakeFAU/article-summarizer/internal/supervisor"
)

const childGrace = 15 * time.Second

func newRunCmd(load configLoader, cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the API and the UI as supervised child processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			var common []string
			if *cfgFile != "" {
				common = append(common, "--config", *cfgFile)
			}
			procs := []supervisor.Process{
				{Name: "api", Path: self, Args: append([]string{"api"}, common...)},
				{Name: "ui", Path: self, Args: append([]string{"ui"}, common...)},
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return supervisor.New(procs, childGrace, logger).Run(ctx)
		},
	}
}
