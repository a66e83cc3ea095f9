package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one full scan and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a := newApp(ctx, cfg)
			defer a.close()

			sum, err := a.scanner().Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n=== Scan Summary ===\n")
			fmt.Fprintf(out, "Processed: %d\n", sum.Processed)
			fmt.Fprintf(out, "Skipped: %d\n", sum.Skipped)
			fmt.Fprintf(out, "Unchanged: %d\n", sum.Unchanged)
			fmt.Fprintf(out, "Errors: %d\n", sum.Errors)
			fmt.Fprintf(out, "State file: %s\n", cfg.StateFile)
			return nil
		},
	}
}
