package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <session-id>...",
		Short: "Convert sessions now, without recording state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			a := newApp(ctx, cfg)
			defer a.close()

			failed := 0
			for _, id := range args {
				// A zero timestamp leaves the state file untouched.
				if a.processor.Dispatch(ctx, id, 0) {
					fmt.Fprintf(cmd.OutOrStdout(), "converted %s\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "skipped %s\n", id)
					failed++
				}
			}
			if failed == len(args) {
				return fmt.Errorf("no notes written")
			}
			return nil
		},
	}
}
