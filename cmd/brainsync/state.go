package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/brainsync/internal/state"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print recorded session timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			snap := state.Load(cfg.StateFile, slog.Default()).Snapshot()
			ids := make([]string, 0, len(snap))
			for id := range snap {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			out := cmd.OutOrStdout()
			for _, id := range ids {
				ts := snap[id]
				at := time.Unix(0, int64(ts*float64(time.Second))).Format(time.RFC3339)
				fmt.Fprintf(out, "%s\t%f\t%s\n", id, ts, at)
			}
			fmt.Fprintf(out, "%d sessions\n", len(ids))
			return nil
		},
	}
}
