package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/model"
	"github.com/pivotpie/collection-insights/internal/store"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect stored analysis snapshots",
	Long:  "Commands for listing, viewing, and pruning persisted analysis snapshots.",
}

// -- snapshots list --

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		snaps, err := st.ListSnapshots(ctx, store.SnapshotFilter{Source: source, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "snapshots list")
		}

		if len(snaps) == 0 {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}

		formatSnapshotsList(os.Stdout, snaps)
		return nil
	},
}

// -- snapshots show --

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show the full result stored in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.GetSnapshot(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "snapshots show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

// -- snapshots prune --

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		keep, _ := cmd.Flags().GetInt("keep")
		deleted, err := st.PruneSnapshots(ctx, keep)
		if err != nil {
			return eris.Wrap(err, "snapshots prune")
		}

		zap.L().Info("snapshots pruned",
			zap.Int("deleted", deleted),
			zap.Int("kept", keep),
		)
		return nil
	},
}

func init() {
	snapshotsListCmd.Flags().String("source", "", "filter by import source")
	snapshotsListCmd.Flags().Int("limit", 50, "max number of snapshots to display")

	snapshotsPruneCmd.Flags().Int("keep", 10, "number of newest snapshots to keep")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// formatSnapshotsList writes a tabular list of snapshots to w.
func formatSnapshotsList(out io.Writer, snaps []model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREFERENCE\tSOURCE\tEVENTS\tENTITIES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t------\t--------\t-------")

	for _, s := range snaps {
		source := s.Source
		if len(source) > 30 {
			source = source[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(s.ID),
			s.ReferenceDate.Format(dateFlagLayout),
			source,
			s.EventsTotal,
			s.EntitiesTotal,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
