package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Incrementally re-index --ref",
		Long: `Re-runs the indexing pipeline over --ref, skipping any file whose
content hash matches the last indexed manifest. Equivalent to 'cruxe
index' without --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out, meta, err := mcpserver.SyncRepo(ctx, sess.Stores, mcpserver.SyncRepoInput{Ref: flagRef})
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, map[string]any{"result": out, "metadata": meta})
			}
			printIndexReport(cmd, out)
			return nil
		},
	}
	return cmd
}
