package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report indexing status for one or every ref",
		Long: `Reports freshness, job, and schema status for --ref, or for every ref
known to the project when --ref is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out, meta, err := mcpserver.IndexStatus(ctx, sess.Stores, mcpserver.IndexStatusInput{Ref: flagRef})
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, map[string]any{"result": out, "metadata": meta})
			}

			for _, r := range out.Refs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tfreshness=%s\tindexing=%s\tschema=%s\tfiles=%d\tsymbols=%d\n",
					r.Ref, r.Freshness, r.Indexing, r.Schema, r.FileCount, r.SymbolCount)
				if r.ActiveJobID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  active job: %s\n", r.ActiveJobID)
				}
			}
			return nil
		},
	}
	return cmd
}
