package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build (or rebuild) the index for --ref",
		Long: `Runs the full indexing pipeline over the repository at --project for
--ref (defaulting to the project's default ref): scans files, extracts
symbols via tree-sitter, and writes the relational store and full-text
index. Use --force to ignore the content-hash manifest and reindex
every file from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out, meta, err := mcpserver.IndexRepo(ctx, sess.Stores, mcpserver.IndexRepoInput{
				Ref:   flagRef,
				Force: force,
			})
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

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the content-hash manifest and reindex every file")
	return cmd
}

func printIndexReport(cmd *cobra.Command, out *mcpserver.IndexRepoOutput) {
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed ref %s (%s mode)\n", out.Ref, out.Mode)
	fmt.Fprintf(cmd.OutOrStdout(), "  files scanned:     %d\n", out.FilesScanned)
	fmt.Fprintf(cmd.OutOrStdout(), "  files indexed:     %d\n", out.FilesIndexed)
	fmt.Fprintf(cmd.OutOrStdout(), "  symbols extracted: %d\n", out.SymbolsExtracted)
	fmt.Fprintf(cmd.OutOrStdout(), "  changed files:     %d\n", out.ChangedFiles)
	fmt.Fprintf(cmd.OutOrStdout(), "  removed files:     %d\n", out.RemovedCount)
	fmt.Fprintf(cmd.OutOrStdout(), "  duration:          %dms\n", out.DurationMs)
	fmt.Fprintf(cmd.OutOrStdout(), "  job id:            %s\n", out.JobID)
}
