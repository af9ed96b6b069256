package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project's storage and embedder are reachable",
		Long: `Opens the project's relational store, checks that the repository root
still exists on disk, and reports whether the configured semantic
embedder is available. Does not touch any particular ref's index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out, err := mcpserver.HealthCheck(ctx, sess.Stores, time.Now())
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database reachable:  %v\n", out.DatabaseReachable)
			fmt.Fprintf(cmd.OutOrStdout(), "repo root exists:    %v\n", out.RepoRootExists)
			fmt.Fprintf(cmd.OutOrStdout(), "semantic available:  %v\n", out.SemanticAvailable)
			if out.EmbedderModel != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "embedder model:      %s\n", out.EmbedderModel)
			}

			if !out.DatabaseReachable || !out.RepoRootExists {
				return fmt.Errorf("doctor found critical failures")
			}
			return nil
		},
	}
	return cmd
}
