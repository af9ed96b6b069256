package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/relstore"
	"github.com/signalridge/cruxe/internal/worktree"
)

func newWorktreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worktree",
		Short: "Inspect and reclaim ref worktree leases",
	}
	cmd.AddCommand(newWorktreeListCmd())
	cmd.AddCommand(newWorktreeGCCmd())
	return cmd
}

func newWorktreeListCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List worktree leases eligible for reclamation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, _, db, _, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			leases, err := relstore.ListStaleWorktreeLeases(ctx, db, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, leases)
			}
			if len(leases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stale worktree leases")
				return nil
			}
			for _, l := range leases {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\trefcount=%d\tlast_used=%s\n", l.Ref, l.WorktreePath, l.Refcount, l.LastUsedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "List leases unused for longer than this")
	return cmd
}

func newWorktreeGCCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim stale worktree leases and their directories",
		Long: `Removes worktree leases with zero refcount last used before the
--older-than cutoff, deleting the underlying git worktree for each.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repoRoot, _, db, _, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			leases, err := relstore.ListStaleWorktreeLeases(ctx, db, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			for _, l := range leases {
				if rmErr := gitRemoveWorktree(repoRoot, l.WorktreePath); rmErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to remove worktree %s: %v\n", l.WorktreePath, rmErr)
				}
			}

			n, err := worktree.CleanupStale(ctx, db, repoRoot, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, map[string]any{"reclaimed": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d worktree lease(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "Reclaim leases unused for longer than this")
	return cmd
}
