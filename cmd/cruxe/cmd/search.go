package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newSearchCmd() *cobra.Command {
	var (
		language string
		scopes   []string
		limit    int
		debug    bool
		plan     string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid lexical/semantic search against --ref",
		Long: `Runs the same hybrid search pipeline the MCP search_code tool exposes,
against the full-text and (when an embedder is available) vector
indices for --ref.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			out, meta, err := mcpserver.SearchCode(ctx, sess.Stores, mcpserver.SearchCodeInput{
				Query:        args[0],
				Ref:          flagRef,
				Language:     language,
				Scopes:       scopes,
				Limit:        limit,
				Debug:        debug,
				OverridePlan: plan,
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return writeJSON(cmd, map[string]any{"result": out, "metadata": meta})
			}

			for i, r := range out.Results {
				label := r.Name
				if r.QualifiedName != "" {
					label = r.QualifiedName
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s:%d-%d  %s (%s)\n", i+1, r.Path, r.LineStart, r.LineEnd, label, r.Kind)
			}
			if len(out.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Restrict results to a single language")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Restrict results to one or more path scopes")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&debug, "debug", false, "Include planner diagnostics in the response")
	cmd.Flags().StringVar(&plan, "plan", "", "Force a specific query plan (lexical_fast, hybrid_standard, semantic_deep)")

	return cmd
}
