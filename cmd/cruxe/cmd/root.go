// Package cmd provides the CLI commands for cruxe.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/pkg/version"
)

// Root persistent flags, shared by every subcommand via buildSession.
var (
	flagProject  string
	flagRef      string
	flagDataDir  string
	flagJSON     bool
)

// NewRootCmd creates the root command for the cruxe CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cruxe",
		Short: "Hybrid lexical/semantic code search engine",
		Long: `cruxe indexes a repository's source with tree-sitter, builds a
relational store, full-text index, and optional vector index over it, and
serves hybrid search across multiple VCS refs.

Run 'cruxe init' once per repository, then 'cruxe index' to build the
initial index. 'cruxe serve' exposes the same operations as an MCP
server for AI coding assistants; the other subcommands are the
equivalent one-shot CLI entry points.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("cruxe version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagProject, "project", ".", "Path to the repository root")
	cmd.PersistentFlags().StringVar(&flagRef, "ref", "", "VCS ref to operate on (default: the project's default ref)")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the on-disk data directory (default: <project>/.cruxe)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit machine-readable JSON output")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newWorktreeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
