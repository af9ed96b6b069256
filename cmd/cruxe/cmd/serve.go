package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/logging"
	"github.com/signalridge/cruxe/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server",
		Long: `Starts the MCP server over stdio, exposing every search_code,
locate_symbol, index_repo, and related tool against --project's already
indexed refs. stdout is reserved exclusively for JSON-RPC framing; all
diagnostic logging goes to the file logger instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := logging.SetupMCPMode()
			if err != nil {
				return err
			}
			defer cleanup()
			logger := slog.Default()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := buildSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			server := mcpserver.NewServer(sess.Stores, logger)
			logger.Info("mcp server starting",
				slog.String("project_id", sess.Stores.ProjectID),
				slog.String("repo_root", sess.Stores.RepoRoot),
				slog.String("default_ref", sess.Stores.DefaultRef))

			return server.MCPServer().Run(ctx, &mcp.StdioTransport{})
		},
	}
	return cmd
}
