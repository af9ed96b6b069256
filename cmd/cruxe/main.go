// Command cruxe indexes a repository's source and serves hybrid
// lexical/semantic search over it, either as a one-shot CLI or as an
// MCP stdio server for AI coding assistants.
package main

import (
	"fmt"
	"os"

	"github.com/signalridge/cruxe/cmd/cruxe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cruxe:", err)
		os.Exit(1)
	}
}
