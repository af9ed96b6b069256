// Package logging provides file-based logging with rotation for cruxe.
// The serve command sets it up in MCP mode, writing JSON logs to
// ~/.cruxe/logs/server.log and never to stdout or stderr.
//
// Other commands do not set up file logging; they use slog's default
// handler.
package logging
