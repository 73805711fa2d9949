// Package logging configures structured slog output for docsmcp.
//
// The MCP server speaks JSON-RPC on stdout, so serve mode logs to a rotating
// JSON file under ~/.docsmcp/logs/ and never to stdout or stderr. CLI
// commands log to stderr. The viewer reads the file back for `docsmcp logs`.
package logging
