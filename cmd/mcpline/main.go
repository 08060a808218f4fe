// Command mcpline is the connection daemon and CLI for a local MCP
// client: it spawns and supervises the daemon that holds live MCP
// server connections, and forwards one-shot CLI invocations to it.
package main

import "github.com/mvp-joe/mcpline/internal/cli"

func main() {
	cli.Execute()
}
