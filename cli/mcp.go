// ABOUTME: MCP server subcommand
// ABOUTME: Serves the pipeline tools on stdio for MCP clients
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/handlers"
)

// MCPCommand runs the MCP server until the client disconnects or a signal
// arrives. Nothing may be written to stdout besides the protocol.
func MCPCommand(a *app.App, version string) error {
	a.Log.Info("starting MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return handlers.Serve(ctx, handlers.NewServer(a, version))
}
