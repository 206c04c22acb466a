// ABOUTME: Web board subcommand
// ABOUTME: Serves the read-only board over HTTP until interrupted
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/web"
)

// ServeCommand runs the web board on localhost.
func ServeCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("serve", out)
	port := fs.Int("port", 8080, "Port to listen on")
	owner := fs.String("owner", a.Config.Owner, "Default owner filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv, err := web.NewServer(a.Pipeline, *owner, a.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("localhost:%d", *port)
	fmt.Fprintf(out, "Web board at http://%s\n", addr)
	return srv.Start(ctx, addr)
}
