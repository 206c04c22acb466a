// ABOUTME: Sync subcommand routing
// ABOUTME: Only the Charm backend has anything to sync
package cli

import (
	"fmt"
	"io"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/charm"
)

// SyncCommand routes "sync <status|now|auto|wipe>" to the Charm client.
func SyncCommand(a *app.App, out io.Writer, args []string) error {
	if a.Charm == nil {
		return fmt.Errorf("sync needs the charm backend (use --backend charm)")
	}
	return charm.SyncCommand(a.Charm, out, args)
}
