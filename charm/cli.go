// ABOUTME: CLI commands for Charm KV sync operations
// ABOUTME: SSH key auth means no login/logout; these cover status, sync, auto-sync and wipe

package charm

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// SyncCommand dispatches "sync <subcommand>".
func SyncCommand(c *Client, out io.Writer, args []string) error {
	if len(args) == 0 {
		return SyncStatusCommand(c, out, nil)
	}

	switch args[0] {
	case "status":
		return SyncStatusCommand(c, out, args[1:])
	case "now":
		return SyncNowCommand(c, out, args[1:])
	case "auto":
		return SetAutoSyncCommand(c, out, args[1:])
	case "wipe":
		return SyncWipeCommand(c, out, args[1:])
	default:
		return fmt.Errorf("unknown sync command: %s", args[0])
	}
}

// SyncStatusCommand shows current sync configuration and status.
func SyncStatusCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	fmt.Fprintln(out, "Charm Sync Status")
	fmt.Fprintln(out, "─────────────────")
	fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	id, err := c.ID()
	if err != nil {
		fmt.Fprintln(out, "\nStatus: Not connected")
	} else {
		fmt.Fprintln(out, "\nStatus: Connected to Charm Cloud")
		fmt.Fprintf(out, "ID:        %s\n", id)
	}

	keys, err := c.Keys()
	if err == nil {
		counts := make(map[string]int)
		for _, k := range keys {
			kind := string(k)
			if i := strings.IndexByte(kind, ':'); i >= 0 {
				kind = kind[:i]
			}
			counts[kind]++
		}
		fmt.Fprintf(out, "Keys:      %d (contacts %d, opportunities %d, appointments %d, conversations %d)\n",
			len(keys), counts["contact"], counts["opportunity"], counts["appointment"], counts["conversation"])
	}

	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ContinueOnError)
	verbose := fs.Bool("verbose", false, "Show verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		fmt.Fprintln(out, "Syncing with server...")
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(out, "✓ Synced")
	return nil
}

// SetAutoSyncCommand enables or disables auto-sync.
func SetAutoSyncCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync auto", flag.ContinueOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *enable == *disable {
		fmt.Fprintln(out, "Usage: pipecrm sync auto --enable|--disable")
		return nil
	}

	if err := c.Config().SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to update auto-sync: %w", err)
	}
	if *enable {
		fmt.Fprintln(out, "✓ Auto-sync enabled")
	} else {
		fmt.Fprintln(out, "✓ Auto-sync disabled")
	}
	return nil
}

// SyncWipeCommand completely resets the KV store.
// WARNING: This deletes all local data!
func SyncWipeCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync wipe", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		fmt.Fprintln(out, "WARNING: This will delete ALL local data!")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To confirm, run:")
		fmt.Fprintln(out, "  pipecrm sync wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	fmt.Fprintln(out, "✓ All data wiped")
	return nil
}
