// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Flag sets, id parsing, tab-aligned tables and the destructive-action prompt
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/tasks"
	"golang.org/x/term"
)

// ErrNotConfirmed is returned when a destructive command is declined.
var ErrNotConfirmed = errors.New("aborted")

// stdin and isTerminal are swapped in tests.
var (
	stdin      io.Reader = os.Stdin
	isTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func parseID(label, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%s is required", label)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", label, err)
	}
	return id, nil
}

// firstArg takes an id from --flag or the first positional argument.
func firstArg(fs *flag.FlagSet, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return fs.Arg(0)
}

// confirm asks before a destructive action. With yes set it never asks; without
// a terminal it refuses rather than guessing.
func confirm(out io.Writer, prompt string, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminal() {
		return fmt.Errorf("%s: not a terminal, pass --yes to confirm", prompt)
	}
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return ErrNotConfirmed
}

// identity is who a task command acts as.
func identity(as string) tasks.Identity {
	return tasks.Identity{ID: as, Email: as}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
