// ABOUTME: Entry point for the pipecrm CLI, Kanban board and MCP server
// ABOUTME: Resolves configuration, opens the backend and routes to commands
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/cli"
	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/logging"
)

const version = "0.2.0"

type command func(a *app.App, out io.Writer, args []string) error

var commands = map[string]command{
	"stages":               cli.StagesCommand,
	"save-stages":          cli.SaveStagesCommand,
	"add-opportunity":      cli.AddOpportunityCommand,
	"update-opportunity":   cli.UpdateOpportunityCommand,
	"move":                 cli.MoveCommand,
	"list-stage":           cli.ListStageCommand,
	"summary":              cli.SummaryCommand,
	"delete-opportunity":   cli.DeleteOpportunityCommand,
	"bulk-delete":          cli.BulkDeleteCommand,
	"add-contact":          cli.AddContactCommand,
	"list-contacts":        cli.ListContactsCommand,
	"import-opportunities": cli.ImportOpportunitiesCommand,
	"import-contacts":      cli.ImportContactsCommand,
	"export-opportunities": cli.ExportOpportunitiesCommand,
	"export-contacts":      cli.ExportContactsCommand,
	"dedupe":               cli.DedupeCommand,
	"add-task":             cli.AddTaskCommand,
	"toggle-task":          cli.ToggleTaskCommand,
	"delete-task":          cli.DeleteTaskCommand,
	"add-note":             cli.AddNoteCommand,
	"send-message":         cli.SendMessageCommand,
	"conversations":        cli.ConversationsCommand,
	"add-appointment":      cli.AddAppointmentCommand,
	"appointments":         cli.AppointmentsCommand,
	"board":                cli.BoardCommand,
	"graph":                cli.GraphCommand,
	"serve":                cli.ServeCommand,
	"google-import":        cli.GoogleImportCommand,
	"google-calendar":      cli.GoogleCalendarCommand,
	"sync":                 cli.SyncCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/pipecrm/pipecrm.db)")
	backend := flag.String("backend", "", "Storage backend: sqlite or charm")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("pipecrm version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}
	name, cmdArgs := args[0], args[1:]

	// google-auth only needs OAuth credentials
	if name == "google-auth" {
		if err := cli.GoogleAuthCommand(os.Stdout, cmdArgs); err != nil {
			fatal(err)
		}
		return
	}

	run, ok := commands[name]
	if !ok && name != "mcp" {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(config.DefaultSources())
	if err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}

	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
	// stdout carries the protocol and the board owns the screen
	if logOpts.File == "" && (name == "mcp" || name == "board") {
		logOpts.File = config.DefaultLogFile()
	}
	log, err := logging.New(logOpts)
	if err != nil {
		fatal(err)
	}

	a, err := app.Open(cfg, log)
	if err != nil {
		fatal(fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err))
	}

	if name == "mcp" {
		err = cli.MCPCommand(a, version)
	} else {
		err = run(a, os.Stdout, cmdArgs)
	}
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`pipecrm - sales pipeline CRM with contact reconciliation

USAGE:
  pipecrm [--db-path PATH] [--backend sqlite|charm] <command> [flags]

PIPELINE:
  stages                    List stages in board order
  save-stages               Replace stages (--titles "A,B,C" or --file stages.json)
  add-opportunity           Create an opportunity (--name, --value, --stage, --contact, --email, ...)
  update-opportunity        Update an opportunity (<id> --name, --value, --status, ...)
  move                      Move an opportunity: move <id> <stage>
  list-stage                List a stage page by page (<stage> [--cursor C] [--limit N])
  summary                   Per-stage counts and values
  delete-opportunity        Delete an opportunity and its contact
  bulk-delete               Delete several opportunities (--yes to skip the prompt)
  board                     Interactive Kanban board
  graph                     Pipeline graph in Graphviz DOT
  serve                     Read-only web board (--port, default 8080)

CONTACTS:
  add-contact               Add a contact (--name or --email)
  list-contacts             List or search contacts (--query)
  send-message              Add a message to a contact's conversation
  conversations             List conversations, or show one by id

IMPORT / EXPORT:
  import-opportunities      Import an opportunity CSV
  import-contacts           Import a contact CSV
  export-opportunities      Export opportunities as CSV (--file or stdout)
  export-contacts           Export contacts as CSV (--file or stdout)
  dedupe                    Remove duplicates: dedupe contacts|opportunities
  google-auth               Authorize Google Contacts access
  google-import             Import Google Contacts
  google-calendar           Import Google Calendar events as appointments (--days, --past)

TASKS:
  add-task                  Add a task (<opportunity-id> --title, --assignee, --due)
  toggle-task               Complete or reopen a task (assignee only)
  delete-task               Delete a task (creator only)
  add-note                  Add a note: add-note <opportunity-id> <text>
  add-appointment           Schedule an appointment (--title, --date, --time)
  appointments              Upcoming appointments

OTHER:
  mcp                       Run the MCP server on stdio
  sync                      Charm sync: status, now, auto on|off, wipe

GLOBAL FLAGS:
  --db-path PATH            SQLite database path
  --backend NAME            sqlite or charm
  --version                 Show version
`)
}
