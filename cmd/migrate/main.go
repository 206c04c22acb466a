// ABOUTME: Migration utility for moving pipecrm data between storage backends
// ABOUTME: Copies stages, contacts, opportunities, conversations and appointments with dry-run and backup

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/charm"
	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/store"
	"github.com/sirupsen/logrus"
)

func main() {
	from := flag.String("from", config.BackendSQLite, "Source backend: sqlite or charm")
	fromDB := flag.String("from-db", "", "Source SQLite path (sqlite source only)")
	to := flag.String("to", config.BackendCharm, "Destination backend: sqlite or charm")
	toDB := flag.String("to-db", "", "Destination SQLite path (sqlite destination only)")
	host := flag.String("charm-host", "", "Charm server host")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup of a SQLite destination before migration")
	force := flag.Bool("force", false, "Copy even if the destination already holds data")
	flag.Parse()

	log, err := logging.New(logging.Options{Level: "info", Format: "text"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *from == *to && *fromDB == *toDB {
		log.Fatal("source and destination are the same")
	}
	if *backup && !*dryRun && *to == config.BackendSQLite {
		if err := backupFile(*toDB, log); err != nil {
			log.WithError(err).Fatal("backup failed")
		}
	}

	src, err := openBackend(*from, *fromDB, *host)
	if err != nil {
		log.WithError(err).Fatal("failed to open source")
	}
	defer func() { _ = src.Close() }()

	dst, err := openBackend(*to, *toDB, *host)
	if err != nil {
		log.WithError(err).Fatal("failed to open destination")
	}
	defer func() { _ = dst.Close() }()

	report, err := migrate(context.Background(), src, dst, options{dryRun: *dryRun, force: *force}, log)
	if err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.WithFields(report.fields()).Info("migration completed successfully")
}

func openBackend(kind, path, host string) (store.Backend, error) {
	switch kind {
	case config.BackendSQLite:
		if path == "" {
			path = config.DefaultDBPath()
		}
		return db.Open(path)
	case config.BackendCharm:
		cfg, err := charm.LoadConfig(host)
		if err != nil {
			return nil, err
		}
		client, err := charm.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return charm.NewStore(client), nil
	}
	return nil, fmt.Errorf("unknown backend %q", kind)
}

func backupFile(path string, log logrus.FieldLogger) error {
	if path == "" {
		path = config.DefaultDBPath()
	}
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0644); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	log.WithField("path", backupPath).Info("backup created")
	return nil
}

type options struct {
	dryRun bool
	force  bool
}

type report struct {
	stages        int
	contacts      int
	opportunities int
	conversations int
	appointments  int
}

func (r report) fields() logrus.Fields {
	return logrus.Fields{
		"stages":        r.stages,
		"contacts":      r.contacts,
		"opportunities": r.opportunities,
		"conversations": r.conversations,
		"appointments":  r.appointments,
	}
}

func remap(ids map[uuid.UUID]uuid.UUID, old *uuid.UUID) *uuid.UUID {
	if old == nil {
		return nil
	}
	id, ok := ids[*old]
	if !ok {
		return nil
	}
	return &id
}

// migrate copies every record from src to dst. Backends assign fresh ids on
// create, so contact references are rewritten to the new ids.
func migrate(ctx context.Context, src, dst store.Backend, opts options, log logrus.FieldLogger) (report, error) {
	var r report
	all := store.ListOptions{}

	if !opts.force {
		existing, err := dst.ListContacts(ctx, store.ListOptions{PageSize: 1})
		if err != nil {
			return r, err
		}
		opps, err := dst.ListOpportunities(ctx, store.ListOptions{PageSize: 1})
		if err != nil {
			return r, err
		}
		if len(existing.Items) > 0 || len(opps.Items) > 0 {
			return r, fmt.Errorf("destination already has data; use -force to copy anyway")
		}
	}

	stages, err := src.LoadStages(ctx)
	if err != nil {
		return r, err
	}
	contacts, err := store.All(ctx, src.ListContacts, all)
	if err != nil {
		return r, err
	}
	opportunities, err := store.All(ctx, src.ListOpportunities, all)
	if err != nil {
		return r, err
	}
	conversations, err := store.All(ctx, src.ListConversations, all)
	if err != nil {
		return r, err
	}
	appointments, err := store.All(ctx, src.ListAppointments, all)
	if err != nil {
		return r, err
	}

	r = report{
		stages:        len(stages),
		contacts:      len(contacts),
		opportunities: len(opportunities),
		conversations: len(conversations),
		appointments:  len(appointments),
	}
	if opts.dryRun {
		log.WithFields(r.fields()).Info("dry run: would copy")
		return r, nil
	}

	if len(stages) > 0 {
		if err := dst.SaveStages(ctx, stages); err != nil {
			return r, fmt.Errorf("failed to copy stages: %w", err)
		}
	}

	ids := make(map[uuid.UUID]uuid.UUID, len(contacts))
	for _, c := range contacts {
		old := c.ID
		if err := dst.CreateContact(ctx, &c); err != nil {
			return r, fmt.Errorf("failed to copy contact %s: %w", old, err)
		}
		ids[old] = c.ID
	}

	for _, o := range opportunities {
		old := o.ID
		o.ContactID = remap(ids, o.ContactID)
		if err := dst.CreateOpportunity(ctx, &o); err != nil {
			return r, fmt.Errorf("failed to copy opportunity %s: %w", old, err)
		}
	}

	for _, c := range conversations {
		old := c.ID
		id := remap(ids, &c.ContactID)
		if id == nil {
			log.WithField("conversation_id", old).Warn("skipping conversation with missing contact")
			r.conversations--
			continue
		}
		c.ContactID = *id
		if err := dst.CreateConversation(ctx, &c); err != nil {
			return r, fmt.Errorf("failed to copy conversation %s: %w", old, err)
		}
	}

	for _, a := range appointments {
		old := a.ID
		a.ContactID = remap(ids, a.ContactID)
		if err := dst.CreateAppointment(ctx, &a); err != nil {
			return r, fmt.Errorf("failed to copy appointment %s: %w", old, err)
		}
	}

	return r, nil
}
