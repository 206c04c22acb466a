// ABOUTME: Application wiring from configuration
// ABOUTME: Opens the configured backend and builds the services every surface shares

package app

import (
	"fmt"

	"github.com/harperreed/pipecrm/appointments"
	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/charm"
	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/importer"
	"github.com/harperreed/pipecrm/inbox"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/store"
	"github.com/harperreed/pipecrm/tasks"
	"github.com/sirupsen/logrus"
)

// App holds one backend and the services built on it.
type App struct {
	Config  *config.Config
	Log     logrus.FieldLogger
	Backend store.Backend
	// Charm is set only for the charm backend.
	Charm *charm.Client

	Pipeline      *pipeline.Service
	Importer      *importer.Importer
	Tasks         *tasks.Manager
	Inbox         *inbox.Service
	Appointments  *appointments.Service
	Opportunities *cache.Cache[models.Opportunity]

	stopFollow []func()
}

// Open connects the backend named by cfg.Backend.
func Open(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		s, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.DBPath).Debug("opened sqlite backend")
		return New(cfg, s, log), nil

	case config.BackendCharm:
		charmCfg, err := charm.LoadConfig(cfg.CharmHost)
		if err != nil {
			return nil, fmt.Errorf("failed to load charm config: %w", err)
		}
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return nil, err
		}
		log.WithField("host", charmCfg.Host).Debug("opened charm backend")
		a := New(cfg, charm.NewStore(client), log)
		a.Charm = client
		return a, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// New builds the services over an open backend.
func New(cfg *config.Config, backend store.Backend, log logrus.FieldLogger) *App {
	contacts := cache.Contacts(backend, "")
	opportunities := cache.Opportunities(backend, cfg.Owner)

	engine := pipeline.New(backend, contacts, pipeline.Config{
		ClosedStageID:         cfg.ClosedStage,
		PageSize:              cfg.PageSize,
		CascadeSharedContacts: cfg.CascadeSharedContacts,
	}, log)

	return &App{
		Config:        cfg,
		Log:           log,
		Backend:       backend,
		Pipeline:      engine,
		Importer:      importer.New(backend, engine, cfg.Owner, log),
		Tasks:         tasks.New(backend, log),
		Inbox:         inbox.New(backend, backend, log),
		Appointments:  appointments.New(backend, log),
		Opportunities: opportunities,
		stopFollow:    []func(){contacts.Follow(), opportunities.Follow()},
	}
}

// Close stops cache feeds and closes the backend.
func (a *App) Close() error {
	for _, stop := range a.stopFollow {
		stop()
	}
	return a.Backend.Close()
}
