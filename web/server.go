// ABOUTME: Read-only web board with embedded templates
// ABOUTME: Serves the Kanban board as HTML, stage pages as JSON and the pipeline graph as DOT
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/store"
	"github.com/harperreed/pipecrm/viz"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*
var templatesFS embed.FS

// Engine is the part of the pipeline the web board reads.
type Engine interface {
	viz.Source
	Board(ctx context.Context, owner string) ([]pipeline.Column, error)
	ListByStage(ctx context.Context, stageID string, opts store.ListOptions) (store.Page[models.Opportunity], error)
}

type Server struct {
	engine    Engine
	owner     string
	templates *template.Template
	generator *viz.GraphGenerator
	log       logrus.FieldLogger
}

func NewServer(engine Engine, owner string, log logrus.FieldLogger) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		engine:    engine,
		owner:     owner,
		templates: tmpl,
		generator: viz.NewGraphGenerator(engine),
		log:       log,
	}, nil
}

// Handler routes the board pages.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBoard)
	mux.HandleFunc("GET /api/board", s.handleBoardJSON)
	mux.HandleFunc("GET /api/stages/{id}", s.handleStagePage)
	mux.HandleFunc("GET /graph.dot", s.handleGraph)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("web board listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

type CardView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Status      string `json:"status"`
	ContactName string `json:"contact_name,omitempty"`
}

type ColumnView struct {
	StageID    string     `json:"stage_id"`
	Title      string     `json:"title"`
	Count      int        `json:"count"`
	Value      string     `json:"value"`
	Cards      []CardView `json:"cards"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func cardViews(items []models.Opportunity) []CardView {
	cards := make([]CardView, 0, len(items))
	for _, o := range items {
		cards = append(cards, CardView{
			ID:          o.ID.String(),
			Name:        o.Name,
			Value:       viz.FormatMoney(o.Value),
			Status:      o.Status,
			ContactName: o.ContactName,
		})
	}
	return cards
}

func columnViews(cols []pipeline.Column) []ColumnView {
	views := make([]ColumnView, 0, len(cols))
	for _, c := range cols {
		views = append(views, ColumnView{
			StageID:    c.Stage.ID,
			Title:      c.Stage.Title,
			Count:      c.Totals.Count,
			Value:      viz.FormatMoney(c.Totals.Value),
			Cards:      cardViews(c.Page.Items),
			HasMore:    c.Page.HasMore,
			NextCursor: c.Page.NextCursor,
		})
	}
	return views
}

func (s *Server) ownerFor(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return s.owner
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	cols, err := s.engine.Board(r.Context(), s.ownerFor(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	data := map[string]interface{}{
		"Title":   "Pipeline",
		"Columns": columnViews(cols),
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleBoardJSON(w http.ResponseWriter, r *http.Request) {
	cols, err := s.engine.Board(r.Context(), s.ownerFor(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, columnViews(cols))
}

func (s *Server) handleStagePage(w http.ResponseWriter, r *http.Request) {
	stageID := r.PathValue("id")
	stages, err := s.engine.Stages(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	stage, ok := pipeline.FindStage(stages, stageID)
	if !ok {
		http.Error(w, "Unknown stage", http.StatusNotFound)
		return
	}

	opts := store.ListOptions{Owner: s.ownerFor(r), Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.PageSize = n
	}

	page, err := s.engine.ListByStage(r.Context(), stage.ID, opts)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			http.Error(w, "Invalid cursor", http.StatusBadRequest)
			return
		}
		s.fail(w, err)
		return
	}

	s.writeJSON(w, ColumnView{
		StageID:    stage.ID,
		Title:      stage.Title,
		Count:      len(page.Items),
		Cards:      cardViews(page.Items),
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := s.generator.GeneratePipelineGraph(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	if _, err := w.Write([]byte(dot)); err != nil {
		s.log.WithError(err).Warn("error writing graph")
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("template error")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("error writing response")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.WithError(err).Error("request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
