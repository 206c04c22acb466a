// ABOUTME: Pipeline stage configuration
// ABOUTME: Default stage list, whole-list save with stable ids, and stage lookup by id or title

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/pipecrm/models"
)

// ErrUnknownStage is returned when a stage id is not in the configured list.
var ErrUnknownStage = errors.New("unknown stage")

// DefaultStages is used until a stage list has been saved. Index 0 is the
// default stage for new records; "10" is the closed/won stage.
func DefaultStages() []models.Stage {
	return []models.Stage{
		{ID: "0", Title: "Junk Lead", Color: "#9e9e9e"},
		{ID: "1", Title: "New Lead", Color: "#42a5f5"},
		{ID: "2", Title: "Contacted", Color: "#26c6da"},
		{ID: "3", Title: "Qualified", Color: "#26a69a"},
		{ID: "4", Title: "Needs Analysis", Color: "#66bb6a"},
		{ID: "5", Title: "Proposal Sent", Color: "#9ccc65"},
		{ID: "6", Title: "Negotiation", Color: "#d4e157"},
		{ID: "7", Title: "Verbal Commit", Color: "#ffca28"},
		{ID: "8", Title: "Contract Sent", Color: "#ffa726"},
		{ID: "9", Title: "Closing", Color: "#ff7043"},
		{ID: "10", Title: "Closed/Won", Color: "#43a047"},
	}
}

// Stages returns the configured stage list, falling back to DefaultStages.
func (s *Service) Stages(ctx context.Context) ([]models.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stages == nil {
		loaded, err := s.backend.LoadStages(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stages: %w", err)
		}
		if len(loaded) == 0 {
			loaded = DefaultStages()
		}
		s.stages = loaded
	}

	out := make([]models.Stage, len(s.stages))
	copy(out, s.stages)
	return out, nil
}

// SaveStages validates and replaces the whole stage list. Stages without an id
// get a new ULID; ids are never derived from titles, so renames keep references.
func (s *Service) SaveStages(ctx context.Context, stages []models.Stage) ([]models.Stage, error) {
	if len(stages) == 0 {
		return nil, models.Invalid("stages", "at least one stage is required")
	}

	out := make([]models.Stage, 0, len(stages))
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		st.Title = strings.TrimSpace(st.Title)
		st.ID = strings.TrimSpace(st.ID)
		if err := models.Validate(&st); err != nil {
			return nil, err
		}
		if st.ID == "" {
			st.ID = models.NewLocalID()
		}
		if seen[st.ID] {
			return nil, models.Invalid("id", fmt.Sprintf("duplicate stage id %q", st.ID))
		}
		seen[st.ID] = true
		out = append(out, st)
	}

	if err := s.backend.SaveStages(ctx, out); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stages = out
	s.mu.Unlock()

	s.log.WithField("count", len(out)).Info("saved stages")
	result := make([]models.Stage, len(out))
	copy(result, out)
	return result, nil
}

// ResolveStage finds a stage by exact id, then by case-insensitive title.
func (s *Service) ResolveStage(ctx context.Context, ref string) (models.Stage, bool, error) {
	stages, err := s.Stages(ctx)
	if err != nil {
		return models.Stage{}, false, err
	}
	st, ok := FindStage(stages, ref)
	return st, ok, nil
}

// FindStage looks ref up in stages by id, then by title ignoring case and
// surrounding space.
func FindStage(stages []models.Stage, ref string) (models.Stage, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Stage{}, false
	}
	for _, st := range stages {
		if st.ID == ref {
			return st, true
		}
	}
	for _, st := range stages {
		if strings.EqualFold(st.Title, ref) {
			return st, true
		}
	}
	return models.Stage{}, false
}

// DefaultStage is the first configured stage.
func (s *Service) DefaultStage(ctx context.Context) (models.Stage, error) {
	stages, err := s.Stages(ctx)
	if err != nil {
		return models.Stage{}, err
	}
	return stages[0], nil
}

// ClosedStageID is the stage whose entry forces status Won.
func (s *Service) ClosedStageID() string {
	return s.cfg.ClosedStageID
}
