// ABOUTME: Board snapshot for the Kanban views
// ABOUTME: One column per stage with header totals and the first page of cards

package pipeline

import (
	"context"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

type Column struct {
	Stage  models.Stage
	Totals store.StageTotals
	Page   store.Page[models.Opportunity]
}

// Board loads every stage's first page for owner. Header totals cover the
// same owner's opportunities; an empty owner means everyone.
func (s *Service) Board(ctx context.Context, owner string) ([]Column, error) {
	stages, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.totalsFor(ctx, owner)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, 0, len(stages))
	for _, st := range stages {
		page, err := s.ListByStage(ctx, st.ID, store.ListOptions{Owner: owner})
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Stage: st, Totals: totals[st.ID], Page: page})
	}
	return cols, nil
}

// NextPage appends the following page of a column in place.
func (s *Service) NextPage(ctx context.Context, col *Column, owner string) error {
	if !col.Page.HasMore {
		return nil
	}
	next, err := s.ListByStage(ctx, col.Stage.ID, store.ListOptions{Owner: owner, Cursor: col.Page.NextCursor})
	if err != nil {
		return err
	}
	col.Page.Items = append(col.Page.Items, next.Items...)
	col.Page.NextCursor = next.NextCursor
	col.Page.HasMore = next.HasMore
	return nil
}

func (s *Service) totalsFor(ctx context.Context, owner string) (map[string]store.StageTotals, error) {
	if owner == "" {
		return s.StageAggregates(ctx)
	}
	opps, err := s.All(ctx, owner)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]store.StageTotals)
	for _, o := range opps {
		t := totals[o.Stage]
		t.Count++
		t.Value += o.Value
		totals[o.Stage] = t
	}
	return totals, nil
}
