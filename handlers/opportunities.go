// ABOUTME: Opportunity MCP tool handlers
// ABOUTME: Implements create, update, move, list_stage, stage_summary and delete tools
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type OpportunityHandlers struct {
	engine *pipeline.Service
	owner  string
}

func NewOpportunityHandlers(engine *pipeline.Service, owner string) *OpportunityHandlers {
	return &OpportunityHandlers{engine: engine, owner: owner}
}

type CreateOpportunityInput struct {
	Name         string   `json:"name" jsonschema:"Opportunity name (required)"`
	Value        float64  `json:"value,omitempty" jsonschema:"Monetary value, zero or more"`
	Stage        string   `json:"stage,omitempty" jsonschema:"Stage id or title (default: first stage)"`
	Status       string   `json:"status,omitempty" jsonschema:"Open, Won, Lost or Abandoned"`
	Owner        string   `json:"owner,omitempty" jsonschema:"Owning user"`
	Tags         []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
	ContactName  string   `json:"contact_name,omitempty" jsonschema:"Contact name; a matching contact is reused or created"`
	ContactEmail string   `json:"contact_email,omitempty" jsonschema:"Contact email"`
	ContactPhone string   `json:"contact_phone,omitempty" jsonschema:"Contact phone"`
	CompanyName  string   `json:"company_name,omitempty" jsonschema:"Company name"`
	ValueTier    string   `json:"value_tier,omitempty" jsonschema:"Contact value tier: Standard, Mid or High"`
	Source       string   `json:"source,omitempty" jsonschema:"Lead source"`
}

type OpportunityOutput struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Value          float64  `json:"value"`
	Stage          string   `json:"stage"`
	Status         string   `json:"status"`
	Owner          string   `json:"owner,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ContactID      *string  `json:"contact_id,omitempty"`
	ContactName    string   `json:"contact_name,omitempty"`
	ContactEmail   string   `json:"contact_email,omitempty"`
	CompanyName    string   `json:"company_name,omitempty"`
	OpenTasks      int      `json:"open_tasks"`
	ContactCreated bool     `json:"contact_created,omitempty"`
	ContactPatched bool     `json:"contact_patched,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
}

func opportunityToOutput(o *models.Opportunity) OpportunityOutput {
	out := OpportunityOutput{
		ID:           o.ID.String(),
		Name:         o.Name,
		Value:        o.Value,
		Stage:        o.Stage,
		Status:       o.Status,
		Owner:        o.Owner,
		Tags:         o.Tags,
		ContactName:  o.ContactName,
		ContactEmail: o.ContactEmail,
		CompanyName:  o.CompanyName,
		UpdatedAt:    o.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.ContactID != nil {
		id := o.ContactID.String()
		out.ContactID = &id
	}
	for _, t := range o.Tasks {
		if !t.IsCompleted {
			out.OpenTasks++
		}
	}
	return out
}

func saveToOutput(res pipeline.SaveResult) OpportunityOutput {
	out := opportunityToOutput(res.Opportunity)
	out.ContactCreated = res.ContactCreated
	out.ContactPatched = res.ContactPatched
	out.Warnings = res.Warnings
	return out
}

// stageRef resolves a stage id or title to its id.
func (h *OpportunityHandlers) stageRef(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	st, ok, err := h.engine.ResolveStage(ctx, ref)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", pipeline.ErrUnknownStage, ref)
	}
	return st.ID, nil
}

func (h *OpportunityHandlers) CreateOpportunity(ctx context.Context, request *mcp.CallToolRequest, input CreateOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	if input.Name == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("name is required")
	}

	stage, err := h.stageRef(ctx, input.Stage)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}

	owner := input.Owner
	if owner == "" {
		owner = h.owner
	}

	var opts []pipeline.SaveOption
	if input.ValueTier != "" {
		opts = append(opts, pipeline.WithValueTier(input.ValueTier))
	}
	if owner != "" {
		opts = append(opts, pipeline.WithContactOwner(owner))
	}

	res, err := h.engine.Create(ctx, models.Opportunity{
		Name:         input.Name,
		Value:        input.Value,
		Stage:        stage,
		Status:       input.Status,
		Owner:        owner,
		Tags:         input.Tags,
		ContactName:  input.ContactName,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		CompanyName:  input.CompanyName,
		Source:       input.Source,
	}, opts...)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to create opportunity: %w", err)
	}
	return nil, saveToOutput(res), nil
}

type UpdateOpportunityInput struct {
	ID           string    `json:"id" jsonschema:"Opportunity UUID (required)"`
	Name         *string   `json:"name,omitempty" jsonschema:"New name"`
	Value        *float64  `json:"value,omitempty" jsonschema:"New value"`
	Status       *string   `json:"status,omitempty" jsonschema:"New status"`
	Owner        *string   `json:"owner,omitempty" jsonschema:"New owner"`
	Tags         *[]string `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	ContactName  *string   `json:"contact_name,omitempty" jsonschema:"Contact name; triggers contact reconciliation"`
	ContactEmail *string   `json:"contact_email,omitempty" jsonschema:"Contact email; triggers contact reconciliation"`
	ContactPhone *string   `json:"contact_phone,omitempty" jsonschema:"Contact phone; triggers contact reconciliation"`
	CompanyName  *string   `json:"company_name,omitempty" jsonschema:"Company name; triggers contact reconciliation"`
	Source       *string   `json:"source,omitempty" jsonschema:"Lead source"`
}

func (h *OpportunityHandlers) UpdateOpportunity(ctx context.Context, request *mcp.CallToolRequest, input UpdateOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("invalid id: %w", err)
	}

	res, err := h.engine.Update(ctx, id, models.OpportunityPatch{
		Name:         input.Name,
		Value:        input.Value,
		Status:       input.Status,
		Owner:        input.Owner,
		Tags:         input.Tags,
		ContactName:  input.ContactName,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		CompanyName:  input.CompanyName,
		Source:       input.Source,
	})
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to update opportunity: %w", err)
	}
	return nil, saveToOutput(res), nil
}

type MoveOpportunityInput struct {
	ID    string `json:"id" jsonschema:"Opportunity UUID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage id or title (required)"`
}

func (h *OpportunityHandlers) MoveOpportunity(ctx context.Context, request *mcp.CallToolRequest, input MoveOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("invalid id: %w", err)
	}
	if input.Stage == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("stage is required")
	}
	stage, err := h.stageRef(ctx, input.Stage)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}

	opp, err := h.engine.MoveToStage(ctx, id, stage)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to move opportunity: %w", err)
	}
	return nil, opportunityToOutput(opp), nil
}

type ListStageInput struct {
	Stage    string `json:"stage" jsonschema:"Stage id or title (required)"`
	Owner    string `json:"owner,omitempty" jsonschema:"Only this owner's opportunities"`
	Cursor   string `json:"cursor,omitempty" jsonschema:"Cursor from a previous page"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Page size (default 10)"`
}

type ListStageOutput struct {
	Stage         string              `json:"stage"`
	Opportunities []OpportunityOutput `json:"opportunities"`
	NextCursor    string              `json:"next_cursor,omitempty"`
	HasMore       bool                `json:"has_more"`
}

func (h *OpportunityHandlers) ListStage(ctx context.Context, request *mcp.CallToolRequest, input ListStageInput) (*mcp.CallToolResult, ListStageOutput, error) {
	if input.Stage == "" {
		return nil, ListStageOutput{}, fmt.Errorf("stage is required")
	}
	stage, err := h.stageRef(ctx, input.Stage)
	if err != nil {
		return nil, ListStageOutput{}, err
	}

	owner := input.Owner
	if owner == "" {
		owner = h.owner
	}
	page, err := h.engine.ListByStage(ctx, stage, store.ListOptions{
		Owner:    owner,
		Cursor:   input.Cursor,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, ListStageOutput{}, fmt.Errorf("failed to list stage: %w", err)
	}

	out := ListStageOutput{
		Stage:         stage,
		Opportunities: make([]OpportunityOutput, len(page.Items)),
		NextCursor:    page.NextCursor,
		HasMore:       page.HasMore,
	}
	for i := range page.Items {
		out.Opportunities[i] = opportunityToOutput(&page.Items[i])
	}
	return nil, out, nil
}

type StageSummaryInput struct{}

type StageSummaryRow struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type StageSummaryOutput struct {
	Stages     []StageSummaryRow `json:"stages"`
	TotalCount int               `json:"total_count"`
	TotalValue float64           `json:"total_value"`
}

func (h *OpportunityHandlers) StageSummary(ctx context.Context, request *mcp.CallToolRequest, input StageSummaryInput) (*mcp.CallToolResult, StageSummaryOutput, error) {
	stages, err := h.engine.Stages(ctx)
	if err != nil {
		return nil, StageSummaryOutput{}, err
	}
	totals, err := h.engine.StageAggregates(ctx)
	if err != nil {
		return nil, StageSummaryOutput{}, fmt.Errorf("failed to aggregate stages: %w", err)
	}

	out := StageSummaryOutput{Stages: make([]StageSummaryRow, 0, len(stages))}
	for _, st := range stages {
		t := totals[st.ID]
		out.Stages = append(out.Stages, StageSummaryRow{ID: st.ID, Title: st.Title, Count: t.Count, Value: t.Value})
		out.TotalCount += t.Count
		out.TotalValue += t.Value
	}
	return nil, out, nil
}

type DeleteOpportunityInput struct {
	ID string `json:"id" jsonschema:"Opportunity UUID (required)"`
}

type DeleteOpportunityOutput struct {
	ID             string   `json:"id"`
	ContactID      *string  `json:"contact_id,omitempty"`
	ContactDeleted bool     `json:"contact_deleted"`
	SharedWith     int      `json:"shared_with"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (h *OpportunityHandlers) DeleteOpportunity(ctx context.Context, request *mcp.CallToolRequest, input DeleteOpportunityInput) (*mcp.CallToolResult, DeleteOpportunityOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, DeleteOpportunityOutput{}, fmt.Errorf("invalid id: %w", err)
	}

	res, err := h.engine.Delete(ctx, id)
	if err != nil {
		return nil, DeleteOpportunityOutput{}, fmt.Errorf("failed to delete opportunity: %w", err)
	}

	out := DeleteOpportunityOutput{
		ID:             input.ID,
		ContactDeleted: res.ContactDeleted,
		SharedWith:     res.SharedWith,
		Warnings:       res.Warnings,
	}
	if res.ContactID != nil {
		cid := res.ContactID.String()
		out.ContactID = &cid
	}
	return nil, out, nil
}
