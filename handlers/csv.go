// ABOUTME: Import, export and duplicate cleanup MCP tool handlers
// ABOUTME: CSV text travels inline in tool input and output
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/harperreed/pipecrm/importer"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CSVHandlers struct {
	importer *importer.Importer
	engine   *pipeline.Service
	owner    string
}

func NewCSVHandlers(imp *importer.Importer, engine *pipeline.Service, owner string) *CSVHandlers {
	return &CSVHandlers{importer: imp, engine: engine, owner: owner}
}

type ImportCSVInput struct {
	Kind string `json:"kind" jsonschema:"What the rows are: opportunities or contacts (required)"`
	CSV  string `json:"csv,omitempty" jsonschema:"CSV text with a header row"`
	Path string `json:"path,omitempty" jsonschema:"Path to a CSV file, used when csv is empty"`
}

type ImportCSVOutput struct {
	Kind   string          `json:"kind"`
	Report importer.Report `json:"report"`
}

func (h *CSVHandlers) ImportCSV(ctx context.Context, request *mcp.CallToolRequest, input ImportCSVInput) (*mcp.CallToolResult, ImportCSVOutput, error) {
	kind, err := pipeline.ParseKind(input.Kind)
	if err != nil {
		return nil, ImportCSVOutput{}, err
	}

	text := input.CSV
	if text == "" {
		if input.Path == "" {
			return nil, ImportCSVOutput{}, fmt.Errorf("csv or path is required")
		}
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, ImportCSVOutput{}, fmt.Errorf("failed to read %s: %w", input.Path, err)
		}
		text = string(data)
	}

	rows, err := importer.ReadCSV(strings.NewReader(text))
	if err != nil {
		return nil, ImportCSVOutput{}, fmt.Errorf("failed to parse csv: %w", err)
	}

	var report importer.Report
	switch kind {
	case pipeline.KindContacts:
		report, err = h.importer.ImportContacts(ctx, rows)
	default:
		report, err = h.importer.ImportOpportunities(ctx, rows)
	}
	if err != nil {
		return nil, ImportCSVOutput{}, fmt.Errorf("import failed: %w", err)
	}
	return nil, ImportCSVOutput{Kind: string(kind), Report: report}, nil
}

type ExportCSVInput struct {
	Kind  string `json:"kind" jsonschema:"What to export: opportunities or contacts (required)"`
	Owner string `json:"owner,omitempty" jsonschema:"Only this owner's opportunities"`
}

type ExportCSVOutput struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
	CSV   string `json:"csv"`
}

func (h *CSVHandlers) ExportCSV(ctx context.Context, request *mcp.CallToolRequest, input ExportCSVInput) (*mcp.CallToolResult, ExportCSVOutput, error) {
	kind, err := pipeline.ParseKind(input.Kind)
	if err != nil {
		return nil, ExportCSVOutput{}, err
	}

	var buf bytes.Buffer
	var n int
	switch kind {
	case pipeline.KindContacts:
		n, err = h.importer.ExportContacts(ctx, &buf)
	default:
		owner := input.Owner
		if owner == "" {
			owner = h.owner
		}
		n, err = h.importer.ExportOpportunities(ctx, &buf, owner)
	}
	if err != nil {
		return nil, ExportCSVOutput{}, fmt.Errorf("export failed: %w", err)
	}
	return nil, ExportCSVOutput{Kind: string(kind), Count: n, CSV: buf.String()}, nil
}

type RemoveDuplicatesInput struct {
	Kind string `json:"kind" jsonschema:"opportunities or contacts (required)"`
}

type RemoveDuplicatesOutput struct {
	Kind    string `json:"kind"`
	Removed int    `json:"removed"`
	Kept    int    `json:"kept"`
}

func (h *CSVHandlers) RemoveDuplicates(ctx context.Context, request *mcp.CallToolRequest, input RemoveDuplicatesInput) (*mcp.CallToolResult, RemoveDuplicatesOutput, error) {
	kind, err := pipeline.ParseKind(input.Kind)
	if err != nil {
		return nil, RemoveDuplicatesOutput{}, err
	}
	res, err := h.engine.RemoveDuplicates(ctx, kind)
	if err != nil {
		return nil, RemoveDuplicatesOutput{}, fmt.Errorf("failed to remove duplicates: %w", err)
	}
	return nil, RemoveDuplicatesOutput{Kind: string(kind), Removed: res.Removed, Kept: res.Kept}, nil
}
