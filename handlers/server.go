// ABOUTME: MCP server assembly
// ABOUTME: Registers every pipeline tool and the pipeline graph resource
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/tasks"
	"github.com/harperreed/pipecrm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const pipelineGraphURI = "pipecrm://pipeline.dot"

// NewServer builds an MCP server over the services in a.
func NewServer(a *app.App, version string) *mcp.Server {
	owner := a.Config.Owner
	opps := NewOpportunityHandlers(a.Pipeline, owner)
	csv := NewCSVHandlers(a.Importer, a.Pipeline, owner)
	taskHandlers := NewTaskHandlers(a.Tasks, tasks.Identity{ID: owner})

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pipecrm",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_opportunity",
		Description: "Create an opportunity; the named contact is matched by email, phone or name and reused, patched or created",
	}, opps.CreateOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_opportunity",
		Description: "Update opportunity fields; changing contact fields re-links the contact",
	}, opps.UpdateOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_opportunity",
		Description: "Move an opportunity to another stage; entering the closed stage marks it Won and leaving it reopens it",
	}, opps.MoveOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_stage",
		Description: "List one page of opportunities in a stage, oldest first",
	}, opps.ListStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stage_summary",
		Description: "Count and total value of opportunities per stage",
	}, opps.StageSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_opportunity",
		Description: "Delete an opportunity and its linked contact",
	}, opps.DeleteOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_csv",
		Description: "Import opportunities or contacts from CSV; bad rows are reported and skipped",
	}, csv.ImportCSV)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_csv",
		Description: "Export opportunities or contacts as CSV",
	}, csv.ExportCSV)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_duplicates",
		Description: "Remove duplicate contacts or opportunities, keeping the earliest of each group",
	}, csv.RemoveDuplicates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Add a task to an opportunity",
	}, taskHandlers.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_task",
		Description: "Toggle a task's completion; only its assignee may do this",
	}, taskHandlers.ToggleTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_note",
		Description: "Add a note to an opportunity",
	}, taskHandlers.AddNote)

	server.AddResource(&mcp.Resource{
		URI:         pipelineGraphURI,
		Name:        "pipeline",
		Description: "Stage chain in Graphviz DOT with per-stage counts and values",
		MIMEType:    "text/vnd.graphviz",
	}, PipelineGraphResource(viz.NewGraphGenerator(a.Pipeline)))

	return server
}

// PipelineGraphResource serves the pipeline graph.
func PipelineGraphResource(gen *viz.GraphGenerator) mcp.ResourceHandler {
	return func(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		dot, err := gen.GeneratePipelineGraph(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate graph: %w", err)
		}
		return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
			{
				URI:      pipelineGraphURI,
				MIMEType: "text/vnd.graphviz",
				Text:     dot,
			},
		}}, nil
	}
}

// Serve runs the server on stdio until ctx is cancelled or the client hangs up.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
