// ABOUTME: Pipeline graph generation
// ABOUTME: Renders the stage chain as DOT, each stage labelled with its count and total value
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

// Source supplies the stage list and per-stage totals.
type Source interface {
	Stages(ctx context.Context) ([]models.Stage, error)
	StageAggregates(ctx context.Context) (map[string]store.StageTotals, error)
	ClosedStageID() string
}

type GraphGenerator struct {
	source Source
}

func NewGraphGenerator(source Source) *GraphGenerator {
	return &GraphGenerator{source: source}
}

// GeneratePipelineGraph returns DOT source for the stage chain in configured order.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	stages, err := g.source.Stages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load stages: %w", err)
	}
	totals, err := g.source.StageAggregates(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load stage totals: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	graph.SetLabel("Pipeline")

	var prev *cgraph.Node
	for _, st := range stages {
		node, err := graph.CreateNodeByName("stage_" + st.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create node for stage %s: %w", st.ID, err)
		}

		t := totals[st.ID]
		node.SetLabel(fmt.Sprintf("%s\n%d · %s", st.Title, t.Count, FormatMoney(t.Value)))
		node.SetShape("box")
		node.SetStyle("filled")
		if st.ID == g.source.ClosedStageID() {
			node.SetShape("doubleoctagon")
		}
		if st.Color != "" {
			node.SetFillColor(st.Color)
		} else {
			node.SetFillColor("lightgrey")
		}

		if prev != nil {
			if _, err := graph.CreateEdgeByName("", prev, node); err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
		}
		prev = node
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
