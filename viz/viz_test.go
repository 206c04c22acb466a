package viz

import (
	"context"
	"strings"
	"testing"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	stages []models.Stage
	totals map[string]store.StageTotals
}

func (f fakeSource) Stages(context.Context) ([]models.Stage, error) { return f.stages, nil }
func (f fakeSource) StageAggregates(context.Context) (map[string]store.StageTotals, error) {
	return f.totals, nil
}
func (f fakeSource) ClosedStageID() string { return "won" }

func testSource() fakeSource {
	return fakeSource{
		stages: []models.Stage{{ID: "lead", Title: "Lead"}, {ID: "won", Title: "Closed/Won", Color: "#43a047"}},
		totals: map[string]store.StageTotals{
			"lead":    {Count: 4, Value: 2500},
			"won":     {Count: 1, Value: 1_500_000},
			"retired": {Count: 2, Value: 10},
		},
	}
}

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:         "$0",
		950:       "$950",
		2500:      "$2.5K",
		1_500_000: "$1.5M",
	}
	for in, want := range tests {
		if got := FormatMoney(in); got != want {
			t.Errorf("FormatMoney(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDashboard(t *testing.T) {
	stats, err := GenerateDashboardStats(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalOpportunities)
	assert.Equal(t, 1, stats.Won)
	require.Len(t, stats.Stages, 2)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "Lead")
	assert.Contains(t, out, "██████████")
	assert.True(t, strings.Contains(out, "7 opportunities"))
}

func TestPipelineGraph(t *testing.T) {
	dot, err := NewGraphGenerator(testSource()).GeneratePipelineGraph(context.Background())
	require.NoError(t, err)
	assert.Contains(t, dot, "stage_lead")
	assert.Contains(t, dot, "stage_won")
	assert.Contains(t, dot, "->")
}
