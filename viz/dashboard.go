// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: ASCII pipeline overview with per-stage bars, counts and totals
package viz

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

type DashboardStats struct {
	Stages []StageStats

	TotalOpportunities int
	TotalValue         float64
	Won                int
}

type StageStats struct {
	Stage models.Stage
	store.StageTotals
}

// GenerateDashboardStats collects totals in stage order. Opportunities in
// stages that are no longer configured count toward the totals only.
func GenerateDashboardStats(ctx context.Context, source Source) (*DashboardStats, error) {
	stages, err := source.Stages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	totals, err := source.StageAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage totals: %w", err)
	}

	stats := &DashboardStats{}
	for _, st := range stages {
		t := totals[st.ID]
		stats.Stages = append(stats.Stages, StageStats{Stage: st, StageTotals: t})
		if st.ID == source.ClosedStageID() {
			stats.Won = t.Count
		}
	}
	for _, t := range totals {
		stats.TotalOpportunities += t.Count
		stats.TotalValue += t.Value
	}
	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PIPELINE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.Stages)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d opportunities  💰 %s  🏆 %d won\n",
		stats.TotalOpportunities, FormatMoney(stats.TotalValue), stats.Won))

	return out.String()
}

func renderPipeline(out *strings.Builder, stages []StageStats) {
	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		// 0-10 blocks
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-16s %s  %3d  %s\n",
			truncate(s.Stage.Title, 16), bar, s.Count, FormatMoney(s.Value)))
	}
}

// FormatMoney renders a value as $1.2K / $3.4M above a thousand.
func FormatMoney(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
