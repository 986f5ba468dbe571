package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"SwarmFund/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return "$" + humanize.CommafWithDigits(d.InexactFloat64(), 2)
}

// FormatSwarmStatus renders a one-screen status of the agent pool.
func FormatSwarmStatus(stats []model.AgentStats, totalValue decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("swarm status | %d agents, %s generated\n", len(stats), money(totalValue)))
	for _, s := range stats {
		line := fmt.Sprintf("  %-12s %-16s tasks=%-5d value=%s", s.ID, s.Kind, s.TasksCompleted, money(s.ValueGenerated))
		if s.LastError != "" {
			line += " last_error=" + s.LastError
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatMonitorReport renders the outcome of one monitor/optimize cycle.
func FormatMonitorReport(weights map[model.StrategyKind]float64, rollups map[model.StrategyKind]model.StrategyRollup) string {
	kinds := make([]model.StrategyKind, 0, len(weights))
	for k := range weights {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var b strings.Builder
	b.WriteString(fmt.Sprintf("monitor cycle | %s\n", time.Now().Format("2006-01-02 15:04")))
	for _, k := range kinds {
		r := rollups[k]
		b.WriteString(fmt.Sprintf("  %-16s weight=%.3f profit24h=%s success=%.0f%% active=%d\n",
			k, weights[k], money(r.Profit24h), r.SuccessRate*100, r.ActivePositions))
	}
	return b.String()
}

// FormatReinvestReport renders the outcome of one reinvestment cycle.
func FormatReinvestReport(records []model.AllocationRecord, pooled decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("reinvestment cycle | pooled %s\n", money(pooled)))
	for _, r := range records {
		b.WriteString(fmt.Sprintf("  %-16s -> %s (expected return %.2f%%)\n",
			r.Strategy, "$"+humanize.CommafWithDigits(r.Amount, 2), r.ExpectedReturnRate*100))
	}
	return b.String()
}
