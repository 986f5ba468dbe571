package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSample aggregates one strategy's outcomes over one fixed-width
// period. Samples are append-only, keyed by (strategy, period start).
type PerformanceSample struct {
	Strategy    StrategyKind
	PeriodStart time.Time
	Capital     decimal.Decimal
	Profit      decimal.Decimal
	Attempts    int
	Successes   int
}

// StrategyRollup summarizes the current and immediately preceding complete
// period for one strategy.
type StrategyRollup struct {
	Profit24h       decimal.Decimal
	SuccessRate     float64
	ActivePositions int
	Attempts        int
}

// StrategySnapshot is the per-strategy entry of a performance snapshot file.
type StrategySnapshot struct {
	Capital         float64 `json:"capital"`
	Profit24h       float64 `json:"profit24h"`
	ActivePositions int     `json:"activePositions"`
	SuccessRate     float64 `json:"successRate"`
}
