package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the result of one task execution. Agents never surface errors
// directly; failures are folded into a failed Outcome with an ErrorTag.
type Outcome struct {
	Success  bool
	Value    decimal.Decimal
	Method   string
	ErrorTag string
	Metadata map[string]string
}

// AgentStats is a read-only view of an agent's cumulative counters.
type AgentStats struct {
	ID             string
	Kind           StrategyKind
	TasksCompleted int
	ValueGenerated decimal.Decimal
	LastError      string
	CreatedAt      time.Time
}
