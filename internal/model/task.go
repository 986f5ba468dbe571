package model

import "time"

// StrategyKind names a category of value-generating work. The set is open:
// unknown kinds fall back to the generic strategy.
type StrategyKind string

const (
	StrategyFreelance      StrategyKind = "freelance"
	StrategyAffiliate      StrategyKind = "affiliate"
	StrategyDigitalProduct StrategyKind = "digital_product"
	StrategyServiceResale  StrategyKind = "service_resale"
	StrategyAIService      StrategyKind = "ai_service"
	StrategyGeneric        StrategyKind = "generic"
)

// KnownStrategies returns the strategy kinds with dedicated method
// catalogues, excluding the generic fallback.
func KnownStrategies() []StrategyKind {
	return []StrategyKind{
		StrategyFreelance,
		StrategyAffiliate,
		StrategyDigitalProduct,
		StrategyServiceResale,
		StrategyAIService,
	}
}

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskClaimed TaskStatus = "claimed"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is one discrete unit of work dispensed by the queue and consumed
// exactly once by one agent.
type Task struct {
	ID        string
	Kind      StrategyKind
	Params    map[string]string
	CreatedAt time.Time
	Status    TaskStatus
}
