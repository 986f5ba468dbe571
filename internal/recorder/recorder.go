package recorder

// TaskOutcomeEvent records one agent task execution.
type TaskOutcomeEvent struct {
	AgentID  string
	TaskID   string
	Strategy string
	Method   string
	Success  bool
	Value    float64
	ErrorTag string
}

// AllocationEvent records one strategy's weight change from a monitor cycle.
type AllocationEvent struct {
	Strategy     string
	WeightBefore float64
	WeightAfter  float64
	ROI          float64
}

// ReinvestEvent records capital redistributed to one strategy pool.
type ReinvestEvent struct {
	Strategy  string
	Amount    float64
	PoolAfter float64
}

// GatewayEvent records an incoming funds event, duplicates included.
type GatewayEvent struct {
	EventID   string
	UserID    string
	Amount    float64
	Duplicate bool
}

// Recorder persists historical events for analysis.
type Recorder interface {
	RecordTaskOutcome(evt *TaskOutcomeEvent) error
	RecordAllocation(evt *AllocationEvent) error
	RecordReinvest(evt *ReinvestEvent) error
	RecordGateway(evt *GatewayEvent) error
	Close() error
}
