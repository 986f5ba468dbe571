package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTaskOutcome(_ *TaskOutcomeEvent) error { return nil }
func (n *NoopRecorder) RecordAllocation(_ *AllocationEvent) error   { return nil }
func (n *NoopRecorder) RecordReinvest(_ *ReinvestEvent) error       { return nil }
func (n *NoopRecorder) RecordGateway(_ *GatewayEvent) error         { return nil }
func (n *NoopRecorder) Close() error                                { return nil }
