package model

// AllocationRecord is one entry of the allocation file, rewritten each
// reinvestment cycle.
type AllocationRecord struct {
	Strategy           StrategyKind `json:"strategy"`
	Pool               string       `json:"pool"`
	Amount             float64      `json:"amount"`
	ExpectedReturnRate float64      `json:"expectedReturnRate"`
}
