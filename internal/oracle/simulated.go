package oracle

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimulatedOracle returns randomized prices around fixed seeds with
// configurable latency and failure rate. It stands in for a real market
// data and settlement provider during development and testing.
type SimulatedOracle struct {
	mu          sync.Mutex
	rng         *rand.Rand
	basePrices  map[string]float64
	Latency     time.Duration
	FailureRate float64
}

// NewSimulatedOracle creates a simulated oracle with default price seeds.
func NewSimulatedOracle(latency time.Duration, failureRate float64) *SimulatedOracle {
	return &SimulatedOracle{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		basePrices: map[string]float64{
			"BTC/USD": 60000,
			"ETH/USD": 3000,
		},
		Latency:     latency,
		FailureRate: failureRate,
	}
}

func (o *SimulatedOracle) Name() string { return "simulated" }

// GetPrice returns the seed price jittered by up to ±2%.
func (o *SimulatedOracle) GetPrice(pair string) (decimal.Decimal, error) {
	time.Sleep(o.Latency)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rng.Float64() < o.FailureRate {
		return decimal.Zero, ErrUnavailable
	}
	base, ok := o.basePrices[pair]
	if !ok {
		base = 100
	}
	jitter := 1 + (o.rng.Float64()-0.5)*0.04
	return decimal.NewFromFloat(base * jitter).Round(2), nil
}

// ExecuteTransfer acknowledges a transfer after the configured latency,
// failing at the configured rate.
func (o *SimulatedOracle) ExecuteTransfer(req TransferRequest) (Receipt, error) {
	time.Sleep(o.Latency)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rng.Float64() < o.FailureRate {
		return Receipt{}, ErrUnavailable
	}
	return Receipt{
		ID:          uuid.NewString()[:8],
		Amount:      req.Amount,
		CompletedAt: time.Now().UTC(),
	}, nil
}
