package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"SwarmFund/internal/model"
	"SwarmFund/internal/oracle"

	"github.com/shopspring/decimal"
)

// StrategyExecutor performs the actual value-generating work for one
// method. The orchestration contract holds for any implementation, real or
// simulated.
type StrategyExecutor interface {
	Execute(ctx context.Context, method Method, task model.Task) (decimal.Decimal, error)
}

// SimulatedExecutor stands in for real strategy implementations. It checks
// the price oracle (treating oracle failure as a failed execution), draws a
// value uniformly from the method's band, and fails at a configured rate.
type SimulatedExecutor struct {
	mu          sync.Mutex
	rng         *rand.Rand
	Oracle      oracle.Oracle
	FailureRate float64
	CallTimeout time.Duration
}

// NewSimulatedExecutor creates a simulated executor backed by the given oracle.
func NewSimulatedExecutor(o oracle.Oracle, failureRate float64, callTimeout time.Duration) *SimulatedExecutor {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &SimulatedExecutor{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		Oracle:      o,
		FailureRate: failureRate,
		CallTimeout: callTimeout,
	}
}

// Execute runs one simulated method execution. The oracle call is bounded
// by CallTimeout; a timeout is a failure, not a retry.
func (e *SimulatedExecutor) Execute(ctx context.Context, method Method, task model.Task) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.CallTimeout)
	defer cancel()

	if err := e.checkMarket(callCtx); err != nil {
		return decimal.Zero, fmt.Errorf("market check for %s: %w", method.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() < e.FailureRate {
		return decimal.Zero, fmt.Errorf("method %s yielded no value", method.Name)
	}
	value := method.MinValue + e.rng.Float64()*(method.MaxValue-method.MinValue)
	return decimal.NewFromFloat(value).Round(2), nil
}

// checkMarket performs the oracle call under the bounded context. The
// oracle itself has no deadline awareness, so the call runs in a goroutine
// and the result is abandoned on timeout.
func (e *SimulatedExecutor) checkMarket(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := e.Oracle.GetPrice("BTC/USD")
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
