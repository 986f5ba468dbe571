package agent

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"SwarmFund/internal/ledger"
	"SwarmFund/internal/model"
	"SwarmFund/internal/recorder"
	"SwarmFund/internal/tracker"

	"github.com/shopspring/decimal"
)

// Split controls how generated value is divided between the platform and
// the strategy's principal wallet.
type Split struct {
	PlatformFeeRate float64
	PlatformWallet  string
}

// Agent is a long-lived worker executing one strategy kind. It owns its
// cumulative counters exclusively; other components only read them through
// Stats.
type Agent struct {
	ID       string
	Kind     model.StrategyKind
	WalletID string

	executor StrategyExecutor
	ledger   *ledger.Ledger
	tracker  *tracker.Tracker
	rec      recorder.Recorder
	split    Split
	rng      *rand.Rand

	mu             sync.Mutex
	tasksCompleted int
	valueGenerated decimal.Decimal
	lastError      string
	createdAt      time.Time
}

// New creates an agent reporting to the given ledger, tracker and recorder.
func New(id string, kind model.StrategyKind, walletID string, exec StrategyExecutor, l *ledger.Ledger, t *tracker.Tracker, rec recorder.Recorder, split Split) *Agent {
	return &Agent{
		ID:             id,
		Kind:           kind,
		WalletID:       walletID,
		executor:       exec,
		ledger:         l,
		tracker:        t,
		rec:            rec,
		split:          split,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		valueGenerated: decimal.Zero,
		createdAt:      time.Now().UTC(),
	}
}

// RunTask executes one task and reports the outcome to the tracker, ledger
// and recorder. Execution errors and panics never escape: they are folded
// into a failed Outcome.
func (a *Agent) RunTask(ctx context.Context, task model.Task) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = a.failed(task, "", fmt.Sprintf("panic: %v", r))
			a.report(task, out)
		}
	}()

	method, ok := SelectMethod(a.rng, a.Kind)
	if !ok {
		out = a.failed(task, "", "no suitable method")
		a.report(task, out)
		return out
	}

	value, err := a.executor.Execute(ctx, method, task)
	if err != nil {
		out = a.failed(task, method.Name, err.Error())
		a.report(task, out)
		return out
	}

	if err := a.creditValue(task, value); err != nil {
		// Value was generated but could not be booked; count the task as
		// failed so the ledger stays authoritative.
		log.Printf("[ERROR] agent %s: credit value for task %s: %v", a.ID, task.ID, err)
		out = a.failed(task, method.Name, "ledger credit failed")
		a.report(task, out)
		return out
	}

	a.mu.Lock()
	a.tasksCompleted++
	a.valueGenerated = a.valueGenerated.Add(value)
	a.lastError = ""
	a.mu.Unlock()

	out = model.Outcome{
		Success: true,
		Value:   value,
		Method:  method.Name,
		Metadata: map[string]string{
			"task_kind": string(task.Kind),
		},
	}
	a.report(task, out)
	return out
}

// creditValue books a successful outcome: the platform takes its fixed fee
// cut, the remainder is deposited to the strategy wallet.
func (a *Agent) creditValue(task model.Task, value decimal.Decimal) error {
	fee := value.Mul(decimal.NewFromFloat(a.split.PlatformFeeRate)).Round(2)
	principal := value.Sub(fee)

	if principal.IsPositive() {
		if err := a.ledger.Credit(a.WalletID, principal, model.TxDeposit, task.ID); err != nil {
			return fmt.Errorf("credit principal: %w", err)
		}
	}
	if fee.IsPositive() {
		if err := a.ledger.Credit(a.split.PlatformWallet, fee, model.TxFee, task.ID); err != nil {
			return fmt.Errorf("credit platform fee: %w", err)
		}
	}
	return nil
}

func (a *Agent) failed(task model.Task, method, tag string) model.Outcome {
	a.mu.Lock()
	a.lastError = tag
	a.mu.Unlock()
	return model.Outcome{
		Success:  false,
		Value:    decimal.Zero,
		Method:   method,
		ErrorTag: tag,
	}
}

func (a *Agent) report(task model.Task, out model.Outcome) {
	a.tracker.Record(a.Kind, out)
	if err := a.rec.RecordTaskOutcome(&recorder.TaskOutcomeEvent{
		AgentID:  a.ID,
		TaskID:   task.ID,
		Strategy: string(a.Kind),
		Method:   out.Method,
		Success:  out.Success,
		Value:    out.Value.InexactFloat64(),
		ErrorTag: out.ErrorTag,
	}); err != nil {
		log.Printf("[ERROR] record task outcome: %v", err)
	}
}

// Stats returns a copy of the agent's cumulative counters.
func (a *Agent) Stats() model.AgentStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.AgentStats{
		ID:             a.ID,
		Kind:           a.Kind,
		TasksCompleted: a.tasksCompleted,
		ValueGenerated: a.valueGenerated,
		LastError:      a.lastError,
		CreatedAt:      a.createdAt,
	}
}
