package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"SwarmFund/internal/agent"
	"SwarmFund/internal/ledger"
	"SwarmFund/internal/model"
	"SwarmFund/internal/optimizer"
	"SwarmFund/internal/recorder"
	"SwarmFund/internal/report"
	"SwarmFund/internal/taskqueue"
	"SwarmFund/internal/tracker"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

var (
	// ErrInitializationFailed is the only fatal error: the configured
	// capital cannot fund a swarm.
	ErrInitializationFailed = errors.New("initialization failed: total capital must be positive")
	// ErrInvalidTransition is returned when Start/Stop is called in the
	// wrong state.
	ErrInvalidTransition = errors.New("invalid coordinator state transition")
)

// State is the coordinator lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateInitializing
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Well-known wallet ids. Everything else in the ledger is a user wallet
// fed through the gateway.
const (
	PoolWallet     = "pool"
	PlatformWallet = "platform"
)

// StrategyWallet returns the ledger id of a strategy's capital wallet.
func StrategyWallet(kind model.StrategyKind) string {
	return "strategy:" + string(kind)
}

func isSystemWallet(id string) bool {
	return id == PoolWallet || id == PlatformWallet || strings.HasPrefix(id, "strategy:")
}

// Options carries every coordinator tunable.
type Options struct {
	TotalCapital      decimal.Decimal
	Weights           map[model.StrategyKind]float64
	AgentsPerStrategy int
	MaxAgents         int
	SpawnThreshold    decimal.Decimal

	PlatformFeeRate    float64
	ReinvestRatio      float64
	InvestIdleFraction float64
	InvestIdleFloor    decimal.Decimal

	MonitorCron   string
	ReinvestCron  string
	MonitorRetry  time.Duration
	ReinvestRetry time.Duration
	IdlePoll      time.Duration
	GracePeriod   time.Duration

	TaskBatchSize int
	TaskLowWater  int

	SnapshotFile   string
	AllocationFile string

	Executor agent.StrategyExecutor
}

// Coordinator supervises the agent pool and drives the periodic
// monitor/optimize and reinvestment cycles. It is the sole owner of the
// allocation weight vector and the set of live agents.
type Coordinator struct {
	opts    Options
	ledger  *ledger.Ledger
	queue   *taskqueue.Queue
	tracker *tracker.Tracker
	opt     *optimizer.Optimizer
	rec     recorder.Recorder
	cron    *cron.Cron

	mu      sync.Mutex
	state   State
	weights map[model.StrategyKind]float64
	agents  []*agent.Agent
	perKind map[model.StrategyKind]int

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Cycle mutexes keep cron firings and backoff retries of the same
	// cycle from overlapping.
	monitorMu  sync.Mutex
	reinvestMu sync.Mutex
}

// New creates a coordinator. Start must be called to spawn the pool.
func New(opts Options, l *ledger.Ledger, q *taskqueue.Queue, t *tracker.Tracker, opt *optimizer.Optimizer, rec recorder.Recorder) *Coordinator {
	if opts.AgentsPerStrategy <= 0 {
		opts.AgentsPerStrategy = 1
	}
	if opts.IdlePoll <= 0 {
		opts.IdlePoll = time.Second
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 10 * time.Second
	}
	return &Coordinator{
		opts:    opts,
		ledger:  l,
		queue:   q,
		tracker: t,
		opt:     opt,
		rec:     rec,
		state:   StateStopped,
		weights: make(map[model.StrategyKind]float64),
		perKind: make(map[model.StrategyKind]int),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Weights returns a full copy of the current allocation weight vector. A
// caller sees either the pre- or post-update vector, never a mix.
func (c *Coordinator) Weights() map[model.StrategyKind]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[model.StrategyKind]float64, len(c.weights))
	for k, w := range c.weights {
		out[k] = w
	}
	return out
}

// AgentStats returns a snapshot of every live agent's counters.
func (c *Coordinator) AgentStats() []model.AgentStats {
	c.mu.Lock()
	agents := make([]*agent.Agent, len(c.agents))
	copy(agents, c.agents)
	c.mu.Unlock()

	stats := make([]model.AgentStats, len(agents))
	for i, a := range agents {
		stats[i] = a.Stats()
	}
	return stats
}

// Start allocates capital, spawns the agent pool and begins the periodic
// cycles. It fails with ErrInitializationFailed when total capital is not
// positive; that error is unrecoverable by design.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateStopped {
		c.mu.Unlock()
		return fmt.Errorf("start from %s: %w", c.state, ErrInvalidTransition)
	}
	c.state = StateInitializing
	// Agents from a previous run are dead once their context is cancelled;
	// drop them so they neither serve stale stats nor eat the MaxAgents
	// budget.
	c.agents = nil
	c.perKind = make(map[model.StrategyKind]int)
	c.mu.Unlock()
	log.Println("[INFO] coordinator initializing")

	if !c.opts.TotalCapital.IsPositive() {
		c.setState(StateStopped)
		return ErrInitializationFailed
	}

	if err := c.allocateCapital(); err != nil {
		c.setState(StateStopped)
		return fmt.Errorf("allocate capital: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.runCtx = runCtx
	c.cancel = cancel
	for kind := range c.weights {
		for i := 0; i < c.opts.AgentsPerStrategy; i++ {
			c.spawnAgentLocked(kind)
		}
	}
	agents := make([]*agent.Agent, len(c.agents))
	copy(agents, c.agents)
	c.mu.Unlock()

	c.cron = cron.New(cron.WithChain(cron.DelayIfStillRunning(cron.PrintfLogger(log.Default()))))
	if _, err := c.cron.AddFunc(c.opts.MonitorCron, c.runMonitor); err != nil {
		cancel()
		c.setState(StateStopped)
		return fmt.Errorf("register monitor cycle: %w", err)
	}
	if _, err := c.cron.AddFunc(c.opts.ReinvestCron, c.runReinvest); err != nil {
		cancel()
		c.setState(StateStopped)
		return fmt.Errorf("register reinvestment cycle: %w", err)
	}
	c.setState(StateRunning)
	c.cron.Start()

	c.wg.Add(1)
	go c.runGenerator(runCtx)
	for _, a := range agents {
		c.wg.Add(1)
		go c.runAgent(runCtx, a)
	}

	log.Printf("[INFO] coordinator running: %d agents across %d strategies, capital %s",
		len(agents), len(c.weights), c.opts.TotalCapital.StringFixed(2))
	return nil
}

// allocateCapital funds the pool wallet and distributes shares to each
// strategy wallet per the initial weight vector. Against an already-funded
// ledger it resumes: the existing allocation stands and only shortfalls
// are topped up from whatever the pool actually holds.
func (c *Coordinator) allocateCapital() error {
	if _, err := c.ledger.CreateWallet(PlatformWallet, decimal.Zero); err != nil {
		return err
	}
	pool, err := c.ledger.CreateWallet(PoolWallet, decimal.Zero)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.weights = make(map[model.StrategyKind]float64, len(c.opts.Weights))
	for kind, w := range c.opts.Weights {
		c.weights[kind] = w
	}
	snapshot := make(map[model.StrategyKind]float64, len(c.weights))
	for k, w := range c.weights {
		snapshot[k] = w
	}
	c.mu.Unlock()

	existing := pool.Balance
	balances := make(map[model.StrategyKind]decimal.Decimal, len(snapshot))
	for kind := range snapshot {
		w, err := c.ledger.CreateWallet(StrategyWallet(kind), decimal.Zero)
		if err != nil {
			return err
		}
		balances[kind] = w.Balance
		existing = existing.Add(w.Balance)
	}

	if !existing.IsPositive() {
		if err := c.ledger.Credit(PoolWallet, c.opts.TotalCapital, model.TxDeposit, "initial"); err != nil {
			return err
		}
	} else {
		log.Printf("[INFO] resuming with existing capital %s", existing.StringFixed(2))
	}

	for kind, w := range snapshot {
		walletID := StrategyWallet(kind)
		share := c.opts.TotalCapital.Mul(decimal.NewFromFloat(w)).Round(2)
		topUp := share.Sub(balances[kind])
		if topUp.IsPositive() {
			poolBalance, err := c.ledger.Balance(PoolWallet)
			if err != nil {
				return err
			}
			if topUp.GreaterThan(poolBalance) {
				topUp = poolBalance
			}
			if topUp.IsPositive() {
				if err := c.ledger.Transfer(PoolWallet, walletID, topUp, model.TxInvestment, "initial-allocation"); err != nil {
					return err
				}
			}
		}
		balance, err := c.ledger.Balance(walletID)
		if err != nil {
			return err
		}
		c.tracker.MarkCapital(kind, balance)
	}
	return nil
}

// spawnAgentLocked creates one agent for a strategy. Caller holds c.mu.
func (c *Coordinator) spawnAgentLocked(kind model.StrategyKind) *agent.Agent {
	n := c.perKind[kind] + 1
	id := fmt.Sprintf("agent-%s-%d", kind, n)
	a := agent.New(id, kind, StrategyWallet(kind), c.opts.Executor, c.ledger, c.tracker, c.rec, agent.Split{
		PlatformFeeRate: c.opts.PlatformFeeRate,
		PlatformWallet:  PlatformWallet,
	})
	c.agents = append(c.agents, a)
	c.perKind[kind] = n
	c.tracker.SetActive(kind, n)
	log.Printf("[INFO] spawned %s", id)
	return a
}

// runAgent is one agent's work loop: claim, execute, report, repeat, with
// a short idle backoff when the queue is empty. The loop exits only on
// context cancellation.
func (c *Coordinator) runAgent(ctx context.Context, a *agent.Agent) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok := c.queue.Claim()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.IdlePoll):
			}
			continue
		}

		out := a.RunTask(ctx, task)
		c.queue.Complete(task.ID, out.Success)
	}
}

// runGenerator keeps the task queue topped up to its low-water mark.
func (c *Coordinator) runGenerator(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.queue.Pending() < c.opts.TaskLowWater {
				c.queue.Generate(c.opts.TaskBatchSize)
			}
		}
	}
}

// runMonitor executes one monitor/optimize cycle. A failed cycle logs and
// retries after the monitor backoff instead of terminating the coordinator.
func (c *Coordinator) runMonitor() {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if c.State() != StateRunning {
		return
	}
	if err := c.monitorCycle(); err != nil {
		log.Printf("[ERROR] monitor cycle: %v, retrying in %v", err, c.opts.MonitorRetry)
		time.AfterFunc(c.opts.MonitorRetry, c.runMonitor)
	}
}

// RunMonitorNow triggers a monitor cycle immediately (manual trigger /
// RUN_ON_START).
func (c *Coordinator) RunMonitorNow() {
	c.runMonitor()
}

func (c *Coordinator) monitorCycle() error {
	weights := c.Weights()
	strategies := make([]model.StrategyKind, 0, len(weights))
	rollups := make(map[model.StrategyKind]model.StrategyRollup, len(weights))
	capitals := make(map[model.StrategyKind]decimal.Decimal, len(weights))

	for kind := range weights {
		strategies = append(strategies, kind)
		balance, err := c.ledger.Balance(StrategyWallet(kind))
		if err != nil {
			return fmt.Errorf("read %s capital: %w", kind, err)
		}
		c.tracker.MarkCapital(kind, balance)
		rollups[kind] = c.tracker.Rollup(kind)
		capitals[kind] = c.tracker.Capital(kind)
	}

	if err := c.tracker.SnapshotTo(c.opts.SnapshotFile, strategies); err != nil {
		return fmt.Errorf("persist performance snapshot: %w", err)
	}

	next, err := c.opt.Optimize(weights, rollups, capitals)
	if err != nil {
		if errors.Is(err, optimizer.ErrOptimizationSkipped) {
			log.Printf("[WARN] %v, holding current weights", err)
		} else {
			return fmt.Errorf("optimize allocations: %w", err)
		}
	} else {
		for kind := range next {
			if recErr := c.rec.RecordAllocation(&recorder.AllocationEvent{
				Strategy:     string(kind),
				WeightBefore: weights[kind],
				WeightAfter:  next[kind],
				ROI:          c.opt.LastROI(kind),
			}); recErr != nil {
				log.Printf("[ERROR] record allocation: %v", recErr)
			}
		}
	}

	c.mu.Lock()
	c.weights = next
	c.mu.Unlock()

	log.Print("[INFO] " + report.FormatMonitorReport(next, rollups))
	c.maybeScaleUp()

	stats := c.AgentStats()
	total := decimal.Zero
	for _, s := range stats {
		total = total.Add(s.ValueGenerated)
	}
	log.Print("[INFO] " + report.FormatSwarmStatus(stats, total))
	return nil
}

// maybeScaleUp grows the pool by one agent for the highest-weighted
// strategy when the average value generated per agent clears the spawn
// threshold.
func (c *Coordinator) maybeScaleUp() {
	stats := c.AgentStats()
	if len(stats) == 0 {
		return
	}
	total := decimal.Zero
	for _, s := range stats {
		total = total.Add(s.ValueGenerated)
	}
	avg := total.Div(decimal.NewFromInt(int64(len(stats))))
	if avg.LessThanOrEqual(c.opts.SpawnThreshold) {
		return
	}

	c.mu.Lock()
	if c.state != StateRunning || len(c.agents) >= c.opts.MaxAgents {
		c.mu.Unlock()
		if len(stats) >= c.opts.MaxAgents {
			log.Printf("[WARN] max agents limit (%d) reached", c.opts.MaxAgents)
		}
		return
	}
	var best model.StrategyKind
	bestW := -1.0
	for kind, w := range c.weights {
		if w > bestW {
			best, bestW = kind, w
		}
	}
	a := c.spawnAgentLocked(best)
	ctx := c.runCtx
	c.wg.Add(1)
	c.mu.Unlock()

	go c.runAgent(ctx, a)
}

// runReinvest executes one reinvestment cycle with the same retry policy
// as the monitor, on its own longer backoff.
func (c *Coordinator) runReinvest() {
	c.reinvestMu.Lock()
	defer c.reinvestMu.Unlock()
	if c.State() != StateRunning {
		return
	}
	if err := c.reinvestCycle(); err != nil {
		log.Printf("[ERROR] reinvestment cycle: %v, retrying in %v", err, c.opts.ReinvestRetry)
		time.AfterFunc(c.opts.ReinvestRetry, c.runReinvest)
	}
}

// RunReinvestNow triggers a reinvestment cycle immediately.
func (c *Coordinator) RunReinvestNow() {
	c.runReinvest()
}

// reinvestCycle pools the configured share of each strategy's period
// profit, redistributes it per the current weight vector, sweeps idle user
// funds, and rewrites the allocation file.
func (c *Coordinator) reinvestCycle() error {
	weights := c.Weights()
	ratio := decimal.NewFromFloat(c.opts.ReinvestRatio)

	pooled := decimal.Zero
	for kind := range weights {
		profit := c.tracker.Rollup(kind).Profit24h
		if !profit.IsPositive() {
			continue
		}
		contribution := profit.Mul(ratio).Round(2)
		balance, err := c.ledger.Balance(StrategyWallet(kind))
		if err != nil {
			return fmt.Errorf("read %s balance: %w", kind, err)
		}
		if contribution.GreaterThan(balance) {
			contribution = balance
		}
		if !contribution.IsPositive() {
			continue
		}
		if err := c.ledger.Transfer(StrategyWallet(kind), PoolWallet, contribution, model.TxDeposit, "reinvest-pool"); err != nil {
			return fmt.Errorf("pool %s profit: %w", kind, err)
		}
		pooled = pooled.Add(contribution)
	}

	records := make([]model.AllocationRecord, 0, len(weights))
	for kind, w := range weights {
		walletID := StrategyWallet(kind)
		amount := pooled.Mul(decimal.NewFromFloat(w)).Round(2)
		if amount.IsPositive() {
			if err := c.ledger.Transfer(PoolWallet, walletID, amount, model.TxInvestment, "reinvest"); err != nil {
				return fmt.Errorf("reinvest into %s: %w", kind, err)
			}
		}
		balance, err := c.ledger.Balance(walletID)
		if err != nil {
			return fmt.Errorf("read %s balance: %w", kind, err)
		}
		c.tracker.MarkCapital(kind, balance)

		// Until real ROI history accrues, the method catalogue provides
		// the indicative rate.
		rate := c.opt.ExpectedReturnRate(kind)
		if rate == 0 {
			rate = agent.ExpectedReturnRate(kind)
		}
		records = append(records, model.AllocationRecord{
			Strategy:           kind,
			Pool:               walletID,
			Amount:             amount.InexactFloat64(),
			ExpectedReturnRate: rate,
		})
		if err := c.rec.RecordReinvest(&recorder.ReinvestEvent{
			Strategy:  string(kind),
			Amount:    amount.InexactFloat64(),
			PoolAfter: balance.InexactFloat64(),
		}); err != nil {
			log.Printf("[ERROR] record reinvest: %v", err)
		}
	}

	c.sweepIdleFunds()

	if err := writeAllocations(c.opts.AllocationFile, records); err != nil {
		return fmt.Errorf("write allocation file: %w", err)
	}
	log.Print("[INFO] " + report.FormatReinvestReport(records, pooled))
	return nil
}

// sweepIdleFunds moves idle balances of user wallets into their invested
// pools. Failures here are logged, not fatal to the cycle.
func (c *Coordinator) sweepIdleFunds() {
	if c.opts.InvestIdleFraction <= 0 {
		return
	}
	for _, id := range c.ledger.WalletIDs() {
		if isSystemWallet(id) {
			continue
		}
		moved, err := c.ledger.InvestIdle(id, c.opts.InvestIdleFraction, c.opts.InvestIdleFloor)
		if err != nil {
			log.Printf("[ERROR] invest idle funds for %s: %v", id, err)
			continue
		}
		if moved.IsPositive() {
			log.Printf("[INFO] invested %s idle funds from %s", moved.StringFixed(2), id)
		}
	}
}

// Stop signals the pool to cease, waits out the grace period, persists a
// final performance snapshot and returns the coordinator to Stopped.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return fmt.Errorf("stop from %s: %w", c.state, ErrInvalidTransition)
	}
	c.state = StateStopping
	cancel := c.cancel
	c.mu.Unlock()
	log.Println("[INFO] coordinator stopping")

	cancel()
	if c.cron != nil {
		c.cron.Stop()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.opts.GracePeriod):
		log.Printf("[WARN] grace period %v elapsed with work still settling", c.opts.GracePeriod)
	}

	weights := c.Weights()
	strategies := make([]model.StrategyKind, 0, len(weights))
	for kind := range weights {
		strategies = append(strategies, kind)
	}
	if err := c.tracker.SnapshotTo(c.opts.SnapshotFile, strategies); err != nil {
		log.Printf("[ERROR] final performance snapshot: %v", err)
	}

	c.setState(StateStopped)
	log.Println("[INFO] coordinator stopped")
	return nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
