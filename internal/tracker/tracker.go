package tracker

import (
	"sync"
	"time"

	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

type periodKey struct {
	strategy  model.StrategyKind
	startUnix int64
}

// Tracker records per-strategy task outcomes into fixed-width wall-clock
// periods and computes derived statistics. All methods are safe for
// concurrent use; agents report while the coordinator reads rollups.
type Tracker struct {
	mu       sync.Mutex
	window   time.Duration
	periods  map[periodKey]*model.PerformanceSample
	capitals map[model.StrategyKind]decimal.Decimal
	active   map[model.StrategyKind]int
	now      func() time.Time
}

// New creates a tracker aggregating over the given period width. A zero
// window defaults to 24 hours.
func New(window time.Duration) *Tracker {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Tracker{
		window:   window,
		periods:  make(map[periodKey]*model.PerformanceSample),
		capitals: make(map[model.StrategyKind]decimal.Decimal),
		active:   make(map[model.StrategyKind]int),
		now:      time.Now,
	}
}

// Record appends one outcome to the strategy's current period bucket.
func (t *Tracker) Record(strategy model.StrategyKind, outcome model.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.bucket(strategy, t.now().UTC())
	s.Attempts++
	if outcome.Success {
		s.Successes++
		s.Profit = s.Profit.Add(outcome.Value)
	}
}

// MarkCapital sets the capital the strategy holds at the start of the
// current period. The value also seeds buckets opened later in the same
// process lifetime.
func (t *Tracker) MarkCapital(strategy model.StrategyKind, capital decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.capitals[strategy] = capital
	t.bucket(strategy, t.now().UTC()).Capital = capital
}

// SetActive records the number of live positions (agents) for a strategy.
func (t *Tracker) SetActive(strategy model.StrategyKind, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[strategy] = n
}

// Rollup aggregates the current and immediately preceding period for one
// strategy. SuccessRate is 0 when there were no attempts.
func (t *Tracker) Rollup(strategy model.StrategyKind) model.StrategyRollup {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.now().UTC().Truncate(t.window)
	previous := current.Add(-t.window)

	var r model.StrategyRollup
	r.Profit24h = decimal.Zero
	for _, start := range []time.Time{previous, current} {
		s, ok := t.periods[periodKey{strategy, start.Unix()}]
		if !ok {
			continue
		}
		r.Profit24h = r.Profit24h.Add(s.Profit)
		r.Attempts += s.Attempts
		if s.Successes > 0 {
			r.SuccessRate += float64(s.Successes)
		}
	}
	if r.Attempts > 0 {
		r.SuccessRate = r.SuccessRate / float64(r.Attempts)
	} else {
		r.SuccessRate = 0
	}
	r.ActivePositions = t.active[strategy]
	return r
}

// Capital returns the last marked capital for the strategy, zero when
// never marked.
func (t *Tracker) Capital(strategy model.StrategyKind) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.capitals[strategy]
	if !ok {
		return decimal.Zero
	}
	return c
}

// bucket returns the sample for the strategy's period containing ts,
// creating it with the last marked capital. Caller holds t.mu.
func (t *Tracker) bucket(strategy model.StrategyKind, ts time.Time) *model.PerformanceSample {
	start := ts.Truncate(t.window)
	key := periodKey{strategy, start.Unix()}
	s, ok := t.periods[key]
	if !ok {
		s = &model.PerformanceSample{
			Strategy:    strategy,
			PeriodStart: start,
			Capital:     t.capitals[strategy],
			Profit:      decimal.Zero,
		}
		t.periods[key] = s
	}
	return s
}
