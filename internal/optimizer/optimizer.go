package optimizer

import (
	"errors"
	"sync"

	"SwarmFund/internal/calculator"
	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

// ErrOptimizationSkipped signals that the ROI input was degenerate and the
// prior weights were held unchanged. Logged by the caller, never fatal.
var ErrOptimizationSkipped = errors.New("optimization skipped: non-positive aggregate ROI")

// recentWindow bounds how many period ROI values feed the expected-return
// estimate.
const recentWindow = 12

// Optimizer converts tracked performance into capital-allocation weights.
// The weight vector itself is owned by the coordinator; the optimizer only
// computes new values.
type Optimizer struct {
	mu        sync.Mutex
	damping   float64
	recentROI map[model.StrategyKind][]float64
}

// New creates an optimizer with the given damping factor. Values outside
// (0, 1] fall back to 0.2.
func New(damping float64) *Optimizer {
	if damping <= 0 || damping > 1 {
		damping = 0.2
	}
	return &Optimizer{
		damping:   damping,
		recentROI: make(map[model.StrategyKind][]float64),
	}
}

// ROI computes profit divided by capital at period start, 0 when capital
// is zero so degenerate strategies never produce NaN.
func ROI(profit, capital decimal.Decimal) float64 {
	if !capital.IsPositive() {
		return 0
	}
	return profit.Div(capital).InexactFloat64()
}

// Optimize computes the next weight vector from per-strategy rollups and
// capital. When aggregate ROI is not positive the current weights are
// returned unchanged alongside ErrOptimizationSkipped. Otherwise each
// weight takes a damped step toward roi/Σroi, then is clamped to [0,1] and
// renormalized to sum to 1.
func (o *Optimizer) Optimize(current map[model.StrategyKind]float64, rollups map[model.StrategyKind]model.StrategyRollup, capitals map[model.StrategyKind]decimal.Decimal) (map[model.StrategyKind]float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rois := make(map[model.StrategyKind]float64, len(current))
	sum := 0.0
	for kind := range current {
		roi := ROI(rollups[kind].Profit24h, capitals[kind])
		rois[kind] = roi
		sum += roi
		o.recentROI[kind] = calculator.AppendBounded(o.recentROI[kind], roi, recentWindow)
	}

	next := make(map[model.StrategyKind]float64, len(current))
	for kind, w := range current {
		next[kind] = w
	}
	if sum <= 0 {
		return next, ErrOptimizationSkipped
	}

	normalized := make(map[string]float64, len(next))
	for kind, w := range next {
		target := rois[kind] / sum
		normalized[string(kind)] = calculator.Clamp01(calculator.Damp(w, target, o.damping))
	}
	if err := calculator.Renormalize(normalized); err != nil {
		return next, ErrOptimizationSkipped
	}
	for kind := range next {
		next[kind] = normalized[string(kind)]
	}
	return next, nil
}

// LastROI returns the most recent ROI recorded for a strategy, 0 when none.
func (o *Optimizer) LastROI(kind model.StrategyKind) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	rois := o.recentROI[kind]
	if len(rois) == 0 {
		return 0
	}
	return rois[len(rois)-1]
}

// ExpectedReturnRate is the rolling mean of the strategy's recent period
// ROI, published in the allocation file.
func (o *Optimizer) ExpectedReturnRate(kind model.StrategyKind) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return calculator.RollingMean(o.recentROI[kind], recentWindow)
}
