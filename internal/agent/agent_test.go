package agent

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"SwarmFund/internal/ledger"
	"SwarmFund/internal/model"
	"SwarmFund/internal/recorder"
	"SwarmFund/internal/tracker"

	"github.com/shopspring/decimal"
)

type stubExecutor struct {
	value decimal.Decimal
	err   error
	panic bool
}

func (s *stubExecutor) Execute(_ context.Context, _ Method, _ model.Task) (decimal.Decimal, error) {
	if s.panic {
		panic("executor blew up")
	}
	return s.value, s.err
}

func newTestAgent(t *testing.T, exec StrategyExecutor) (*Agent, *ledger.Ledger, *tracker.Tracker) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "wallets.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	tr := tracker.New(24 * time.Hour)
	a := New("agent-freelance-1", model.StrategyFreelance, "strategy:freelance", exec, l, tr, recorder.NewNoopRecorder(), Split{
		PlatformFeeRate: 0.10,
		PlatformWallet:  "platform",
	})
	return a, l, tr
}

func testTask() model.Task {
	return model.Task{ID: "task-1", Kind: model.StrategyFreelance, Status: model.TaskClaimed}
}

func TestRunTask_SplitsValue(t *testing.T) {
	a, l, tr := newTestAgent(t, &stubExecutor{value: decimal.NewFromInt(100)})

	out := a.RunTask(context.Background(), testTask())
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if !out.Value.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected value 100, got %s", out.Value)
	}

	principal, err := l.Balance("strategy:freelance")
	if err != nil {
		t.Fatalf("strategy balance: %v", err)
	}
	if !principal.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected principal 90, got %s", principal)
	}
	fee, err := l.Balance("platform")
	if err != nil {
		t.Fatalf("platform balance: %v", err)
	}
	if !fee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected platform fee 10, got %s", fee)
	}

	r := tr.Rollup(model.StrategyFreelance)
	if r.Attempts != 1 || r.SuccessRate != 1 {
		t.Errorf("unexpected rollup: %+v", r)
	}
	stats := a.Stats()
	if stats.TasksCompleted != 1 || !stats.ValueGenerated.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRunTask_ExecutorError(t *testing.T) {
	a, l, tr := newTestAgent(t, &stubExecutor{err: errors.New("market check timed out")})

	out := a.RunTask(context.Background(), testTask())
	if out.Success {
		t.Fatal("expected failed outcome")
	}
	if out.ErrorTag == "" {
		t.Error("expected error tag on failed outcome")
	}
	if _, err := l.Balance("strategy:freelance"); !errors.Is(err, ledger.ErrUnknownWallet) {
		t.Error("failed task must not credit the ledger")
	}
	r := tr.Rollup(model.StrategyFreelance)
	if r.Attempts != 1 || r.SuccessRate != 0 {
		t.Errorf("failed attempt not recorded: %+v", r)
	}
	if a.Stats().LastError == "" {
		t.Error("expected last error to be set")
	}
}

func TestRunTask_PanicAbsorbed(t *testing.T) {
	a, _, tr := newTestAgent(t, &stubExecutor{panic: true})

	out := a.RunTask(context.Background(), testTask())
	if out.Success {
		t.Fatal("expected failed outcome from panic")
	}
	if r := tr.Rollup(model.StrategyFreelance); r.Attempts != 1 {
		t.Errorf("panicked attempt not recorded: %+v", r)
	}

	// The agent keeps working afterwards.
	a.executor = &stubExecutor{value: decimal.NewFromInt(10)}
	if out := a.RunTask(context.Background(), testTask()); !out.Success {
		t.Errorf("agent did not recover after panic: %+v", out)
	}
}

func TestSelectMethod_TopBand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	// The generic catalogue spans every kind, so only the highest-expected
	// methods are valid picks.
	methods := MethodsFor(model.StrategyGeneric)
	vals := make([]float64, 0, len(methods))
	for _, m := range methods {
		vals = append(vals, m.ExpectedValue())
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	floor := vals[2]

	for i := 0; i < 50; i++ {
		m, ok := SelectMethod(rng, model.StrategyGeneric)
		if !ok {
			t.Fatal("expected a method")
		}
		if m.ExpectedValue() < floor {
			t.Errorf("selected method %s below top band: %v < %v", m.Name, m.ExpectedValue(), floor)
		}
	}
}

func TestSelectMethod_UnknownKindFallsBack(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, ok := SelectMethod(rng, model.StrategyKind("mystery"))
	if !ok {
		t.Fatal("expected fallback method for unknown kind")
	}
	if m.Name == "" {
		t.Error("expected a concrete method")
	}
}
