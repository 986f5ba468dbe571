package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestRollup_ZeroAttempts(t *testing.T) {
	tr := New(24 * time.Hour)
	r := tr.Rollup(model.StrategyFreelance)
	if r.SuccessRate != 0 {
		t.Errorf("expected success rate 0 with no attempts, got %v", r.SuccessRate)
	}
	if !r.Profit24h.IsZero() {
		t.Errorf("expected zero profit, got %s", r.Profit24h)
	}
}

func TestRecord_AggregatesCurrentPeriod(t *testing.T) {
	tr := New(24 * time.Hour)
	tr.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	tr.Record(model.StrategyFreelance, model.Outcome{Success: true, Value: decimal.NewFromInt(40)})
	tr.Record(model.StrategyFreelance, model.Outcome{Success: true, Value: decimal.NewFromInt(10)})
	tr.Record(model.StrategyFreelance, model.Outcome{Success: false})

	r := tr.Rollup(model.StrategyFreelance)
	if !r.Profit24h.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected profit 50, got %s", r.Profit24h)
	}
	if r.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", r.Attempts)
	}
	if got := r.SuccessRate; got < 0.666 || got > 0.667 {
		t.Errorf("expected success rate 2/3, got %v", got)
	}
}

func TestRollup_IncludesPreviousPeriod(t *testing.T) {
	tr := New(time.Hour)
	base := time.Date(2026, 3, 10, 11, 30, 0, 0, time.UTC)

	tr.now = fixedClock(base)
	tr.Record(model.StrategyAffiliate, model.Outcome{Success: true, Value: decimal.NewFromInt(20)})

	tr.now = fixedClock(base.Add(time.Hour))
	tr.Record(model.StrategyAffiliate, model.Outcome{Success: true, Value: decimal.NewFromInt(5)})

	r := tr.Rollup(model.StrategyAffiliate)
	if !r.Profit24h.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected combined profit 25, got %s", r.Profit24h)
	}

	// Two hours on, the first period has aged out of the rollup.
	tr.now = fixedClock(base.Add(2 * time.Hour))
	r = tr.Rollup(model.StrategyAffiliate)
	if !r.Profit24h.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected only recent profit 5, got %s", r.Profit24h)
	}
}

func TestMarkCapital(t *testing.T) {
	tr := New(24 * time.Hour)
	tr.MarkCapital(model.StrategyFreelance, decimal.NewFromInt(2000))
	if got := tr.Capital(model.StrategyFreelance); !got.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected capital 2000, got %s", got)
	}
	if got := tr.Capital(model.StrategyAffiliate); !got.IsZero() {
		t.Errorf("expected zero capital for unmarked strategy, got %s", got)
	}
}

func TestSnapshotTo_AppendsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.json")
	strategies := []model.StrategyKind{model.StrategyFreelance}

	tr := New(24 * time.Hour)
	tr.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	tr.MarkCapital(model.StrategyFreelance, decimal.NewFromInt(500))
	tr.Record(model.StrategyFreelance, model.Outcome{Success: true, Value: decimal.NewFromInt(30)})
	if err := tr.SnapshotTo(path, strategies); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}

	tr.now = fixedClock(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC))
	if err := tr.SnapshotTo(path, strategies); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(snap))
	}
	entry, ok := snap["2026-03-10T12:00:00Z"]
	if !ok {
		t.Fatal("missing first timestamp key")
	}
	s := entry[model.StrategyFreelance]
	if s.Capital != 500 {
		t.Errorf("expected capital 500, got %v", s.Capital)
	}
	if s.Profit24h != 30 {
		t.Errorf("expected profit 30, got %v", s.Profit24h)
	}
}
