package oracle

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetPrice_JitterBand(t *testing.T) {
	o := NewSimulatedOracle(0, 0)
	lo := decimal.NewFromFloat(60000 * 0.98)
	hi := decimal.NewFromFloat(60000 * 1.02)
	for i := 0; i < 20; i++ {
		p, err := o.GetPrice("BTC/USD")
		if err != nil {
			t.Fatalf("get price: %v", err)
		}
		if p.LessThan(lo) || p.GreaterThan(hi) {
			t.Errorf("price %s outside ±2%% band", p)
		}
	}
}

func TestGetPrice_UnknownPair(t *testing.T) {
	o := NewSimulatedOracle(0, 0)
	p, err := o.GetPrice("XYZ/USD")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if !p.IsPositive() {
		t.Errorf("expected positive fallback price, got %s", p)
	}
}

func TestGetPrice_AlwaysFailing(t *testing.T) {
	o := NewSimulatedOracle(0, 1)
	if _, err := o.GetPrice("BTC/USD"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExecuteTransfer_Receipt(t *testing.T) {
	o := NewSimulatedOracle(0, 0)
	r, err := o.ExecuteTransfer(TransferRequest{
		FromAccount: "pool",
		ToAccount:   "strategy:freelance",
		Amount:      decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("execute transfer: %v", err)
	}
	if len(r.ID) != 8 {
		t.Errorf("expected 8-char receipt id, got %q", r.ID)
	}
	if !r.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected receipt amount 100, got %s", r.Amount)
	}
}
