package gateway

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"SwarmFund/internal/ledger"
	"SwarmFund/internal/recorder"

	"github.com/shopspring/decimal"
)

func newTestGateway(t *testing.T) (*Gateway, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "wallets.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return New(l, recorder.NewNoopRecorder(), decimal.NewFromInt(25)), l
}

func TestFundsReceived_SignupBonus(t *testing.T) {
	g, l := newTestGateway(t)

	if err := g.FundsReceived("evt-1", "user-1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("funds received: %v", err)
	}
	balance, err := l.Balance("user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// 25 bonus + 100 deposit.
	if !balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("expected balance 125, got %s", balance)
	}
}

func TestFundsReceived_DuplicateEventIgnored(t *testing.T) {
	g, l := newTestGateway(t)

	if err := g.FundsReceived("evt-1", "user-1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := g.FundsReceived("evt-1", "user-1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("duplicate must be acknowledged, got %v", err)
	}

	balance, _ := l.Balance("user-1")
	if !balance.Equal(decimal.NewFromInt(125)) {
		t.Errorf("duplicate event re-applied, balance %s", balance)
	}
	w, _ := l.Wallet("user-1")
	if len(w.Transactions) != 2 {
		t.Errorf("expected bonus + one deposit, got %d transactions", len(w.Transactions))
	}
}

func TestFundsReceived_SecondDepositNoBonus(t *testing.T) {
	g, l := newTestGateway(t)

	if err := g.FundsReceived("evt-1", "user-1", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := g.FundsReceived("evt-2", "user-1", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("second event: %v", err)
	}
	balance, _ := l.Balance("user-1")
	if !balance.Equal(decimal.NewFromInt(175)) {
		t.Errorf("expected 25+100+50=175, got %s", balance)
	}
}

func TestFundsReceived_RejectsBadInput(t *testing.T) {
	g, _ := newTestGateway(t)
	if err := g.FundsReceived("", "user-1", decimal.NewFromInt(10)); err == nil {
		t.Error("expected error for missing event id")
	}
	if err := g.FundsReceived("evt-1", "user-1", decimal.Zero); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestDrainInbox_AppliesAndConsumes(t *testing.T) {
	g, l := newTestGateway(t)
	path := filepath.Join(t.TempDir(), "inbox.json")

	events := []InboxEvent{
		{EventID: "evt-1", UserID: "user-1", Amount: decimal.NewFromInt(100)},
		{EventID: "evt-2", UserID: "user-2", Amount: decimal.NewFromInt(40)},
		{EventID: "evt-1", UserID: "user-1", Amount: decimal.NewFromInt(100)}, // replay
	}
	data, err := json.Marshal(events)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write inbox: %v", err)
	}

	if err := g.drainInbox(path); err != nil {
		t.Fatalf("drain inbox: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected inbox file consumed")
	}

	b1, _ := l.Balance("user-1")
	if !b1.Equal(decimal.NewFromInt(125)) {
		t.Errorf("expected user-1 balance 125, got %s", b1)
	}
	b2, _ := l.Balance("user-2")
	if !b2.Equal(decimal.NewFromInt(65)) {
		t.Errorf("expected user-2 balance 65, got %s", b2)
	}

	// A missing inbox is a quiet no-op.
	if err := g.drainInbox(path); err != nil {
		t.Errorf("missing inbox must not error: %v", err)
	}
}
