package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "wallets.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l
}

func TestCredit_NewWallet(t *testing.T) {
	l := openTestLedger(t)

	if err := l.Credit("user-1", decimal.NewFromInt(25), model.TxDeposit, "evt-1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	w, err := l.Wallet("user-1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected balance 25, got %s", w.Balance)
	}
	if len(w.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(w.Transactions))
	}
	if w.Transactions[0].Type != model.TxDeposit {
		t.Errorf("expected deposit transaction, got %s", w.Transactions[0].Type)
	}
}

func TestDebit_InsufficientFunds(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.CreateWallet("user-1", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	err := l.Debit("user-1", decimal.NewFromInt(50), "too-much")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, _ := l.Wallet("user-1")
	if !w.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance changed after failed debit: %s", w.Balance)
	}
	if len(w.Transactions) != 1 {
		t.Errorf("expected only the initial transaction, got %d", len(w.Transactions))
	}
}

func TestDebit_UnknownWallet(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Debit("ghost", decimal.NewFromInt(1), "x"); !errors.Is(err, ErrUnknownWallet) {
		t.Fatalf("expected ErrUnknownWallet, got %v", err)
	}
}

func TestCreateWallet_Idempotent(t *testing.T) {
	l := openTestLedger(t)

	first, err := l.CreateWallet("user-1", decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := l.CreateWallet("user-1", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if !second.Balance.Equal(first.Balance) {
		t.Errorf("re-create changed balance: %s -> %s", first.Balance, second.Balance)
	}
	if len(second.Transactions) != 1 {
		t.Errorf("re-create recorded a transaction: %d", len(second.Transactions))
	}
}

func TestCredit_ZeroAmount(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Credit("user-1", decimal.Zero, model.TxDeposit, "x"); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
}

func TestCredit_FeeAccumulates(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Credit("platform", decimal.NewFromFloat(2.50), model.TxFee, "task-a"); err != nil {
		t.Fatalf("credit fee: %v", err)
	}
	if err := l.Credit("platform", decimal.NewFromFloat(1.25), model.TxFee, "task-b"); err != nil {
		t.Fatalf("credit fee: %v", err)
	}
	w, _ := l.Wallet("platform")
	if !w.PlatformFee.Equal(decimal.NewFromFloat(3.75)) {
		t.Errorf("expected accumulated fee 3.75, got %s", w.PlatformFee)
	}
	if !w.Balance.Equal(decimal.NewFromFloat(3.75)) {
		t.Errorf("expected balance 3.75, got %s", w.Balance)
	}
}

func TestTransfer_MovesFundsWithCounterparty(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.CreateWallet("pool", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("create pool: %v", err)
	}

	if err := l.Transfer("pool", "strategy:freelance", decimal.NewFromInt(200), model.TxInvestment, "initial-allocation"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	pool, _ := l.Wallet("pool")
	if !pool.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected pool balance 800, got %s", pool.Balance)
	}
	dst, _ := l.Wallet("strategy:freelance")
	if !dst.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected destination balance 200, got %s", dst.Balance)
	}
	if dst.Transactions[0].Type != model.TxInvestment {
		t.Errorf("expected investment credit, got %s", dst.Transactions[0].Type)
	}
	if dst.Transactions[0].Counterparty != "pool" {
		t.Errorf("expected counterparty pool, got %q", dst.Transactions[0].Counterparty)
	}
	last := pool.Transactions[len(pool.Transactions)-1]
	if last.Type != model.TxWithdrawal || last.Counterparty != "strategy:freelance" {
		t.Errorf("unexpected debit transaction: %+v", last)
	}
}

func TestTransfer_InsufficientFundsMovesNothing(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.CreateWallet("pool", decimal.NewFromInt(5)); err != nil {
		t.Fatalf("create pool: %v", err)
	}

	err := l.Transfer("pool", "dst", decimal.NewFromInt(100), model.TxInvestment, "x")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := l.Wallet("dst"); !errors.Is(err, ErrUnknownWallet) {
		t.Error("destination wallet created by failed transfer")
	}
}

func TestInvestIdle_SweepsAboveFloor(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.CreateWallet("user-1", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("create: %v", err)
	}

	moved, err := l.InvestIdle("user-1", 0.8, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("invest idle: %v", err)
	}
	if !moved.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected 160 moved, got %s", moved)
	}
	w, _ := l.Wallet("user-1")
	if !w.Balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected balance 40, got %s", w.Balance)
	}
	if !w.Invested.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected invested 160, got %s", w.Invested)
	}

	// Below the floor now, a second sweep is a no-op.
	moved, err = l.InvestIdle("user-1", 0.8, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if !moved.IsZero() {
		t.Errorf("expected zero moved below floor, got %s", moved)
	}
}

func TestLedger_PersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.CreateWallet("user-1", decimal.NewFromInt(25)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := l.Credit("user-1", decimal.NewFromFloat(10.50), model.TxDeposit, "evt-1"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	w, err := reopened.Wallet("user-1")
	if err != nil {
		t.Fatalf("wallet after reopen: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromFloat(35.50)) {
		t.Errorf("expected balance 35.50 after reopen, got %s", w.Balance)
	}
	if len(w.Transactions) != 2 {
		t.Errorf("expected 2 transactions after reopen, got %d", len(w.Transactions))
	}
}

func TestCredit_FlushFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.CreateWallet("user-1", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A directory squatting on the temp path makes every flush fail.
	if err := os.Mkdir(path+".tmp", 0755); err != nil {
		t.Fatalf("block temp path: %v", err)
	}

	if err := l.Credit("user-1", decimal.NewFromInt(5), model.TxDeposit, "evt"); err == nil {
		t.Fatal("expected credit to fail when flush fails")
	}
	if err := l.Debit("user-1", decimal.NewFromInt(5), "evt"); err == nil {
		t.Fatal("expected debit to fail when flush fails")
	}

	w, _ := l.Wallet("user-1")
	if !w.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance changed by unflushed mutation: %s", w.Balance)
	}
	if len(w.Transactions) != 1 {
		t.Errorf("unflushed mutation left a transaction: %d", len(w.Transactions))
	}

	// With the obstruction gone the same mutation goes through.
	if err := os.Remove(path + ".tmp"); err != nil {
		t.Fatalf("unblock temp path: %v", err)
	}
	if err := l.Credit("user-1", decimal.NewFromInt(5), model.TxDeposit, "evt"); err != nil {
		t.Fatalf("credit after unblock: %v", err)
	}
	w, _ = l.Wallet("user-1")
	if !w.Balance.Equal(decimal.NewFromInt(15)) || len(w.Transactions) != 2 {
		t.Errorf("unexpected state after recovery: balance %s, %d transactions", w.Balance, len(w.Transactions))
	}
}

func TestLedger_ConcurrentCredits(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.CreateWallet("user-1", decimal.Zero); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := l.Credit("user-1", decimal.NewFromInt(1), model.TxDeposit, "burst"); err != nil {
					t.Errorf("credit: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	w, _ := l.Wallet("user-1")
	want := decimal.NewFromInt(workers * perWorker)
	if !w.Balance.Equal(want) {
		t.Errorf("expected balance %s, got %s", want, w.Balance)
	}
	if len(w.Transactions) != workers*perWorker {
		t.Errorf("expected %d transactions, got %d", workers*perWorker, len(w.Transactions))
	}
}
