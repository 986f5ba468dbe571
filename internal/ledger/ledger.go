package ledger

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownWallet is returned when a debit or balance query names a
	// wallet id that was never created.
	ErrUnknownWallet = errors.New("wallet not found")
	// ErrInsufficientFunds is returned when a debit would drive the
	// balance negative. The balance is left unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNonPositiveAmount is returned for zero or negative mutation amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// Ledger is the single owner of wallet state. Mutations on the same wallet
// are serialized in arrival order; mutations on different wallets do not
// block each other. Every successful mutation is flushed to disk before the
// call returns.
type Ledger struct {
	mu      sync.Mutex
	wallets map[string]*entry
	store   *Store
}

type entry struct {
	mu sync.Mutex
	w  *model.Wallet
}

// Open loads the ledger from filePath, starting empty if the file does not
// exist.
func Open(filePath string) (*Ledger, error) {
	store, err := OpenStore(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	l := &Ledger{wallets: make(map[string]*entry), store: store}
	for id, w := range store.All() {
		wallet := w
		l.wallets[id] = &entry{w: &wallet}
	}
	return l, nil
}

// CreateWallet creates a wallet with the given starting balance. It is
// idempotent: if the wallet already exists it is returned unchanged and no
// transaction is recorded.
func (l *Ledger) CreateWallet(id string, initial decimal.Decimal) (model.Wallet, error) {
	if initial.IsNegative() {
		return model.Wallet{}, ErrNonPositiveAmount
	}

	l.mu.Lock()
	if e, ok := l.wallets[id]; ok {
		l.mu.Unlock()
		e.mu.Lock()
		defer e.mu.Unlock()
		return cloneWallet(e.w), nil
	}
	now := time.Now().UTC()
	e := &entry{w: &model.Wallet{
		Balance:      decimal.Zero,
		Invested:     decimal.Zero,
		PlatformFee:  decimal.Zero,
		Transactions: []model.Transaction{},
		CreatedAt:    now,
		LastActive:   now,
	}}
	e.mu.Lock()
	l.wallets[id] = e
	l.mu.Unlock()
	defer e.mu.Unlock()

	if initial.IsPositive() {
		e.w.Balance = initial
		e.w.Transactions = append(e.w.Transactions, model.Transaction{
			Type:      model.TxDeposit,
			Amount:    initial,
			Timestamp: now,
			Reference: "initial",
		})
	}
	if err := l.persist(id, e); err != nil {
		l.mu.Lock()
		delete(l.wallets, id)
		l.mu.Unlock()
		return model.Wallet{}, err
	}
	return cloneWallet(e.w), nil
}

// Credit adds amount to the wallet's balance, creating the wallet if needed.
// Exactly one transaction of type txType is appended.
func (l *Ledger) Credit(id string, amount decimal.Decimal, txType model.TransactionType, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	e := l.lookupOrCreate(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	before := cloneWallet(e.w)
	e.w.Balance = e.w.Balance.Add(amount)
	if txType == model.TxFee {
		e.w.PlatformFee = e.w.PlatformFee.Add(amount)
	}
	l.append(e, txType, amount, ref)
	if err := l.persist(id, e); err != nil {
		*e.w = before
		return err
	}
	return nil
}

// Debit removes amount from the wallet's balance. It fails with
// ErrUnknownWallet when the wallet does not exist and ErrInsufficientFunds
// when the balance would go negative; in both cases nothing is applied.
func (l *Ledger) Debit(id string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	e, ok := l.lookup(id)
	if !ok {
		return ErrUnknownWallet
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	before := cloneWallet(e.w)
	e.w.Balance = e.w.Balance.Sub(amount)
	l.append(e, model.TxWithdrawal, amount, ref)
	if err := l.persist(id, e); err != nil {
		*e.w = before
		return err
	}
	return nil
}

// Transfer debits from and credits to atomically with respect to each
// wallet. The debit is applied first; if it fails nothing moves. The credit
// side is recorded with creditType so capital reallocation shows up as
// investment rather than a plain deposit.
func (l *Ledger) Transfer(from, to string, amount decimal.Decimal, creditType model.TransactionType, ref string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	fe, ok := l.lookup(from)
	if !ok {
		return ErrUnknownWallet
	}

	fe.mu.Lock()
	if fe.w.Balance.LessThan(amount) {
		fe.mu.Unlock()
		return ErrInsufficientFunds
	}
	beforeFrom := cloneWallet(fe.w)
	fe.w.Balance = fe.w.Balance.Sub(amount)
	l.appendWith(fe, model.TxWithdrawal, amount, ref, to)
	if err := l.persist(from, fe); err != nil {
		*fe.w = beforeFrom
		fe.mu.Unlock()
		return err
	}
	fe.mu.Unlock()

	te := l.lookupOrCreate(to)
	te.mu.Lock()
	beforeTo := cloneWallet(te.w)
	te.w.Balance = te.w.Balance.Add(amount)
	l.appendWith(te, creditType, amount, ref, from)
	if err := l.persist(to, te); err != nil {
		*te.w = beforeTo
		te.mu.Unlock()
		l.refund(from, amount, ref)
		return err
	}
	te.mu.Unlock()
	return nil
}

// refund returns a persisted-but-undeliverable transfer amount to its
// source so funds stay conserved when the credit side cannot be flushed.
func (l *Ledger) refund(id string, amount decimal.Decimal, ref string) {
	e, ok := l.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	before := cloneWallet(e.w)
	e.w.Balance = e.w.Balance.Add(amount)
	l.append(e, model.TxDeposit, amount, ref+"-refund")
	if err := l.persist(id, e); err != nil {
		*e.w = before
		log.Printf("[ERROR] refund %s after failed transfer flush: %v", id, err)
	}
}

// InvestIdle moves fraction of the wallet's balance into its invested pool
// when the balance exceeds floor. It returns the amount moved, zero when the
// balance is at or below the floor.
func (l *Ledger) InvestIdle(id string, fraction float64, floor decimal.Decimal) (decimal.Decimal, error) {
	if fraction <= 0 || fraction > 1 {
		return decimal.Zero, fmt.Errorf("invest fraction %v out of range (0,1]", fraction)
	}
	e, ok := l.lookup(id)
	if !ok {
		return decimal.Zero, ErrUnknownWallet
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.w.Balance.LessThanOrEqual(floor) {
		return decimal.Zero, nil
	}
	amount := e.w.Balance.Mul(decimal.NewFromFloat(fraction)).Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}
	before := cloneWallet(e.w)
	e.w.Balance = e.w.Balance.Sub(amount)
	e.w.Invested = e.w.Invested.Add(amount)
	l.append(e, model.TxInvestment, amount, "idle-sweep")
	if err := l.persist(id, e); err != nil {
		*e.w = before
		return decimal.Zero, err
	}
	return amount, nil
}

// Balance returns the wallet's current balance.
func (l *Ledger) Balance(id string) (decimal.Decimal, error) {
	e, ok := l.lookup(id)
	if !ok {
		return decimal.Zero, ErrUnknownWallet
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.Balance, nil
}

// Wallet returns a copy of the wallet's full state.
func (l *Ledger) Wallet(id string) (model.Wallet, error) {
	e, ok := l.lookup(id)
	if !ok {
		return model.Wallet{}, ErrUnknownWallet
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneWallet(e.w), nil
}

// WalletIDs returns the ids of all known wallets.
func (l *Ledger) WalletIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.wallets))
	for id := range l.wallets {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) lookup(id string) (*entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.wallets[id]
	return e, ok
}

func (l *Ledger) lookupOrCreate(id string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.wallets[id]; ok {
		return e
	}
	now := time.Now().UTC()
	e := &entry{w: &model.Wallet{
		Balance:      decimal.Zero,
		Invested:     decimal.Zero,
		PlatformFee:  decimal.Zero,
		Transactions: []model.Transaction{},
		CreatedAt:    now,
		LastActive:   now,
	}}
	l.wallets[id] = e
	return e
}

// append records one transaction on an already-locked entry.
func (l *Ledger) append(e *entry, txType model.TransactionType, amount decimal.Decimal, ref string) {
	l.appendWith(e, txType, amount, ref, "")
}

func (l *Ledger) appendWith(e *entry, txType model.TransactionType, amount decimal.Decimal, ref, counterparty string) {
	now := time.Now().UTC()
	e.w.Transactions = append(e.w.Transactions, model.Transaction{
		Type:         txType,
		Amount:       amount,
		Timestamp:    now,
		Reference:    ref,
		Counterparty: counterparty,
	})
	e.w.LastActive = now
}

// persist flushes the entry's current state. Called with e.mu held so
// same-wallet mutations reach the store in application order.
func (l *Ledger) persist(id string, e *entry) error {
	return l.store.Update(id, cloneWallet(e.w))
}

func cloneWallet(w *model.Wallet) model.Wallet {
	c := *w
	c.Transactions = make([]model.Transaction, len(w.Transactions))
	copy(c.Transactions, w.Transactions)
	return c
}
