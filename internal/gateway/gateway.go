package gateway

import (
	"fmt"
	"log"
	"sync"

	"SwarmFund/internal/ledger"
	"SwarmFund/internal/model"
	"SwarmFund/internal/recorder"

	"github.com/shopspring/decimal"
)

// Gateway is the boundary for incoming payment events. Its only obligation
// to the core is an idempotent ledger credit per event id; transport and
// provider bindings live outside.
type Gateway struct {
	mu          sync.Mutex
	seen        map[string]struct{}
	ledger      *ledger.Ledger
	rec         recorder.Recorder
	signupBonus decimal.Decimal
}

// New creates a gateway crediting the given ledger. New user wallets are
// seeded with signupBonus on first contact.
func New(l *ledger.Ledger, rec recorder.Recorder, signupBonus decimal.Decimal) *Gateway {
	return &Gateway{
		seen:        make(map[string]struct{}),
		ledger:      l,
		rec:         rec,
		signupBonus: signupBonus,
	}
}

// FundsReceived applies one funds event to the ledger. Events are
// deduplicated by eventID: a replayed event is acknowledged without a
// second credit.
func (g *Gateway) FundsReceived(eventID, userID string, amount decimal.Decimal) error {
	if eventID == "" {
		return fmt.Errorf("funds event missing id")
	}
	if !amount.IsPositive() {
		return ledger.ErrNonPositiveAmount
	}

	g.mu.Lock()
	if _, dup := g.seen[eventID]; dup {
		g.mu.Unlock()
		log.Printf("[WARN] duplicate funds event %s for %s ignored", eventID, userID)
		g.record(eventID, userID, amount, true)
		return nil
	}
	g.seen[eventID] = struct{}{}
	g.mu.Unlock()

	if _, err := g.ledger.CreateWallet(userID, g.signupBonus); err != nil {
		return fmt.Errorf("create wallet for %s: %w", userID, err)
	}
	if err := g.ledger.Credit(userID, amount, model.TxDeposit, eventID); err != nil {
		// Allow a later replay to retry the credit.
		g.mu.Lock()
		delete(g.seen, eventID)
		g.mu.Unlock()
		return fmt.Errorf("credit %s: %w", userID, err)
	}
	g.record(eventID, userID, amount, false)
	return nil
}

func (g *Gateway) record(eventID, userID string, amount decimal.Decimal, dup bool) {
	if err := g.rec.RecordGateway(&recorder.GatewayEvent{
		EventID:   eventID,
		UserID:    userID,
		Amount:    amount.InexactFloat64(),
		Duplicate: dup,
	}); err != nil {
		log.Printf("[ERROR] record gateway event: %v", err)
	}
}
