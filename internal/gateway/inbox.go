package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// InboxEvent is one incoming funds notification as dropped into the inbox
// file by the payment provider integration.
type InboxEvent struct {
	EventID string          `json:"eventId"`
	UserID  string          `json:"userId"`
	Amount  decimal.Decimal `json:"amount"`
}

// WatchInbox polls a drop file for funds events until the context is
// cancelled. Each poll consumes the whole file: events are applied in
// order and the file is removed afterwards, so a provider replaying the
// same file relies on event-id deduplication rather than file state.
func (g *Gateway) WatchInbox(ctx context.Context, path string, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.drainInbox(path); err != nil {
				log.Printf("[ERROR] drain funds inbox: %v", err)
			}
		}
	}
}

func (g *Gateway) drainInbox(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read inbox: %w", err)
	}

	var events []InboxEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("parse inbox: %w", err)
	}

	applied := 0
	for _, evt := range events {
		if err := g.FundsReceived(evt.EventID, evt.UserID, evt.Amount); err != nil {
			log.Printf("[ERROR] apply funds event %s: %v", evt.EventID, err)
			continue
		}
		applied++
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("consume inbox: %w", err)
	}
	if applied > 0 {
		log.Printf("[INFO] applied %d funds events from inbox", applied)
	}
	return nil
}
