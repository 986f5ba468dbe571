package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"SwarmFund/internal/model"

	"github.com/shopspring/decimal"
)

func init() {
	// The persisted ledger shape uses plain JSON numbers for amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// Store persists the wallet table as a single JSON object keyed by wallet
// id. Writes rewrite the whole file through a temp-file rename so a crash
// never leaves a partial ledger on disk.
type Store struct {
	mu       sync.Mutex
	filePath string
	wallets  map[string]model.Wallet
}

// OpenStore loads the ledger file, returning an empty store when the file
// does not exist yet.
func OpenStore(filePath string) (*Store, error) {
	s := &Store{filePath: filePath, wallets: make(map[string]model.Wallet)}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.wallets); err != nil {
		return nil, fmt.Errorf("parse ledger file: %w", err)
	}
	return s, nil
}

// Update replaces one wallet's persisted state and flushes the file.
func (s *Store) Update(id string, w model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[id] = w
	return s.flush()
}

// All returns a copy of every persisted wallet.
func (s *Store) All() map[string]model.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Wallet, len(s.wallets))
	for id, w := range s.wallets {
		out[id] = w
	}
	return out
}

func (s *Store) flush() error {
	dir := filepath.Dir(s.filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.wallets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	tmp := s.filePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	// Data must be on disk before the rename makes it the live ledger.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	// Sync the directory so the rename itself survives power loss.
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
