package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SwarmFund/internal/model"
)

// Snapshot is the on-disk performance history: ISO-8601 timestamp keys
// mapping to per-strategy metrics.
type Snapshot map[string]map[model.StrategyKind]model.StrategySnapshot

// SnapshotTo appends the current per-strategy metrics to the snapshot file
// at path, rewriting it atomically. Existing history in the file is kept.
func (t *Tracker) SnapshotTo(path string, strategies []model.StrategyKind) error {
	snap, err := loadSnapshot(path)
	if err != nil {
		return err
	}

	entry := make(map[model.StrategyKind]model.StrategySnapshot, len(strategies))
	for _, s := range strategies {
		r := t.Rollup(s)
		entry[s] = model.StrategySnapshot{
			Capital:         t.Capital(s).InexactFloat64(),
			Profit24h:       r.Profit24h.InexactFloat64(),
			ActivePositions: r.ActivePositions,
			SuccessRate:     r.SuccessRate,
		}
	}
	snap[t.now().UTC().Format(time.RFC3339)] = entry

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func loadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}
	return snap, nil
}
