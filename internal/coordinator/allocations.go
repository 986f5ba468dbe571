package coordinator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SwarmFund/internal/model"
)

// writeAllocations rewrites the allocation file atomically so a reader
// never observes a partially written plan.
func writeAllocations(path string, records []model.AllocationRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create allocation dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal allocations: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write allocation file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace allocation file: %w", err)
	}
	return nil
}
