package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read
	// while the swarm writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS task_outcomes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			agent_id  TEXT,
			task_id   TEXT,
			strategy  TEXT,
			method    TEXT,
			success   INTEGER,
			value     REAL,
			error_tag TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_ts ON task_outcomes(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_strategy ON task_outcomes(strategy)`,

		`CREATE TABLE IF NOT EXISTS allocation_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			strategy      TEXT,
			weight_before REAL,
			weight_after  REAL,
			roi           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alloc_ts ON allocation_history(timestamp)`,

		`CREATE TABLE IF NOT EXISTS reinvest_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			strategy   TEXT,
			amount     REAL,
			pool_after REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reinvest_ts ON reinvest_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS gateway_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			event_id  TEXT,
			user_id   TEXT,
			amount    REAL,
			duplicate INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gateway_ts ON gateway_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTaskOutcome(evt *TaskOutcomeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	success := 0
	if evt.Success {
		success = 1
	}
	_, err := r.db.Exec(`INSERT INTO task_outcomes
		(timestamp, agent_id, task_id, strategy, method, success, value, error_tag)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.AgentID, evt.TaskID, evt.Strategy,
		evt.Method, success, evt.Value, evt.ErrorTag,
	)
	return err
}

func (r *SQLiteRecorder) RecordAllocation(evt *AllocationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO allocation_history
		(timestamp, strategy, weight_before, weight_after, roi)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Strategy,
		evt.WeightBefore, evt.WeightAfter, evt.ROI,
	)
	return err
}

func (r *SQLiteRecorder) RecordReinvest(evt *ReinvestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO reinvest_events
		(timestamp, strategy, amount, pool_after)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Strategy, evt.Amount, evt.PoolAfter,
	)
	return err
}

func (r *SQLiteRecorder) RecordGateway(evt *GatewayEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	duplicate := 0
	if evt.Duplicate {
		duplicate = 1
	}
	_, err := r.db.Exec(`INSERT INTO gateway_events
		(timestamp, event_id, user_id, amount, duplicate)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.EventID, evt.UserID, evt.Amount, duplicate,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
