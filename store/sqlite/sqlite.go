/*
Package sqlite provides a SQLite-backed implementation of the storage layer.

PURPOSE:
  Persists funding rules, envelopes, and simulation run history using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  rules:           Rule definitions; full config serialized as JSON with
                   queryable columns alongside
  envelopes:       Envelope snapshots (balance, monthly target)
  simulation_runs: History of simulation runs with serialized results

RULE STORAGE:
  The full rule is stored as config JSON (the same wire format the API
  speaks) so the schema never chases engine type changes. Columns like
  enabled/type/trigger exist purely for filtering and indexes; the JSON
  is the source of truth on read.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/funding.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - factory: Serializes rules to/from the stored JSON
  - engine/types.go: Rule and EnvelopeSnapshot definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
)

// Store implements the storage layer using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.RuleFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, factory: factory.NewRuleFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Funding rules (config_json is the source of truth)
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rule_type TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 100,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		config_json TEXT NOT NULL,
		last_executed TEXT,
		execution_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_enabled
		ON rules(enabled);
	CREATE INDEX IF NOT EXISTS idx_rules_trigger
		ON rules(trigger_type);

	-- Execution order (hot path for simulation loads)
	CREATE INDEX IF NOT EXISTS idx_rules_priority_created
		ON rules(priority ASC, created_at ASC);

	-- Envelopes
	CREATE TABLE IF NOT EXISTS envelopes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		monthly_target TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Simulation run history
	CREATE TABLE IF NOT EXISTS simulation_runs (
		id TEXT PRIMARY KEY,
		trigger_type TEXT NOT NULL,
		unassigned_cash TEXT NOT NULL,
		total_planned TEXT NOT NULL,
		rules_executed INTEGER NOT NULL,
		transfer_count INTEGER NOT NULL,
		results_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_simulation_runs_created
		ON simulation_runs(created_at DESC);

	-- Single-row app state (unassigned cash pool)
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RULE STORE
// =============================================================================

// SaveRule inserts or updates a rule.
func (s *Store) SaveRule(ctx context.Context, rule engine.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := s.factory.MarshalRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rules
		(id, name, rule_type, trigger_type, priority, enabled, config_json,
		 last_executed, execution_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rule_type = excluded.rule_type,
			trigger_type = excluded.trigger_type,
			priority = excluded.priority,
			enabled = excluded.enabled,
			config_json = excluded.config_json,
			last_executed = excluded.last_executed,
			execution_count = excluded.execution_count,
			updated_at = excluded.updated_at
	`

	var lastExecuted *string
	if rule.LastExecuted != nil {
		t := rule.LastExecuted.UTC().Format(time.RFC3339)
		lastExecuted = &t
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		string(rule.ID), rule.Name, string(rule.Type), string(rule.Trigger),
		rule.Priority, rule.Enabled, configJSON,
		lastExecuted, rule.ExecutionCount,
		rule.CreatedAt.UTC().Format(time.RFC3339), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(ctx context.Context, id engine.RuleID) (engine.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM rules WHERE id = ?", string(id),
	).Scan(&configJSON)

	if err == sql.ErrNoRows {
		return engine.Rule{}, engine.ErrRuleNotFound
	}
	if err != nil {
		return engine.Rule{}, fmt.Errorf("failed to get rule: %w", err)
	}

	return s.factory.ParseRule(configJSON)
}

// ListRules returns all rules in execution order.
func (s *Store) ListRules(ctx context.Context) ([]engine.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM rules ORDER BY priority ASC, created_at ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []engine.Rule
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		rule, err := s.factory.ParseRule(configJSON)
		if err != nil {
			return nil, fmt.Errorf("stored rule is corrupt: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id engine.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrRuleNotFound
	}
	return nil
}

// MarkRuleExecuted stamps a rule's execution bookkeeping after a run
// commits. The config JSON is rewritten so it stays the source of truth.
func (s *Store) MarkRuleExecuted(ctx context.Context, id engine.RuleID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM rules WHERE id = ?", string(id),
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return engine.ErrRuleNotFound
	}
	if err != nil {
		return err
	}

	rule, err := s.factory.ParseRule(configJSON)
	if err != nil {
		return fmt.Errorf("stored rule is corrupt: %w", err)
	}

	executed := at.UTC()
	rule.LastExecuted = &executed
	rule.ExecutionCount++

	updated, err := s.factory.MarshalRule(rule)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE rules SET config_json = ?, last_executed = ?, execution_count = ?, updated_at = ? WHERE id = ?`,
		updated, executed.Format(time.RFC3339), rule.ExecutionCount,
		time.Now().UTC().Format(time.RFC3339), string(id),
	)
	return err
}

// =============================================================================
// ENVELOPE STORE
// =============================================================================

// SaveEnvelope inserts or updates an envelope.
func (s *Store) SaveEnvelope(ctx context.Context, env engine.EnvelopeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO envelopes (id, name, current_balance, monthly_target, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			current_balance = excluded.current_balance,
			monthly_target = excluded.monthly_target,
			updated_at = excluded.updated_at
	`

	var target *string
	if env.MonthlyTarget != nil {
		t := env.MonthlyTarget.Value.String()
		target = &t
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		string(env.ID), env.Name, env.CurrentBalance.Value.String(), target, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save envelope: %w", err)
	}
	return nil
}

// GetEnvelope retrieves an envelope by ID.
func (s *Store) GetEnvelope(ctx context.Context, id engine.EnvelopeID) (engine.EnvelopeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var env engine.EnvelopeSnapshot
	var envID, balance string
	var target sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, current_balance, monthly_target FROM envelopes WHERE id = ?",
		string(id),
	).Scan(&envID, &env.Name, &balance, &target)

	if err == sql.ErrNoRows {
		return engine.EnvelopeSnapshot{}, engine.ErrEnvelopeNotFound
	}
	if err != nil {
		return engine.EnvelopeSnapshot{}, fmt.Errorf("failed to get envelope: %w", err)
	}

	env.ID = engine.EnvelopeID(envID)
	env.CurrentBalance = parseMoney(balance)
	if target.Valid {
		m := parseMoney(target.String)
		env.MonthlyTarget = &m
	}
	return env, nil
}

// ListEnvelopes returns all envelopes ordered by name.
func (s *Store) ListEnvelopes(ctx context.Context) ([]engine.EnvelopeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, current_balance, monthly_target FROM envelopes ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []engine.EnvelopeSnapshot
	for rows.Next() {
		var env engine.EnvelopeSnapshot
		var envID, balance string
		var target sql.NullString

		if err := rows.Scan(&envID, &env.Name, &balance, &target); err != nil {
			return nil, err
		}
		env.ID = engine.EnvelopeID(envID)
		env.CurrentBalance = parseMoney(balance)
		if target.Valid {
			m := parseMoney(target.String)
			env.MonthlyTarget = &m
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, rows.Err()
}

// DeleteEnvelope removes an envelope.
func (s *Store) DeleteEnvelope(ctx context.Context, id engine.EnvelopeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM envelopes WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrEnvelopeNotFound
	}
	return nil
}

// =============================================================================
// SIMULATION RUN HISTORY
// =============================================================================

// SimulationRun is a stored record of one simulation pass.
type SimulationRun struct {
	ID             string
	Trigger        engine.TriggerType
	UnassignedCash engine.Money
	TotalPlanned   engine.Money
	RulesExecuted  int
	TransferCount  int
	ResultsJSON    string
	CreatedAt      time.Time
}

// SaveSimulationRun records a completed simulation.
func (s *Store) SaveSimulationRun(ctx context.Context, run SimulationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulation_runs
		 (id, trigger_type, unassigned_cash, total_planned, rules_executed, transfer_count, results_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger),
		run.UnassignedCash.Value.String(), run.TotalPlanned.Value.String(),
		run.RulesExecuted, run.TransferCount, run.ResultsJSON,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save simulation run: %w", err)
	}
	return nil
}

// ListSimulationRuns returns the most recent runs, newest first.
func (s *Store) ListSimulationRuns(ctx context.Context, limit int) ([]SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_type, unassigned_cash, total_planned, rules_executed, transfer_count, results_json, created_at
		 FROM simulation_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulation runs: %w", err)
	}
	defer rows.Close()

	var runs []SimulationRun
	for rows.Next() {
		var run SimulationRun
		var trigger, cash, planned, createdAt string
		if err := rows.Scan(&run.ID, &trigger, &cash, &planned,
			&run.RulesExecuted, &run.TransferCount, &run.ResultsJSON, &createdAt); err != nil {
			return nil, err
		}
		run.Trigger = engine.TriggerType(trigger)
		run.UnassignedCash = parseMoney(cash)
		run.TotalPlanned = parseMoney(planned)
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// APP STATE
// =============================================================================

const keyUnassignedCash = "unassigned_cash"

// GetUnassignedCash returns the stored unassigned cash pool; zero when
// never set.
func (s *Store) GetUnassignedCash(ctx context.Context) (engine.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = ?", keyUnassignedCash,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return engine.Zero(), nil
	}
	if err != nil {
		return engine.Zero(), fmt.Errorf("failed to get unassigned cash: %w", err)
	}
	return parseMoney(value), nil
}

// SetUnassignedCash updates the stored unassigned cash pool.
func (s *Store) SetUnassignedCash(ctx context.Context, amount engine.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		keyUnassignedCash, amount.Value.String(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set unassigned cash: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"rules", "envelopes", "simulation_runs", "app_state"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// parseMoney reads a stored decimal string; a corrupt value reads as zero
// rather than failing the whole scan.
func parseMoney(value string) engine.Money {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return engine.Zero()
	}
	return engine.Money{Value: d}
}
