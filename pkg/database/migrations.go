package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies all pending schema migrations. Migrations ship
// compiled into the binary so a deployment never depends on a
// migrations directory being present on disk.
func (m *Migrator) RunMigrations() error {
	m.logger.Info("Starting database migrations")

	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			m.logger.Debug("Skipping applied migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations completed successfully")
	return nil
}

// applyMigration applies a single migration within a transaction
func (m *Migrator) applyMigration(migration Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		return nil
	})
}

// migrations is the ordered schema history. Append only; never edit an
// applied migration.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS travel_requests (
				id TEXT PRIMARY KEY,
				request_type TEXT NOT NULL,
				request_number TEXT NOT NULL UNIQUE,
				requester_id TEXT NOT NULL,
				requester_is_head BOOLEAN NOT NULL DEFAULT 0,
				department_id TEXT NOT NULL,
				submitted_by TEXT NOT NULL,
				is_representative BOOLEAN NOT NULL DEFAULT 0,
				head_included BOOLEAN NOT NULL DEFAULT 0,
				requires_budget BOOLEAN NOT NULL DEFAULT 0,
				total_budget TEXT NOT NULL DEFAULT '0',
				budget_version INTEGER NOT NULL DEFAULT 1,
				budget_modified_at DATETIME,
				needs_vehicle BOOLEAN NOT NULL DEFAULT 0,
				is_international BOOLEAN NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				active_role TEXT NOT NULL DEFAULT '',
				exec_level TEXT NOT NULL DEFAULT '',
				parent_routing TEXT NOT NULL DEFAULT '',
				hr_budget_ack_required BOOLEAN NOT NULL DEFAULT 0,
				hr_budget_ack_at DATETIME,
				final_approved_at DATETIME,
				rejected_at DATETIME,
				doc TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_travel_requests_status ON travel_requests(status);
			CREATE INDEX IF NOT EXISTS idx_travel_requests_requester ON travel_requests(requester_id);

			CREATE TABLE IF NOT EXISTS request_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				request_id TEXT NOT NULL,
				actor_user_id TEXT NOT NULL,
				action TEXT NOT NULL,
				previous_status TEXT NOT NULL,
				new_status TEXT NOT NULL,
				comments TEXT NOT NULL DEFAULT '',
				metadata TEXT NOT NULL DEFAULT '{}',
				timestamp DATETIME NOT NULL,
				FOREIGN KEY (request_id) REFERENCES travel_requests(id)
			);
			CREATE INDEX IF NOT EXISTS idx_request_history_request ON request_history(request_id);

			CREATE TABLE IF NOT EXISTS notification_intents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				request_id TEXT NOT NULL,
				target_role TEXT NOT NULL,
				target_user TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL,
				action_link TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				sent_at DATETIME,
				read_at DATETIME,
				FOREIGN KEY (request_id) REFERENCES travel_requests(id)
			);
			CREATE INDEX IF NOT EXISTS idx_notification_intents_role ON notification_intents(target_role, status);

			CREATE TABLE IF NOT EXISTS departments (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				parent_department_id TEXT,
				head_user_id TEXT NOT NULL,
				remaining_budget TEXT NOT NULL DEFAULT '0'
			);

			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				position TEXT NOT NULL DEFAULT 'faculty',
				is_head BOOLEAN NOT NULL DEFAULT 0,
				is_admin BOOLEAN NOT NULL DEFAULT 0,
				is_comptroller BOOLEAN NOT NULL DEFAULT 0,
				is_hr BOOLEAN NOT NULL DEFAULT 0,
				is_exec BOOLEAN NOT NULL DEFAULT 0,
				exec_type TEXT
			);

			CREATE TABLE IF NOT EXISTS vehicle_quota_reservations (
				request_id TEXT PRIMARY KEY,
				day TEXT NOT NULL,
				reserved_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_vehicle_quota_day ON vehicle_quota_reservations(day);
		`,
	},
}
