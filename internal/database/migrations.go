package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations for the given driver
func GetMigrations(dbType string) []Migration {
	if dialect(dbType) == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				password VARCHAR(255) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				is_pro BOOLEAN NOT NULL DEFAULT FALSE,
				free_usage_count INTEGER NOT NULL DEFAULT 0,
				email_verified_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create refresh_sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS refresh_sessions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				refresh_hash VARCHAR(64) UNIQUE NOT NULL,
				csrf_hash VARCHAR(64) NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				revoked_at TIMESTAMP WITH TIME ZONE,
				last_used_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Index refresh_sessions by user",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id)`,
		},
		{
			Version:     4,
			Description: "Create pro_access_requests table",
			SQL: `CREATE TABLE IF NOT EXISTS pro_access_requests (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				status VARCHAR(32) NOT NULL,
				requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
				decided_at TIMESTAMP WITH TIME ZONE,
				note TEXT,
				decision_note TEXT,
				cooldown_until TIMESTAMP WITH TIME ZONE
			)`,
		},
		{
			Version:     5,
			Description: "Index pro_access_requests by user and time",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_pro_requests_user ON pro_access_requests(user_id, requested_at DESC)`,
		},
		{
			Version:     6,
			Description: "Create applications table",
			SQL: `CREATE TABLE IF NOT EXISTS applications (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				company VARCHAR(255) NOT NULL,
				role_title VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL,
				url TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
	}
}

func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				password TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT 1,
				is_admin BOOLEAN NOT NULL DEFAULT 0,
				is_pro BOOLEAN NOT NULL DEFAULT 0,
				free_usage_count INTEGER NOT NULL DEFAULT 0,
				email_verified_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     2,
			Description: "Create refresh_sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS refresh_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				refresh_hash TEXT UNIQUE NOT NULL,
				csrf_hash TEXT NOT NULL,
				expires_at TIMESTAMP NOT NULL,
				revoked_at TIMESTAMP,
				last_used_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     3,
			Description: "Index refresh_sessions by user",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id)`,
		},
		{
			Version:     4,
			Description: "Create pro_access_requests table",
			SQL: `CREATE TABLE IF NOT EXISTS pro_access_requests (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				status TEXT NOT NULL,
				requested_at TIMESTAMP NOT NULL,
				decided_at TIMESTAMP,
				note TEXT,
				decision_note TEXT,
				cooldown_until TIMESTAMP
			)`,
		},
		{
			Version:     5,
			Description: "Index pro_access_requests by user and time",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_pro_requests_user ON pro_access_requests(user_id, requested_at DESC)`,
		},
		{
			Version:     6,
			Description: "Create applications table",
			SQL: `CREATE TABLE IF NOT EXISTS applications (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				company TEXT NOT NULL,
				role_title TEXT NOT NULL,
				status TEXT NOT NULL,
				url TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	}
}

// RunMigrations applies all pending migrations in version order
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range GetMigrations(dbType) {
		if applied[m.Version] {
			continue
		}
		log.Printf("Applying migration %d: %s", m.Version, m.Description)
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec(Rebind(dbType, "INSERT INTO schema_migrations (version) VALUES (?)"), m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d bookkeeping failed: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
