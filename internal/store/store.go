package store

import (
	"database/sql"
	"errors"

	"github.com/jobtrail-io/jobtrail/internal/database"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist or, for guarded
	// updates, when the guard predicate no longer matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an insert hits the unique email constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store handles all database operations
type Store struct {
	db     *sql.DB
	dbType string
}

// New creates a new store instance
func New(db *sql.DB, dbType string) *Store {
	return &Store{db: db, dbType: dbType}
}

// DB exposes the underlying handle for tests and wiring.
func (s *Store) DB() *sql.DB {
	return s.db
}

// q rebinds placeholders for the active driver.
func (s *Store) q(query string) string {
	return database.Rebind(s.dbType, query)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
