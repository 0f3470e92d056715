package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobtrail-io/jobtrail/internal/models"
)

const sessionColumns = `id, user_id, refresh_hash, csrf_hash, expires_at, revoked_at, last_used_at, created_at`

func scanSession(row *sql.Row) (*models.RefreshSession, error) {
	sess := &models.RefreshSession{}
	var revokedAt, lastUsedAt sql.NullTime
	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.RefreshHash,
		&sess.CSRFHash,
		&sess.ExpiresAt,
		&revokedAt,
		&lastUsedAt,
		&sess.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		sess.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		sess.LastUsedAt = &lastUsedAt.Time
	}
	return sess, nil
}

// CreateSession inserts a new refresh session row holding secret hashes only.
func (s *Store) CreateSession(ctx context.Context, sess *models.RefreshSession) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO refresh_sessions (id, user_id, refresh_hash, csrf_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		sess.ID, sess.UserID, sess.RefreshHash, sess.CSRFHash, sess.ExpiresAt, sess.CreatedAt,
	)
	return err
}

// GetActiveSessionByRefreshHash looks up a live session by the hash of a
// presented refresh secret. Revoked and expired rows are filtered out here,
// so a hit is always usable.
func (s *Store) GetActiveSessionByRefreshHash(ctx context.Context, refreshHash string, now time.Time) (*models.RefreshSession, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+sessionColumns+` FROM refresh_sessions
		WHERE refresh_hash = ? AND revoked_at IS NULL AND expires_at > ?`),
		refreshHash, now)
	return scanSession(row)
}

// RotateSessionSecrets swaps both secret hashes in place, guarded by the old
// refresh hash. Of two concurrent refreshes presenting the same secret,
// exactly one observes the pre-rotation hash; the loser sees zero rows and
// gets ErrNotFound.
func (s *Store) RotateSessionSecrets(ctx context.Context, oldRefreshHash, newRefreshHash, newCSRFHash string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refresh_sessions
		SET refresh_hash = ?, csrf_hash = ?, last_used_at = ?
		WHERE refresh_hash = ? AND revoked_at IS NULL AND expires_at > ?`),
		newRefreshHash, newCSRFHash, now, oldRefreshHash, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateSessionCSRF replaces only the CSRF half. Used by the CSRF bootstrap,
// which can never re-derive a previously issued value from its hash.
func (s *Store) RotateSessionCSRF(ctx context.Context, refreshHash, newCSRFHash string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refresh_sessions
		SET csrf_hash = ?, last_used_at = ?
		WHERE refresh_hash = ? AND revoked_at IS NULL AND expires_at > ?`),
		newCSRFHash, now, refreshHash, now)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RevokeSession logically revokes a session. Rows are kept, not deleted, and
// revoking an already-revoked session is a no-op.
func (s *Store) RevokeSession(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refresh_sessions
		SET revoked_at = ?, last_used_at = ?
		WHERE id = ? AND revoked_at IS NULL`),
		now, now, id)
	return err
}

// RevokeUserSessions revokes every active session for an account.
func (s *Store) RevokeUserSessions(ctx context.Context, userID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE refresh_sessions
		SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`),
		now, userID)
	return err
}

// GetSessionByID retrieves a session row regardless of liveness, for audit
// style reads in tests and admin tooling.
func (s *Store) GetSessionByID(ctx context.Context, id string) (*models.RefreshSession, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+sessionColumns+` FROM refresh_sessions WHERE id = ?`), id)
	return scanSession(row)
}
