package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobtrail-io/jobtrail/internal/models"
)

const proRequestColumns = `id, user_id, status, requested_at, decided_at, note, decision_note, cooldown_until`

func scanProRequest(row *sql.Row) (*models.ProAccessRequest, error) {
	req := &models.ProAccessRequest{}
	var decidedAt, cooldownUntil sql.NullTime
	var note, decisionNote sql.NullString
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Status,
		&req.RequestedAt,
		&decidedAt,
		&note,
		&decisionNote,
		&cooldownUntil,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	if cooldownUntil.Valid {
		req.CooldownUntil = &cooldownUntil.Time
	}
	if note.Valid {
		req.Note = &note.String
	}
	if decisionNote.Valid {
		req.DecisionNote = &decisionNote.String
	}
	return req, nil
}

// CreateProRequest inserts a new PENDING request row.
func (s *Store) CreateProRequest(ctx context.Context, req *models.ProAccessRequest) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO pro_access_requests (id, user_id, status, requested_at, note)
		VALUES (?, ?, ?, ?, ?)`),
		req.ID, req.UserID, req.Status, req.RequestedAt, req.Note,
	)
	return err
}

// GetProRequest retrieves a request by ID
func (s *Store) GetProRequest(ctx context.Context, id string) (*models.ProAccessRequest, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+proRequestColumns+` FROM pro_access_requests WHERE id = ?`), id)
	return scanProRequest(row)
}

// GetLatestProRequestForUser returns the most recent request row for an
// account, or ErrNotFound when the account has never asked.
func (s *Store) GetLatestProRequestForUser(ctx context.Context, userID string) (*models.ProAccessRequest, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+proRequestColumns+` FROM pro_access_requests
		WHERE user_id = ?
		ORDER BY requested_at DESC, id DESC
		LIMIT 1`), userID)
	return scanProRequest(row)
}

// ExpireProRequest lazily transitions a stale PENDING request to EXPIRED.
// Guarded by status so a concurrent decision can't be overwritten.
func (s *Store) ExpireProRequest(ctx context.Context, id string, decidedAt time.Time, decisionNote string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE pro_access_requests
		SET status = ?, decided_at = ?, decision_note = ?
		WHERE id = ? AND status = ?`),
		models.ProRequestExpired, decidedAt, decisionNote, id, models.ProRequestPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ApproveProRequest marks the request APPROVED and sets the account's pro
// flag in a single transaction, so a crash can't leave them inconsistent.
func (s *Store) ApproveProRequest(ctx context.Context, requestID, userID string, decidedAt time.Time, decisionNote *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE pro_access_requests
		SET status = ?, decided_at = ?, decision_note = ?
		WHERE id = ? AND status = ?`),
		models.ProRequestApproved, decidedAt, decisionNote, requestID, models.ProRequestPending)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE users SET is_pro = ?, updated_at = ? WHERE id = ?`),
		true, decidedAt, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// DenyProRequest marks the request DENIED with its cooldown in one guarded write.
func (s *Store) DenyProRequest(ctx context.Context, requestID string, decidedAt time.Time, decisionNote *string, cooldownUntil time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE pro_access_requests
		SET status = ?, decided_at = ?, decision_note = ?, cooldown_until = ?
		WHERE id = ? AND status = ?`),
		models.ProRequestDenied, decidedAt, decisionNote, cooldownUntil, requestID, models.ProRequestPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GrantProCredits resets the account's free-usage counter and marks the
// request CREDITS_GRANTED in a single transaction.
func (s *Store) GrantProCredits(ctx context.Context, requestID, userID string, decidedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE pro_access_requests
		SET status = ?, decided_at = ?
		WHERE id = ? AND status = ?`),
		models.ProRequestCreditsGranted, decidedAt, requestID, models.ProRequestPending)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE users SET free_usage_count = 0, updated_at = ? WHERE id = ?`),
		decidedAt, userID); err != nil {
		return err
	}
	return tx.Commit()
}
