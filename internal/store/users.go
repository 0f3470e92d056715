package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobtrail-io/jobtrail/internal/models"
)

const userColumns = `id, email, name, password, is_active, is_admin, is_pro, free_usage_count, email_verified_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var verifiedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Password,
		&user.IsActive,
		&user.IsAdmin,
		&user.IsPro,
		&user.FreeUsageCount,
		&verifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		user.EmailVerifiedAt = &verifiedAt.Time
	}
	return user, nil
}

// CreateUser inserts a new user row. The caller supplies a hashed password.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, email, name, password, is_active, is_admin, is_pro, free_usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.Name, user.Password,
		user.IsActive, user.IsAdmin, user.IsPro, user.FreeUsageCount,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by canonical email, including the password
// hash. This is the single credential-comparison lookup; callers must not
// leak the hash outward.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUser(row)
}

// SetUserActive flips the active flag. Targeted column update so concurrent
// admin decisions never clobber unrelated fields.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`),
		active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkEmailVerified stamps the verification time if not already set.
func (s *Store) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET email_verified_at = ?, updated_at = ? WHERE id = ? AND email_verified_at IS NULL`),
		at, at, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already verified or unknown id; verification links are idempotent,
		// so distinguish only the missing account.
		if _, err := s.GetUserByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// IncrementFreeUsage bumps the free-usage counter for non-pro accounts.
func (s *Store) IncrementFreeUsage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET free_usage_count = free_usage_count + 1, updated_at = ? WHERE id = ? AND is_pro = ?`),
		time.Now().UTC(), id, false)
	return err
}

// DeleteUser irreversibly removes an account. All refresh sessions are
// revoked in the same transaction before the row goes away.
func (s *Store) DeleteUser(ctx context.Context, id string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE refresh_sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`),
		now, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
