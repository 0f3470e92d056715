package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobtrail-io/jobtrail/internal/models"
)

const applicationColumns = `id, user_id, company, role_title, status, url, notes, created_at, updated_at`

func scanApplication(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Application, error) {
	app := &models.Application{}
	err := scanner.Scan(
		&app.ID,
		&app.UserID,
		&app.Company,
		&app.RoleTitle,
		&app.Status,
		&app.URL,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// CreateApplication inserts an application and bumps the owner's free-usage
// counter (no-op for pro accounts) in the same transaction.
func (s *Store) CreateApplication(ctx context.Context, app *models.Application) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO applications (id, user_id, company, role_title, status, url, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		app.ID, app.UserID, app.Company, app.RoleTitle, app.Status, app.URL, app.Notes,
		app.CreatedAt, app.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE users SET free_usage_count = free_usage_count + 1, updated_at = ? WHERE id = ? AND is_pro = ?`),
		app.CreatedAt, app.UserID, false); err != nil {
		return err
	}
	return tx.Commit()
}

// GetApplication retrieves one application scoped to its owner.
func (s *Store) GetApplication(ctx context.Context, userID, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+applicationColumns+` FROM applications WHERE id = ? AND user_id = ?`), id, userID)
	return scanApplication(row)
}

// ListApplications returns all applications for a user, newest first.
func (s *Store) ListApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+applicationColumns+` FROM applications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateApplication updates the mutable fields of an application.
func (s *Store) UpdateApplication(ctx context.Context, app *models.Application) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE applications
		SET company = ?, role_title = ?, status = ?, url = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		app.Company, app.RoleTitle, app.Status, app.URL, app.Notes, time.Now().UTC(),
		app.ID, app.UserID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteApplication removes an application owned by the user.
func (s *Store) DeleteApplication(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM applications WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
