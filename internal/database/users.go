package database

import (
	"context"
	"fmt"
	"time"

	"zala/internal/models"
)

func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, full_name, telegram_id, is_staff, is_blacklisted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(username) DO UPDATE SET
				full_name = excluded.full_name,
				telegram_id = excluded.telegram_id,
				is_staff = excluded.is_staff,
				is_blacklisted = excluded.is_blacklisted,
				updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		user.Username,
		user.FullName,
		user.TelegramID,
		user.IsStaff,
		user.IsBlacklisted,
		now,
		now,
	)
	if err != nil {
		return constraintError(err)
	}

	if user.ID == 0 {
		row := db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, user.Username)
		if err := row.Scan(&user.ID); err != nil {
			return fmt.Errorf("resolve user id: %w", err)
		}
	}
	return nil
}

const userColumns = `id, username, full_name, telegram_id, is_staff, is_blacklisted, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.TelegramID,
		&user.IsStaff,
		&user.IsBlacklisted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return user, nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id %d: %w", telegramID, err)
	}
	return user, nil
}

func (db *DB) GetStaffUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE is_staff = 1 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query staff users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
