package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zala/internal/models"
)

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (
				name, capacity, has_projector, has_speakerphone, has_screen,
				has_whiteboard, is_active, sort_order, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Name,
		room.Capacity,
		room.HasProjector,
		room.HasSpeakerphone,
		room.HasScreen,
		room.HasWhiteboard,
		room.IsActive,
		room.SortOrder,
		now,
		now,
	)
	if err != nil {
		return constraintError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

// UpsertRoom inserts a room or refreshes its attributes by unique name.
// Used for the seed file at startup.
func (db *DB) UpsertRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (
				name, capacity, has_projector, has_speakerphone, has_screen,
				has_whiteboard, is_active, sort_order, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				capacity = excluded.capacity,
				has_projector = excluded.has_projector,
				has_speakerphone = excluded.has_speakerphone,
				has_screen = excluded.has_screen,
				has_whiteboard = excluded.has_whiteboard,
				is_active = excluded.is_active,
				sort_order = excluded.sort_order,
				updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		room.Name,
		room.Capacity,
		room.HasProjector,
		room.HasSpeakerphone,
		room.HasScreen,
		room.HasWhiteboard,
		room.IsActive,
		room.SortOrder,
		now,
		now,
	)
	if err != nil {
		return constraintError(err)
	}
	return nil
}

func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms SET
				name = ?, capacity = ?, has_projector = ?, has_speakerphone = ?,
				has_screen = ?, has_whiteboard = ?, sort_order = ?, updated_at = ?
			WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		room.Name,
		room.Capacity,
		room.HasProjector,
		room.HasSpeakerphone,
		room.HasScreen,
		room.HasWhiteboard,
		room.SortOrder,
		time.Now(),
		room.ID,
	)
	if err != nil {
		return constraintError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (db *DB) DeactivateRoom(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room; its bookings go with it via the FK cascade.
func (db *DB) DeleteRoom(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

const roomColumns = `id, name, capacity, has_projector, has_speakerphone,
	has_screen, has_whiteboard, is_active, sort_order, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.Room, error) {
	var room models.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&room.HasProjector,
		&room.HasSpeakerphone,
		&room.HasScreen,
		&room.HasWhiteboard,
		&room.IsActive,
		&room.SortOrder,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (db *DB) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	row := db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return room, nil
}

func (db *DB) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	row := db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE name = ?`, name)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %q: %w", name, err)
	}
	return room, nil
}

func (db *DB) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return db.queryRooms(ctx, `SELECT `+roomColumns+` FROM rooms WHERE is_active = 1 ORDER BY sort_order, name`)
}

func (db *DB) GetAllRooms(ctx context.Context) ([]*models.Room, error) {
	return db.queryRooms(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY sort_order, name`)
}

func (db *DB) queryRooms(ctx context.Context, query string, args ...any) ([]*models.Room, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
