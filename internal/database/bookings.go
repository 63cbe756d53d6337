package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zala/internal/models"
)

const bookingColumns = `id, room_id, room_name, user_id, user_name, start_at, end_at,
	status, title, comment, approved_by, approved_at, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var (
		b          models.Booking
		approvedBy sql.NullInt64
		approvedAt sql.NullTime
	)
	err := row.Scan(
		&b.ID,
		&b.RoomID,
		&b.RoomName,
		&b.UserID,
		&b.UserName,
		&b.Start,
		&b.End,
		&b.Status,
		&b.Title,
		&b.Comment,
		&approvedBy,
		&approvedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		b.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		b.ApprovedAt = &t
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return booking, nil
}

// statusArgs expands a status set into SQL placeholders and args.
func statusArgs(statuses []string) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = s
	}
	return strings.Join(placeholders, ", "), args
}

// FindActiveOverlapping returns bookings for the room whose status is in
// statuses and whose half-open interval overlaps [start, end). excludeID
// skips one booking, used when a pending booking is re-checked against
// itself during approval. Pass 0 to exclude nothing.
func (db *DB) FindActiveOverlapping(ctx context.Context, roomID int64, start, end time.Time, excludeID int64, statuses []string) ([]*models.Booking, error) {
	if len(statuses) == 0 {
		statuses = models.ActiveStatuses
	}
	in, args := statusArgs(statuses)

	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE room_id = ? AND status IN (` + in + `)
			AND start_at < ? AND end_at > ? AND id != ?
			ORDER BY start_at`
	queryArgs := append([]any{roomID}, args...)
	queryArgs = append(queryArgs, end.UTC(), start.UTC(), excludeID)

	rows, err := db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func countOverlapping(ctx context.Context, tx *sql.Tx, roomID int64, start, end time.Time, excludeID int64, statuses []string) (int, error) {
	in, args := statusArgs(statuses)
	query := `SELECT COUNT(*) FROM bookings
			WHERE room_id = ? AND status IN (` + in + `)
			AND start_at < ? AND end_at > ? AND id != ?`
	queryArgs := append([]any{roomID}, args...)
	queryArgs = append(queryArgs, end.UTC(), start.UTC(), excludeID)

	var count int
	if err := tx.QueryRowContext(ctx, query, queryArgs...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count overlapping bookings: %w", err)
	}
	return count, nil
}

// CreateBookingLocked inserts a pending booking after re-checking for
// overlap inside the room's critical section. The overlap query and the
// insert run in one transaction under the room mutex, so two concurrent
// proposals for the same room can never both commit overlapping intervals.
func (db *DB) CreateBookingLocked(ctx context.Context, booking *models.Booking, blocking []string) error {
	if len(blocking) == 0 {
		blocking = models.ActiveStatuses
	}

	lock := db.roomLock(booking.RoomID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	count, err := countOverlapping(ctx, tx, booking.RoomID, booking.Start, booking.End, 0, blocking)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTimeConflict
	}

	query := `INSERT INTO bookings (
				room_id, room_name, user_id, user_name, start_at, end_at,
				status, title, comment, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.RoomID,
		booking.RoomName,
		booking.UserID,
		booking.UserName,
		booking.Start.UTC(),
		booking.End.UTC(),
		models.StatusPending,
		booking.Title,
		booking.Comment,
		now,
		now,
		1,
	)
	if err != nil {
		return constraintError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}

	booking.ID = id
	booking.Status = models.StatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// ApproveBookingLocked re-checks the stored interval against other active
// bookings (excluding itself) and flips the booking to approved under the
// version guard, all inside the room's critical section.
func (db *DB) ApproveBookingLocked(ctx context.Context, booking *models.Booking, approverID int64, approvedAt time.Time, blocking []string) error {
	if len(blocking) == 0 {
		blocking = models.ActiveStatuses
	}

	lock := db.roomLock(booking.RoomID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	count, err := countOverlapping(ctx, tx, booking.RoomID, booking.Start, booking.End, booking.ID, blocking)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTimeConflict
	}

	query := `UPDATE bookings
			SET status = ?, approved_by = ?, approved_at = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ? AND status = ?`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		models.StatusApproved,
		approverID,
		approvedAt.UTC(),
		now,
		booking.ID,
		booking.Version,
		models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("approve booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}

	at := approvedAt
	booking.Status = models.StatusApproved
	booking.ApprovedBy = &approverID
	booking.ApprovedAt = &at
	booking.UpdatedAt = now
	booking.Version++
	return nil
}

// UpdateBookingStatusWithVersion moves a booking to a new status under the
// optimistic version guard. approvedBy/approvedAt are stored when non-nil
// (reject stamps the decision maker, cancel does not).
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string, approvedBy *int64, approvedAt *time.Time) error {
	query := `UPDATE bookings
			SET status = ?,
				approved_by = COALESCE(?, approved_by),
				approved_at = COALESCE(?, approved_at),
				version = version + 1,
				updated_at = ?
			WHERE id = ? AND version = ?`

	var at any
	if approvedAt != nil {
		at = approvedAt.UTC()
	}
	result, err := db.ExecContext(ctx, query, status, approvedBy, at, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// GetBookingsByDateRange returns bookings whose interval overlaps the
// half-open window [start, end), across all rooms.
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE start_at < ? AND end_at > ?
			ORDER BY start_at, created_at`
	return db.queryBookings(ctx, query, end.UTC(), start.UTC())
}

// GetRoomBookings returns bookings for one room overlapping [start, end).
func (db *DB) GetRoomBookings(ctx context.Context, roomID int64, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE room_id = ? AND start_at < ? AND end_at > ?
			ORDER BY start_at`
	return db.queryBookings(ctx, query, roomID, end.UTC(), start.UTC())
}

func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	// Two weeks of history plus everything upcoming.
	cutoff := time.Now().AddDate(0, 0, -14).UTC()
	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE user_id = ? AND end_at >= ?
			ORDER BY start_at DESC`
	return db.queryBookings(ctx, query, userID, cutoff)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetDailyBookings groups a window's bookings by local calendar day,
// for exports and the Sheets mirror.
func (db *DB) GetDailyBookings(ctx context.Context, start, end time.Time, loc *time.Location) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		key := b.Start.In(loc).Format("2006-01-02")
		daily[key] = append(daily[key], b)
	}
	return daily, nil
}
