package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Participant sets live in the booking_participants join table.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a SQLite-backed booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateBooking inserts a booking and its participants.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.RoomID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO bookings (id, room_id, title, start_time, end_time, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(ctx, tx, query,
			booking.ID,
			booking.RoomID,
			booking.Title,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.CreatedBy,
			formatTime(booking.CreatedAt),
			nullTime(booking.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.replaceParticipants(ctx, tx, booking.ID, booking.Participants)
	})
}

// UpdateBooking rewrites a booking row and its participant set.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE bookings
			SET title = ?, start_time = ?, end_time = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(ctx, tx, query,
			booking.Title,
			formatTime(booking.Start),
			formatTime(booking.End),
			nullTime(booking.UpdatedAt),
			booking.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM booking_participants WHERE booking_id = ?", booking.ID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.replaceParticipants(ctx, tx, booking.ID, booking.Participants)
	})
}

// GetBooking retrieves a booking with its participants by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, room_id, title, start_time, end_time, created_by, created_at, updated_at
		FROM bookings
		WHERE id = ?
	`

	booking, err := r.scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Booking{}, err
	}

	booking.Participants, err = r.loadParticipants(ctx, booking.ID)
	if err != nil {
		return persistence.Booking{}, err
	}

	return booking, nil
}

// ListBookings returns bookings matching the filter ordered by start time
// ascending, then ID for a stable order between equal starts.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}

	query := "SELECT id, room_id, title, start_time, end_time, created_by, created_at, updated_at FROM bookings"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range bookings {
		bookings[i].Participants, err = r.loadParticipants(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return bookings, nil
}

// DeleteBooking removes a booking; its participants cascade.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *BookingRepository) scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startStr, endStr, createdAtStr string
	var updatedAt sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.Title,
		&startStr,
		&endStr,
		&booking.CreatedBy,
		&createdAtStr,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	if booking.Start, err = parseTime(startStr, "start_time"); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime(endStr, "end_time"); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseNullTime(updatedAt, "updated_at"); err != nil {
		return persistence.Booking{}, err
	}

	return booking, nil
}

func (r *BookingRepository) loadParticipants(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := r.helper.Query(ctx, "SELECT email FROM booking_participants WHERE booking_id = ? ORDER BY email ASC", bookingID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, email)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return participants, nil
}

func (r *BookingRepository) replaceParticipants(ctx context.Context, tx *sql.Tx, bookingID string, participants []string) error {
	seen := make(map[string]struct{}, len(participants))
	for _, email := range participants {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		query := "INSERT INTO booking_participants (booking_id, email) VALUES (?, ?)"
		if _, err := r.helper.ExecTx(ctx, tx, query, bookingID, email); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
