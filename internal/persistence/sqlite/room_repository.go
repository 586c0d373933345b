package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Oleksandr1212/test-day-second/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite. The
// membership map lives in the room_members join table and is written
// atomically with the room row.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a SQLite-backed room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a room together with its membership entries.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO rooms (id, name, description, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(ctx, tx, query,
			room.ID,
			room.Name,
			nullString(room.Description),
			room.CreatedBy,
			formatTime(room.CreatedAt),
			formatTime(room.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.replaceMembers(ctx, tx, room.ID, room.Members)
	})
}

// UpdateRoom rewrites the room row and its full membership map.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE rooms
			SET name = ?, description = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(ctx, tx, query,
			room.Name,
			nullString(room.Description),
			formatTime(room.UpdatedAt),
			room.ID,
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

		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM room_members WHERE room_id = ?", room.ID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.replaceMembers(ctx, tx, room.ID, room.Members)
	})
}

// GetRoom retrieves a room and its membership map by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, description, created_by, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`

	room, err := r.scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Room{}, err
	}

	room.Members, err = r.loadMembers(ctx, room.ID)
	if err != nil {
		return persistence.Room{}, err
	}

	return room, nil
}

// ListRooms returns all rooms ordered by name then ID, members included.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `
		SELECT id, name, description, created_by, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := r.scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range rooms {
		rooms[i].Members, err = r.loadMembers(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

// DeleteRoom removes a room. Members, bookings, and booking participants
// follow via ON DELETE CASCADE.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM rooms WHERE id = ?", id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RoomRepository) scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var description sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Name,
		&description,
		&room.CreatedBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	if description.Valid {
		room.Description = description.String
	}
	if room.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Room{}, err
	}

	return room, nil
}

func (r *RoomRepository) loadMembers(ctx context.Context, roomID string) (map[string]string, error) {
	rows, err := r.helper.Query(ctx, "SELECT email, role FROM room_members WHERE room_id = ?", roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	members := make(map[string]string)
	for rows.Next() {
		var email, role string
		if err := rows.Scan(&email, &role); err != nil {
			return nil, r.mapper.MapError(err)
		}
		members[email] = role
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return members, nil
}

func (r *RoomRepository) replaceMembers(ctx context.Context, tx *sql.Tx, roomID string, members map[string]string) error {
	for email, role := range members {
		query := "INSERT INTO room_members (room_id, email, role) VALUES (?, ?, ?)"
		if _, err := r.helper.ExecTx(ctx, tx, query, roomID, email, role); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
