package application

import (
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/access"
)

// Principal represents the authenticated user invoking a service method.
// Email is normalized (trimmed, lower-cased) and is the system's sole
// identity key.
type Principal struct {
	Email       string
	DisplayName string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Description string
}

// Room represents a persisted room with its membership map.
type Room struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	Members     map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccessView converts the room into the snapshot shape consumed by the
// access package predicates.
func (r Room) AccessView() access.Room {
	return access.Room{CreatedBy: r.CreatedBy, Members: r.Members}
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update an existing room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// MemberParams identifies a member within a room for add/remove operations.
type MemberParams struct {
	Principal Principal
	RoomID    string
	Email     string
}

// SetMemberRoleParams wraps the data required to change a member's role.
type SetMemberRoleParams struct {
	Principal Principal
	RoomID    string
	Email     string
	Role      access.Role
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	Title string
	Start time.Time
	End   time.Time
}

// Booking represents a reserved time interval on a room. UpdatedAt stays
// nil until the booking is first edited.
type Booking struct {
	ID           string
	RoomID       string
	Title        string
	Start        time.Time
	End          time.Time
	CreatedBy    string
	Participants []string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	RoomID    string
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to update an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	RoomID    string
	BookingID string
	Input     BookingInput
}

// User represents a registered account exposed by the application services.
type User struct {
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication.
type AuthenticateResult struct {
	User    User
	Session Session
}
