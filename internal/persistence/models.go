package persistence

import "time"

// User represents a registered account. Email is the sole identity key and
// is stored lower-cased.
type User struct {
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable room with its membership map. Members maps
// normalized email to a role string ("Admin" or "User"; legacy rows may
// carry "Creator").
type Room struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	Members     map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking represents a reserved time interval on a room. UpdatedAt is nil
// until the booking is first edited.
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

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
