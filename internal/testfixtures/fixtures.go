// Package testfixtures provides deterministic builders and fakes shared by
// tests across the module.
package testfixtures

import (
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/application"
)

// BaseTime is the reference instant fixtures default to.
var BaseTime = time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC)

// RoomOption customizes a room fixture.
type RoomOption func(*application.Room)

// NewRoom builds a room owned by creator with the creator as sole Admin
// member.
func NewRoom(id, creator string, opts ...RoomOption) application.Room {
	room := application.Room{
		ID:        id,
		Name:      "Room " + id,
		CreatedBy: creator,
		Members:   map[string]string{creator: "Admin"},
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomName overrides the room name.
func WithRoomName(name string) RoomOption {
	return func(room *application.Room) { room.Name = name }
}

// WithRoomDescription sets the room description.
func WithRoomDescription(description string) RoomOption {
	return func(room *application.Room) { room.Description = description }
}

// WithMember adds or replaces a membership entry.
func WithMember(email, role string) RoomOption {
	return func(room *application.Room) {
		if room.Members == nil {
			room.Members = make(map[string]string)
		}
		room.Members[email] = role
	}
}

// BookingOption customizes a booking fixture.
type BookingOption func(*application.Booking)

// NewBooking builds a booking in roomID spanning [start, end) created by
// creator.
func NewBooking(id, roomID, creator string, start, end time.Time, opts ...BookingOption) application.Booking {
	booking := application.Booking{
		ID:           id,
		RoomID:       roomID,
		Title:        "Booking " + id,
		Start:        start,
		End:          end,
		CreatedBy:    creator,
		Participants: []string{creator},
		CreatedAt:    BaseTime,
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

// WithBookingTitle overrides the booking title.
func WithBookingTitle(title string) BookingOption {
	return func(booking *application.Booking) { booking.Title = title }
}

// NewUser builds an account fixture with a placeholder password hash.
func NewUser(email, displayName string) application.UserCredentials {
	return application.UserCredentials{
		User: application.User{
			Email:       email,
			DisplayName: displayName,
			CreatedAt:   BaseTime,
			UpdatedAt:   BaseTime,
		},
		PasswordHash: "fixture-hash",
	}
}

// NewSession builds a session valid for 24 hours from BaseTime.
func NewSession(id, email, token string) application.Session {
	return application.Session{
		ID:        id,
		Email:     email,
		Token:     token,
		ExpiresAt: BaseTime.Add(24 * time.Hour),
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}
