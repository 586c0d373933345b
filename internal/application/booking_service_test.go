package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/application"
	"github.com/Oleksandr1212/test-day-second/internal/persistence"
	"github.com/Oleksandr1212/test-day-second/internal/testfixtures"
)

type stubRoomDirectory struct {
	rooms map[string]application.Room
	err   error
}

func (s *stubRoomDirectory) GetRoom(_ context.Context, id string) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	room, ok := s.rooms[id]
	if !ok {
		return application.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

type stubBookingRepository struct {
	bookings  map[string]application.Booking
	createErr error
	updateErr error
	deleteErr error
	listErr   error
}

func newStubBookingRepository(bookings ...application.Booking) *stubBookingRepository {
	repo := &stubBookingRepository{bookings: make(map[string]application.Booking)}
	for _, booking := range bookings {
		repo.bookings[booking.ID] = booking
	}
	return repo
}

func (s *stubBookingRepository) CreateBooking(_ context.Context, booking application.Booking) (application.Booking, error) {
	if s.createErr != nil {
		return application.Booking{}, s.createErr
	}
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *stubBookingRepository) GetBooking(_ context.Context, id string) (application.Booking, error) {
	booking, ok := s.bookings[id]
	if !ok {
		return application.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (s *stubBookingRepository) UpdateBooking(_ context.Context, booking application.Booking) (application.Booking, error) {
	if s.updateErr != nil {
		return application.Booking{}, s.updateErr
	}
	if _, ok := s.bookings[booking.ID]; !ok {
		return application.Booking{}, persistence.ErrNotFound
	}
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *stubBookingRepository) DeleteBooking(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *stubBookingRepository) ListBookings(_ context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var result []application.Booking
	for _, booking := range s.bookings {
		if booking.RoomID != filter.RoomID {
			continue
		}
		if filter.EndsAfter != nil && !booking.End.After(*filter.EndsAfter) {
			continue
		}
		result = append(result, booking)
	}
	return result, nil
}

func newBookingService(t *testing.T, rooms *stubRoomDirectory, bookings *stubBookingRepository) (*application.BookingService, *testfixtures.Clock) {
	t.Helper()
	clock := testfixtures.NewClock(testfixtures.BaseTime)
	ids := testfixtures.NewIDGenerator("booking")
	svc := application.NewBookingService(bookings, rooms, nil, ids.Next, clock.Now)
	return svc, clock
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 18, hour, minute, 0, 0, time.UTC)
}

func TestCreateBookingRequiresAdmin(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com",
			testfixtures.WithMember("carol@example.com", "User")),
	}}
	repo := newStubBookingRepository()
	svc, _ := newBookingService(t, rooms, repo)

	for _, actor := range []string{"bob@example.com", "carol@example.com"} {
		_, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
			Principal: application.Principal{Email: actor},
			RoomID:    "room-1",
			Input:     application.BookingInput{Title: "Standup", Start: at(10, 0), End: at(11, 0)},
		})
		if !errors.Is(err, application.ErrForbidden) {
			t.Fatalf("CreateBooking by %s: got %v, want ErrForbidden", actor, err)
		}
	}
	if len(repo.bookings) != 0 {
		t.Fatalf("booking persisted despite forbidden actor")
	}
}

func TestCreateBookingSucceedsForAdminMember(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com",
			testfixtures.WithMember("bob@example.com", "Admin")),
	}}
	repo := newStubBookingRepository()
	svc, _ := newBookingService(t, rooms, repo)

	booking, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "Bob@Example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "  Standup  ", Start: at(10, 0), End: at(11, 0)},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.ID != "booking-1" {
		t.Errorf("ID = %q, want booking-1", booking.ID)
	}
	if booking.Title != "Standup" {
		t.Errorf("Title = %q, want trimmed", booking.Title)
	}
	if booking.CreatedBy != "bob@example.com" {
		t.Errorf("CreatedBy = %q, want normalized email", booking.CreatedBy)
	}
	if len(booking.Participants) != 1 || booking.Participants[0] != "bob@example.com" {
		t.Errorf("Participants = %v, want just the creator", booking.Participants)
	}
	if booking.UpdatedAt != nil {
		t.Errorf("UpdatedAt = %v, want nil on creation", booking.UpdatedAt)
	}
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("existing", "room-1", "alice@example.com", at(10, 0), at(11, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"starts inside", at(10, 30), at(11, 30)},
		{"ends inside", at(9, 30), at(10, 30)},
		{"contains", at(9, 0), at(12, 0)},
		{"contained", at(10, 15), at(10, 45)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
				Principal: application.Principal{Email: "alice@example.com"},
				RoomID:    "room-1",
				Input:     application.BookingInput{Title: "Clash", Start: tc.start, End: tc.end},
			})
			if !errors.Is(err, application.ErrConflict) {
				t.Fatalf("got %v, want ErrConflict", err)
			}
		})
	}
}

func TestCreateBookingAllowsTouchingIntervals(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("existing", "room-1", "alice@example.com", at(10, 0), at(11, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	if _, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Right after", Start: at(11, 0), End: at(12, 0)},
	}); err != nil {
		t.Fatalf("booking starting exactly at previous end: %v", err)
	}
	if _, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Right before", Start: at(9, 0), End: at(10, 0)},
	}); err != nil {
		t.Fatalf("booking ending exactly at next start: %v", err)
	}
}

func TestCreateBookingValidatesInterval(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	svc, _ := newBookingService(t, rooms, newStubBookingRepository())

	_, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Backwards", Start: at(11, 0), End: at(10, 0)},
	})
	if !errors.Is(err, application.ErrInvalidInterval) {
		t.Fatalf("end before start: got %v, want ErrInvalidInterval", err)
	}

	_, err = svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Yesterday", Start: at(8, 0), End: at(8, 30)},
	})
	if !errors.Is(err, application.ErrInPast) {
		t.Fatalf("start before now: got %v, want ErrInPast", err)
	}

	_, err = svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: ""},
	})
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("empty input: got %v, want ValidationError", err)
	}
}

func TestUpdateBookingExcludesItselfFromConflicts(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("booking-1", "room-1", "alice@example.com", at(10, 0), at(11, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	updated, err := svc.UpdateBooking(context.Background(), application.UpdateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		BookingID: "booking-1",
		Input:     application.BookingInput{Title: "Shifted", Start: at(10, 30), End: at(11, 30)},
	})
	if err != nil {
		t.Fatalf("shifting a booking over its own slot: %v", err)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("UpdatedAt not set on edit")
	}
	if updated.CreatedBy != "alice@example.com" {
		t.Errorf("CreatedBy changed on edit: %q", updated.CreatedBy)
	}
	if !updated.CreatedAt.Equal(testfixtures.BaseTime) {
		t.Errorf("CreatedAt changed on edit: %v", updated.CreatedAt)
	}
}

func TestUpdateBookingConflictsWithOthers(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("booking-1", "room-1", "alice@example.com", at(10, 0), at(11, 0)),
		testfixtures.NewBooking("booking-2", "room-1", "alice@example.com", at(12, 0), at(13, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	_, err := svc.UpdateBooking(context.Background(), application.UpdateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		BookingID: "booking-1",
		Input:     application.BookingInput{Title: "Clash", Start: at(12, 30), End: at(13, 30)},
	})
	if !errors.Is(err, application.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestUpdateBookingWrongRoomIsNotFound(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
		"room-2": testfixtures.NewRoom("room-2", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("booking-1", "room-1", "alice@example.com", at(10, 0), at(11, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	_, err := svc.UpdateBooking(context.Background(), application.UpdateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-2",
		BookingID: "booking-1",
		Input:     application.BookingInput{Title: "Moved", Start: at(10, 0), End: at(11, 0)},
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("booking addressed via wrong room: got %v, want ErrNotFound", err)
	}
}

func TestDeleteBookingAuthorization(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com",
			testfixtures.WithMember("bob@example.com", "User"),
			testfixtures.WithMember("carol@example.com", "User")),
	}}

	cases := []struct {
		name    string
		actor   string
		wantErr error
	}{
		{"booking creator", "bob@example.com", nil},
		{"room admin", "alice@example.com", nil},
		{"other member", "carol@example.com", application.ErrForbidden},
		{"non-member", "dave@example.com", application.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubBookingRepository(
				testfixtures.NewBooking("booking-1", "room-1", "bob@example.com", at(10, 0), at(11, 0)),
			)
			svc, _ := newBookingService(t, rooms, repo)

			err := svc.DeleteBooking(context.Background(), application.Principal{Email: tc.actor}, "room-1", "booking-1")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && len(repo.bookings) != 0 {
				t.Fatal("booking still present after delete")
			}
			if tc.wantErr != nil && len(repo.bookings) != 1 {
				t.Fatal("booking removed despite forbidden actor")
			}
		})
	}
}

func TestListBookingsOrderedAndGuarded(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository(
		testfixtures.NewBooking("late", "room-1", "alice@example.com", at(14, 0), at(15, 0)),
		testfixtures.NewBooking("early", "room-1", "alice@example.com", at(9, 0), at(10, 0)),
		testfixtures.NewBooking("middle", "room-1", "alice@example.com", at(11, 0), at(12, 0)),
	)
	svc, _ := newBookingService(t, rooms, repo)

	bookings, err := svc.ListBookings(context.Background(), application.Principal{Email: "alice@example.com"}, "room-1")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	var gotOrder []string
	for _, booking := range bookings {
		gotOrder = append(gotOrder, booking.ID)
	}
	want := []string{"early", "middle", "late"}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("order = %v, want %v", gotOrder, want)
		}
	}

	_, err = svc.ListBookings(context.Background(), application.Principal{Email: "mallory@example.com"}, "room-1")
	if !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("non-member listing: got %v, want ErrForbidden", err)
	}
}

func TestBookingStoreUnavailable(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository()
	repo.listErr = persistence.ErrUnavailable
	svc, _ := newBookingService(t, rooms, repo)

	_, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: application.Principal{Email: "alice@example.com"},
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Standup", Start: at(10, 0), End: at(11, 0)},
	})
	if !errors.Is(err, application.ErrStoreUnavailable) {
		t.Fatalf("got %v, want ErrStoreUnavailable", err)
	}
}
