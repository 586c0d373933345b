package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/access"
	"github.com/Oleksandr1212/test-day-second/internal/persistence"
	"github.com/Oleksandr1212/test-day-second/internal/scheduler"
)

// BookingRepository captures the persistence interactions needed by the
// service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
// EndsAfter is a server-side pre-filter; it alone cannot decide overlap, so
// candidates are always refined locally against the full predicate.
type BookingRepositoryFilter struct {
	RoomID    string
	EndsAfter *time.Time
}

// RoomDirectory exposes the room lookup needed for authorization snapshots.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// BookingService orchestrates authorization, conflict checking, and
// persistence for bookings.
//
// The conflict check and the subsequent persist are two separate store
// operations; a concurrent writer may commit between them. Results are
// advisory until confirmed by a subsequent read.
type BookingService struct {
	bookings    BookingRepository
	rooms       RoomDirectory
	watcher     *BookingWatcher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations. The watcher
// is optional; when present, every successful mutation publishes a fresh
// per-room snapshot to it.
func NewBookingService(bookings BookingRepository, rooms RoomDirectory, watcher *BookingWatcher, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, watcher, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, rooms RoomDirectory, watcher *BookingWatcher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		watcher:     watcher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking authorizes the actor, validates the interval, re-checks the
// room for conflicts, and persists the booking. Steps short-circuit on the
// first failure.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.rooms == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal", params.Principal.Email,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	var room Room
	room, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if !access.CanWriteBooking(room.AccessView(), params.Principal.Email) {
		err = ErrForbidden
		return
	}

	if err = s.validateBookingInput(params.Input); err != nil {
		return
	}

	var conflict bool
	conflict, err = s.hasConflict(ctx, room.ID, params.Input.Start, params.Input.End, "")
	if err != nil {
		return
	}
	if conflict {
		err = ErrConflict
		return
	}

	creator := access.NormalizeEmail(params.Principal.Email)
	booking = Booking{
		ID:           s.idGenerator(),
		RoomID:       room.ID,
		Title:        strings.TrimSpace(params.Input.Title),
		Start:        params.Input.Start,
		End:          params.Input.End,
		CreatedBy:    creator,
		Participants: []string{creator},
		CreatedAt:    s.now(),
	}

	var persisted Booking
	persisted, err = s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	booking = persisted
	s.publishSnapshot(ctx, room.ID)
	return
}

// UpdateBooking re-validates interval and conflicts (excluding the booking
// itself) before persisting new title and times. CreatedBy, Participants,
// and CreatedAt are never altered; UpdatedAt records the edit instant.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.rooms == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal", params.Principal.Email,
		"room_id", params.RoomID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	var room Room
	room, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if existing.RoomID != room.ID {
		// Bookings are owned by their room for their entire lifetime.
		err = ErrNotFound
		return
	}

	if !access.CanWriteBooking(room.AccessView(), params.Principal.Email) {
		err = ErrForbidden
		return
	}

	if err = s.validateBookingInput(params.Input); err != nil {
		return
	}

	var conflict bool
	conflict, err = s.hasConflict(ctx, room.ID, params.Input.Start, params.Input.End, existing.ID)
	if err != nil {
		return
	}
	if conflict {
		err = ErrConflict
		return
	}

	updatedAt := s.now()
	updated := existing
	updated.Title = strings.TrimSpace(params.Input.Title)
	updated.Start = params.Input.Start
	updated.End = params.Input.End
	updated.UpdatedAt = &updatedAt

	var persisted Booking
	persisted, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	booking = persisted
	s.publishSnapshot(ctx, room.ID)
	return
}

// DeleteBooking removes a booking for room admins or the booking's creator.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, roomID, bookingID string) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil || s.rooms == nil {
		return fmt.Errorf("booking service not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking",
		"principal", principal.Email,
		"room_id", roomID,
		"booking_id", bookingID,
	)

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapBookingRepoError(err)
		logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	existing, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if existing.RoomID != room.ID {
		logger.ErrorContext(ctx, "failed to delete booking", "error", ErrNotFound, "error_kind", ErrorKind(ErrNotFound))
		return ErrNotFound
	}

	if !access.CanDeleteBooking(room.AccessView(), access.Booking{CreatedBy: existing.CreatedBy}, principal.Email) {
		logger.ErrorContext(ctx, "failed to delete booking", "error", ErrForbidden, "error_kind", ErrorKind(ErrForbidden))
		return ErrForbidden
	}

	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		err = mapBookingRepoError(err)
		logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "booking deleted")
	s.publishSnapshot(ctx, room.ID)
	return nil
}

// ListBookings returns the room's bookings ordered by start time ascending,
// for principals who may view the room.
func (s *BookingService) ListBookings(ctx context.Context, principal Principal, roomID string) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.rooms == nil {
		err = fmt.Errorf("booking service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListBookings",
		"principal", principal.Email,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "bookings listed")
	}()

	var room Room
	room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if !access.CanViewRoom(room.AccessView(), principal.Email) {
		err = ErrForbidden
		return
	}

	bookings, err = s.listOrdered(ctx, room.ID)
	return
}

// Watch subscribes to live booking snapshots for a room, subject to the
// same visibility rule as ListBookings. The initial snapshot is delivered
// before the subscription is returned.
func (s *BookingService) Watch(ctx context.Context, principal Principal, roomID string) (*BookingSubscription, error) {
	if s == nil || s.watcher == nil {
		return nil, fmt.Errorf("booking watcher not configured")
	}

	bookings, err := s.ListBookings(ctx, principal, roomID)
	if err != nil {
		return nil, err
	}

	sub := s.watcher.Subscribe(roomID)
	s.watcher.send(sub, bookings)
	return sub, nil
}

func (s *BookingService) validateBookingInput(input BookingInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	switch err := scheduler.ValidateInterval(input.Start, input.End, s.now()); {
	case errors.Is(err, scheduler.ErrEndBeforeStart):
		return ErrInvalidInterval
	case errors.Is(err, scheduler.ErrStartInPast):
		return ErrInPast
	default:
		return err
	}
}

// hasConflict fetches a server-side filtered superset of candidates (all
// bookings ending after the proposed start) and refines locally with the
// half-open overlap predicate. The refinement is mandatory: a range filter
// on one bound alone cannot decide overlap.
func (s *BookingService) hasConflict(ctx context.Context, roomID string, start, end time.Time, excludeID string) (bool, error) {
	candidates, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{
		RoomID:    roomID,
		EndsAfter: &start,
	})
	if err != nil {
		return false, mapBookingRepoError(err)
	}

	existing := make([]scheduler.Booking, 0, len(candidates))
	for _, candidate := range candidates {
		existing = append(existing, scheduler.Booking{
			ID:    candidate.ID,
			Start: candidate.Start,
			End:   candidate.End,
		})
	}

	return scheduler.HasConflict(existing, start, end, excludeID), nil
}

func (s *BookingService) listOrdered(ctx context.Context, roomID string) ([]Booking, error) {
	bookings, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{RoomID: roomID})
	if err != nil {
		return nil, mapBookingRepoError(err)
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	return ordered, nil
}

// publishSnapshot refreshes watchers after a successful mutation. Snapshot
// failures only affect presentation freshness, so they are logged and
// swallowed.
func (s *BookingService) publishSnapshot(ctx context.Context, roomID string) {
	if s.watcher == nil {
		return
	}
	bookings, err := s.listOrdered(ctx, roomID)
	if err != nil {
		s.loggerWith(ctx, "publishSnapshot", "room_id", roomID).
			ErrorContext(ctx, "failed to refresh booking snapshot", "error", err, "error_kind", ErrorKind(err))
		return
	}
	s.watcher.Publish(roomID, bookings)
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidInterval
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
