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
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomService orchestrates validation, authorization, and persistence for
// rooms and their membership maps.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom persists a new room for any authenticated principal. The
// creator becomes the sole initial member with role Admin.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal", params.Principal.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	creator := access.NormalizeEmail(params.Principal.Email)
	if creator == "" {
		err = ErrForbidden
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	room = Room{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Description: strings.TrimSpace(params.Input.Description),
		CreatedBy:   creator,
		Members:     map[string]string{creator: string(access.RoleAdmin)},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if s.rooms == nil {
		return
	}

	var persisted Room
	persisted, err = s.rooms.CreateRoom(ctx, room)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = persisted
	return
}

// UpdateRoom changes name and description for room admins.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal", params.Principal.Email,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	if !access.CanManageRoom(existing.AccessView(), params.Principal.Email) {
		err = ErrForbidden
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Description = strings.TrimSpace(params.Input.Description)
	updated.UpdatedAt = s.now()

	room, err = s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	return
}

// DeleteRoom removes a room for admins. Bookings on the room are NOT
// cascade-deleted; they stay in the store as orphans.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal", principal.Email,
		"room_id", roomID,
	)

	existing, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if !access.CanManageRoom(existing.AccessView(), principal.Email) {
		logger.ErrorContext(ctx, "failed to delete room", "error", ErrForbidden, "error_kind", ErrorKind(ErrForbidden))
		return ErrForbidden
	}

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// GetRoom returns a single room to principals who are members of it.
func (s *RoomService) GetRoom(ctx context.Context, principal Principal, roomID string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	if !access.CanViewRoom(room.AccessView(), principal.Email) {
		room = Room{}
		err = ErrForbidden
		return
	}

	return
}

// ListRooms returns the rooms visible to the principal, ordered by name.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms", "principal", principal.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	var raw []Room
	raw, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	rooms = make([]Room, 0, len(raw))
	for _, room := range raw {
		if access.CanViewRoom(room.AccessView(), principal.Email) {
			rooms = append(rooms, room)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})

	return
}

// AddMember inserts a member with role User. Re-adding an existing member
// resets their role to User.
func (s *RoomService) AddMember(ctx context.Context, params MemberParams) (Room, error) {
	return s.mutateMembers(ctx, "AddMember", params.Principal, params.RoomID, params.Email, func(members map[string]string) map[string]string {
		return access.AddMember(members, params.Email)
	})
}

// SetMemberRole assigns a role for a member, inserting the key when absent.
func (s *RoomService) SetMemberRole(ctx context.Context, params SetMemberRoleParams) (Room, error) {
	if params.Role != access.RoleAdmin && params.Role != access.RoleUser {
		vErr := &ValidationError{}
		vErr.add("role", "role must be Admin or User")
		return Room{}, vErr
	}
	return s.mutateMembers(ctx, "SetMemberRole", params.Principal, params.RoomID, params.Email, func(members map[string]string) map[string]string {
		return access.SetRole(members, params.Email, params.Role)
	})
}

// RemoveMember deletes a member entry. Removing the creator's entry does
// not revoke their implicit Admin role.
func (s *RoomService) RemoveMember(ctx context.Context, params MemberParams) (Room, error) {
	return s.mutateMembers(ctx, "RemoveMember", params.Principal, params.RoomID, params.Email, func(members map[string]string) map[string]string {
		access.RemoveMember(members, params.Email)
		return members
	})
}

func (s *RoomService) mutateMembers(ctx context.Context, operation string, principal Principal, roomID, email string, mutate func(map[string]string) map[string]string) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal", principal.Email,
		"room_id", roomID,
		"member", access.NormalizeEmail(email),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mutate members", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "members updated")
	}()

	if access.NormalizeEmail(email) == "" {
		vErr := &ValidationError{}
		vErr.add("email", "email is required")
		err = vErr
		return
	}

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	if !access.CanManageRoom(existing.AccessView(), principal.Email) {
		err = ErrForbidden
		return
	}

	updated := existing
	updated.Members = cloneMembers(existing.Members)
	updated.Members = mutate(updated.Members)
	updated.UpdatedAt = s.now()

	room, err = s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	return
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}

	return vErr
}

func cloneMembers(members map[string]string) map[string]string {
	cloned := make(map[string]string, len(members))
	for email, role := range members {
		cloned[email] = role
	}
	return cloned
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
