package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/access"
	"github.com/Oleksandr1212/test-day-second/internal/application"
)

const testToken = "test-token"

var testPrincipal = application.Principal{Email: "alice@example.com", DisplayName: "Alice"}

type stubSessionValidator struct {
	err error
}

func (s *stubSessionValidator) ResolveSession(_ context.Context, token string) (application.Principal, application.Session, error) {
	if s.err != nil {
		return application.Principal{}, application.Session{}, s.err
	}
	if token != testToken {
		return application.Principal{}, application.Session{}, application.ErrInvalidCredentials
	}
	return testPrincipal, application.Session{ID: "session-1", Email: testPrincipal.Email, Token: token}, nil
}

type stubAuthService struct {
	registerErr error
	authErr     error
	revoked     []string
}

func (s *stubAuthService) Register(_ context.Context, params application.RegisterParams) (application.User, error) {
	if s.registerErr != nil {
		return application.User{}, s.registerErr
	}
	return application.User{Email: params.Email, DisplayName: params.DisplayName}, nil
}

func (s *stubAuthService) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.authErr != nil {
		return application.AuthenticateResult{}, s.authErr
	}
	return application.AuthenticateResult{
		User: application.User{Email: params.Email},
		Session: application.Session{
			ID:        "session-1",
			Email:     params.Email,
			Token:     testToken,
			ExpiresAt: time.Date(2024, time.March, 19, 9, 0, 0, 0, time.UTC),
		},
	}, nil
}

func (s *stubAuthService) RevokeSession(_ context.Context, session application.Session) error {
	s.revoked = append(s.revoked, session.ID)
	return nil
}

type stubRoomService struct {
	room      application.Room
	err       error
	lastEmail string
	lastRole  access.Role
}

func (s *stubRoomService) CreateRoom(_ context.Context, params application.CreateRoomParams) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	return application.Room{ID: "room-1", Name: params.Input.Name, CreatedBy: params.Principal.Email}, nil
}

func (s *stubRoomService) UpdateRoom(_ context.Context, params application.UpdateRoomParams) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	room := s.room
	room.Name = params.Input.Name
	return room, nil
}

func (s *stubRoomService) DeleteRoom(_ context.Context, _ application.Principal, _ string) error {
	return s.err
}

func (s *stubRoomService) GetRoom(_ context.Context, _ application.Principal, _ string) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	return s.room, nil
}

func (s *stubRoomService) ListRooms(_ context.Context, _ application.Principal) ([]application.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []application.Room{s.room}, nil
}

func (s *stubRoomService) AddMember(_ context.Context, params application.MemberParams) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	s.lastEmail = params.Email
	return s.room, nil
}

func (s *stubRoomService) SetMemberRole(_ context.Context, params application.SetMemberRoleParams) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	s.lastEmail = params.Email
	s.lastRole = params.Role
	return s.room, nil
}

func (s *stubRoomService) RemoveMember(_ context.Context, params application.MemberParams) (application.Room, error) {
	if s.err != nil {
		return application.Room{}, s.err
	}
	s.lastEmail = params.Email
	return s.room, nil
}

type stubBookingService struct {
	booking application.Booking
	err     error
}

func (s *stubBookingService) CreateBooking(_ context.Context, _ application.CreateBookingParams) (application.Booking, error) {
	if s.err != nil {
		return application.Booking{}, s.err
	}
	return s.booking, nil
}

func (s *stubBookingService) UpdateBooking(_ context.Context, _ application.UpdateBookingParams) (application.Booking, error) {
	if s.err != nil {
		return application.Booking{}, s.err
	}
	return s.booking, nil
}

func (s *stubBookingService) DeleteBooking(_ context.Context, _ application.Principal, _, _ string) error {
	return s.err
}

func (s *stubBookingService) ListBookings(_ context.Context, _ application.Principal, _ string) ([]application.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []application.Booking{s.booking}, nil
}

func newTestRouter(t *testing.T, auth *stubAuthService, rooms *stubRoomService, bookings *stubBookingService) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Auth:              NewAuthHandler(auth, nil),
		Rooms:             NewRoomHandler(rooms, nil),
		Bookings:          NewBookingHandler(bookings, nil),
		SessionMiddleware: RequireSession(&stubSessionValidator{}, nil),
	})
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRouterRequiresSession(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodGet, "/rooms", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp := decodeError(t, rec); resp.ErrorCode != "AUTH_MISSING_TOKEN" {
		t.Errorf("error_code = %q, want AUTH_MISSING_TOKEN", resp.ErrorCode)
	}
}

func TestSignupEndpoint(t *testing.T) {
	auth := &stubAuthService{}
	handler := newTestRouter(t, auth, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPost, "/signup",
		`{"email":"alice@example.com","password":"correct horse","display_name":"Alice"}`, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	auth.registerErr = application.ErrAlreadyExists
	rec = doRequest(t, handler, http.MethodPost, "/signup",
		`{"email":"alice@example.com","password":"correct horse"}`, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: status = %d, want 409", rec.Code)
	}
	if resp := decodeError(t, rec); resp.ErrorCode != "AUTH_EMAIL_TAKEN" {
		t.Errorf("error_code = %q, want AUTH_EMAIL_TAKEN", resp.ErrorCode)
	}
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPost, "/sessions",
		`{"email":"alice@example.com","password":"correct horse"}`, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Session-Token"); got != testToken {
		t.Errorf("X-Session-Token = %q, want %q", got, testToken)
	}

	var foundCookie bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session_token" && cookie.Value == testToken {
			foundCookie = true
		}
	}
	if !foundCookie {
		t.Error("session_token cookie not set")
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.Token != testToken {
		t.Errorf("token = %q, want %q", resp.Token, testToken)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{authErr: application.ErrInvalidCredentials}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPost, "/sessions",
		`{"email":"alice@example.com","password":"wrong"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp := decodeError(t, rec); resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
		t.Errorf("error_code = %q, want AUTH_INVALID_CREDENTIALS", resp.ErrorCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	auth := &stubAuthService{}
	handler := newTestRouter(t, auth, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodDelete, "/sessions/current", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if len(auth.revoked) != 1 || auth.revoked[0] != "session-1" {
		t.Errorf("revoked = %v, want [session-1]", auth.revoked)
	}
}

func TestCurrentUserEndpoint(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodGet, "/sessions/current", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp principalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Email != testPrincipal.Email {
		t.Errorf("email = %q, want %q", resp.Email, testPrincipal.Email)
	}
}

func TestCreateRoomEndpoint(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPost, "/rooms", `{"name":"War room"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp roomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Room.Name != "War room" || resp.Room.CreatedBy != testPrincipal.Email {
		t.Errorf("room = %+v", resp.Room)
	}
}

func TestForbiddenRoomUpdate(t *testing.T) {
	rooms := &stubRoomService{err: application.ErrForbidden}
	handler := newTestRouter(t, &stubAuthService{}, rooms, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPut, "/rooms/room-1", `{"name":"Renamed"}`, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.ErrorCode != "AUTH_FORBIDDEN" {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
	if resp.Message != "У вас немає прав для виконання цієї дії." {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestMemberRoutePathParsing(t *testing.T) {
	rooms := &stubRoomService{room: application.Room{ID: "room-1"}}
	handler := newTestRouter(t, &stubAuthService{}, rooms, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPut, "/rooms/room-1/members/bob%40example.com", `{"role":"Admin"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rooms.lastEmail != "bob@example.com" {
		t.Errorf("member email = %q, want unescaped address", rooms.lastEmail)
	}
	if rooms.lastRole != access.RoleAdmin {
		t.Errorf("role = %q, want Admin", rooms.lastRole)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/rooms/room-1/members/bob@example.com", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete member: status = %d, want 200", rec.Code)
	}
}

func TestBookingConflictResponse(t *testing.T) {
	bookings := &stubBookingService{err: application.ErrConflict}
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, bookings)

	rec := doRequest(t, handler, http.MethodPost, "/rooms/room-1/bookings",
		`{"title":"Standup","start":"2024-03-18T10:00:00Z","end":"2024-03-18T11:00:00Z"}`, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.ErrorCode != "BOOKING_CONFLICT" {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
	if resp.Message != "Цей час уже зайнятий. Будь ласка, оберіть інший проміжок." {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestBookingValidationLocalization(t *testing.T) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}
	bookings := &stubBookingService{err: vErr}
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, bookings)

	rec := doRequest(t, handler, http.MethodPost, "/rooms/room-1/bookings",
		`{"title":"","start":"2024-03-18T10:00:00Z","end":"2024-03-18T11:00:00Z"}`, true)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Errors["title"] != "Назва бронювання є обов'язковою." {
		t.Errorf("errors = %v", resp.Errors)
	}
}

func TestBookingRejectsMalformedTimestamp(t *testing.T) {
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodPost, "/rooms/room-1/bookings",
		`{"title":"Standup","start":"not-a-time","end":"2024-03-18T11:00:00Z"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBookingUpdateAndDeleteRouting(t *testing.T) {
	booking := application.Booking{ID: "booking-1", RoomID: "room-1", Title: "Standup"}
	bookings := &stubBookingService{booking: booking}
	handler := newTestRouter(t, &stubAuthService{}, &stubRoomService{}, bookings)

	rec := doRequest(t, handler, http.MethodPut, "/rooms/room-1/bookings/booking-1",
		`{"title":"Standup","start":"2024-03-18T10:00:00Z","end":"2024-03-18T11:00:00Z"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodDelete, "/rooms/room-1/bookings/booking-1", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPatch, "/rooms/room-1/bookings/booking-1", "", true)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("patch: status = %d, want 405", rec.Code)
	}
}

func TestNotFoundResponse(t *testing.T) {
	rooms := &stubRoomService{err: application.ErrNotFound}
	handler := newTestRouter(t, &stubAuthService{}, rooms, &stubBookingService{})

	rec := doRequest(t, handler, http.MethodGet, "/rooms/missing", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != "Запитаний ресурс не знайдено." {
		t.Errorf("message = %q", resp.Message)
	}
}
