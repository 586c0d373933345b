package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/access"
	"github.com/Oleksandr1212/test-day-second/internal/persistence"
)

const minPasswordLength = 8

// UserRepository persists account records keyed by normalized email.
type UserRepository interface {
	CreateUser(ctx context.Context, user UserCredentials) (UserCredentials, error)
	GetUserByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// SessionRepository persists login sessions looked up by opaque token.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

// AuthService handles account registration and session lifecycle.
type AuthService struct {
	users          UserRepository
	sessions       SessionRepository
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService wires dependencies for authentication operations.
func NewAuthService(users UserRepository, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(users, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an auth service with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates a new account. Emails are normalized before storage and
// uniqueness is enforced by the repository.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := access.NormalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user registered")
	}()

	if err = validateRegistration(email, params.Password); err != nil {
		return
	}

	var passwordHash string
	passwordHash, err = HashPassword(params.Password)
	if err != nil {
		return
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = email
	}

	createdAt := s.now()
	creds := UserCredentials{
		User: User{
			Email:       email,
			DisplayName: displayName,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		},
		PasswordHash: passwordHash,
	}

	var persisted UserCredentials
	persisted, err = s.users.CreateUser(ctx, creds)
	if err != nil {
		err = mapAuthRepoError(err)
		return
	}

	user = persisted.User
	return
}

// Authenticate verifies credentials and opens a new session. Unknown
// accounts and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := access.NormalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to authenticate", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", result.Session.ID).InfoContext(ctx, "session opened")
	}()

	var creds UserCredentials
	creds, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapAuthRepoError(err)
		return
	}

	if err = VerifyPassword(creds.PasswordHash, params.Password); err != nil {
		return
	}

	issuedAt := s.now()
	session := Session{
		ID:        s.idGenerator(),
		Email:     creds.User.Email,
		Token:     s.tokenGenerator(),
		ExpiresAt: issuedAt.Add(s.sessionTTL),
		CreatedAt: issuedAt,
		UpdatedAt: issuedAt,
	}

	var persisted Session
	persisted, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapAuthRepoError(err)
		return
	}

	result = AuthenticateResult{User: creds.User, Session: persisted}
	return
}

// ResolveSession validates a session token and returns the authenticated
// principal. Expired and revoked sessions are rejected with distinct errors.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (principal Principal, session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResolveSession")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve session", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(token) == "" {
		err = ErrInvalidCredentials
		return
	}

	session, err = s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapAuthRepoError(err)
		return
	}

	if session.RevokedAt != nil {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		err = ErrSessionExpired
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserByEmail(ctx, session.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapAuthRepoError(err)
		return
	}

	principal = Principal{Email: creds.User.Email, DisplayName: creds.User.DisplayName}
	return
}

// RevokeSession closes a session. Revoking an already revoked session is a
// no-op success.
func (s *AuthService) RevokeSession(ctx context.Context, session Session) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "RevokeSession", "session_id", session.ID)

	if session.RevokedAt != nil {
		logger.InfoContext(ctx, "session already revoked")
		return nil
	}

	if err := s.sessions.RevokeSession(ctx, session.ID, s.now()); err != nil {
		err = mapAuthRepoError(err)
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// PurgeExpiredSessions deletes sessions whose expiry is in the past.
// Intended for periodic background invocation.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return 0, fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "PurgeExpiredSessions")

	deleted, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		err = mapAuthRepoError(err)
		logger.ErrorContext(ctx, "failed to purge sessions", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}

	if deleted > 0 {
		logger.With("deleted_count", deleted).InfoContext(ctx, "expired sessions purged")
	}
	return deleted, nil
}

func validateRegistration(email, password string) error {
	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if len(password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapAuthRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
