package application

import "errors"

var (
	// ErrForbidden is returned when the acting principal lacks the
	// effective role required for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the referenced room or booking no
	// longer exists.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a proposed interval overlaps an
	// existing booking on the same room.
	ErrConflict = errors.New("application: booking conflict")
	// ErrInvalidInterval is returned when a proposed interval has
	// end <= start.
	ErrInvalidInterval = errors.New("application: invalid interval")
	// ErrInPast is returned when a proposed interval starts before the
	// submission instant.
	ErrInPast = errors.New("application: interval starts in the past")
	// ErrStoreUnavailable is returned when the store failed to service a
	// read or write. The services never retry; the caller decides.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when authentication material does
	// not match a registered account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token has passed its
	// expiry instant.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly
	// revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
