package application_test

import (
	"errors"
	"testing"

	"github.com/Oleksandr1212/test-day-second/internal/application"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := application.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash equals the plain password")
	}

	if err := application.VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("VerifyPassword with matching password: %v", err)
	}
	if err := application.VerifyPassword(hash, "wrong horse"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("VerifyPassword with wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	first, err := application.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := application.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if err := application.VerifyPassword("not-a-hash", "whatever"); !errors.Is(err, application.ErrInvalidPasswordHash) {
		t.Fatalf("got %v, want ErrInvalidPasswordHash", err)
	}
}
