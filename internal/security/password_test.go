package security

import (
	"errors"
	"testing"
)

func TestHashPasswordRequiresMinimumLength(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestHashPasswordAndVerify(t *testing.T) {
	password := "this-is-a-long-password"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !ValidHash(hash) {
		t.Fatalf("expected %q to be a valid hash", hash)
	}
	if !VerifyPassword(password, hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Fatalf("expected wrong password verification to fail")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"v1$180000$salt",
		"v2$180000$c2FsdA$ZGlnZXN0",
		"v1$10$c2FsdA$ZGlnZXN0",
		"v1$180000$c2FsdA$ZGlnZXN0",
	} {
		if VerifyPassword("anything-long-enough", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
		if ValidHash(encoded) {
			t.Fatalf("expected %q to be invalid", encoded)
		}
	}
}

func TestCheckCredentials(t *testing.T) {
	hash := encode("correct-horse-battery", []byte("fixed-salt-bytes"), minIterations)

	if !CheckCredentials("admin", "correct-horse-battery", "admin", hash) {
		t.Fatalf("expected matching credentials to pass")
	}
	if CheckCredentials("root", "correct-horse-battery", "admin", hash) {
		t.Fatalf("expected wrong username to fail")
	}
	if CheckCredentials("admin", "wrong-horse-battery", "admin", hash) {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckCredentials("", "", "", "") {
		t.Fatalf("expected unconfigured admin to fail")
	}
}
