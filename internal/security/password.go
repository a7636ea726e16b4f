package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	passwordHashVersion = "v1"
	iterations          = 180000
	minIterations       = 100000

	MinPasswordLength = 12
)

var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// HashPassword returns "v1$iterations$salt$digest" for storage in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encode(password, salt, iterations), nil
}

func encode(password string, salt []byte, rounds int) string {
	digest := deriveDigest(password, salt, rounds)
	return fmt.Sprintf("%s$%d$%s$%s",
		passwordHashVersion,
		rounds,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
}

var errMalformedHash = errors.New("malformed password hash")

type parsedHash struct {
	rounds int
	salt   []byte
	digest []byte
}

func parseHash(encoded string) (parsedHash, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 4 || parts[0] != passwordHashVersion {
		return parsedHash{}, errMalformedHash
	}
	rounds, err := strconv.Atoi(parts[1])
	if err != nil || rounds < minIterations {
		return parsedHash{}, errMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return parsedHash{}, errMalformedHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(digest) != sha256.Size {
		return parsedHash{}, errMalformedHash
	}
	return parsedHash{rounds: rounds, salt: salt, digest: digest}, nil
}

// ValidHash reports whether encoded has the shape HashPassword produces.
func ValidHash(encoded string) bool {
	_, err := parseHash(encoded)
	return err == nil
}

func VerifyPassword(password, encoded string) bool {
	h, err := parseHash(encoded)
	if err != nil {
		return false
	}
	actual := deriveDigest(password, h.salt, h.rounds)
	return subtle.ConstantTimeCompare(actual, h.digest) == 1
}

// CheckCredentials compares a Basic auth pair against the configured admin.
func CheckCredentials(username, password, wantUsername, passwordHash string) bool {
	if wantUsername == "" || passwordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(wantUsername)) == 1
	passOK := VerifyPassword(password, passwordHash)
	return userOK && passOK
}

func deriveDigest(password string, salt []byte, rounds int) []byte {
	digest := sha256.Sum256(append(append([]byte{}, salt...), []byte(password)...))
	buf := digest[:]
	for i := 1; i < rounds; i++ {
		next := sha256.Sum256(append(buf, salt...))
		buf = next[:]
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
