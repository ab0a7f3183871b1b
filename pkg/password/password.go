// Package password hashes and verifies passwords with PBKDF2-SHA256.
// The stored format is "iterations$base64(salt)$base64(derived key)"; the
// embedded iteration count keeps old hashes verifiable after the default
// changes.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count for new hashes.
	DefaultIterations = 100_000

	saltSize = 16
	keySize  = 32
)

// Hash derives a key from password with a fresh random salt and returns the
// composite stored string.
func Hash(password string) (string, error) {
	return HashWithIterations(password, DefaultIterations)
}

// HashWithIterations is Hash with an explicit iteration count.
func HashWithIterations(password string, iterations int) (string, error) {
	if iterations < 1 {
		return "", fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	dk := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return fmt.Sprintf("%d$%s$%s",
		iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(dk)), nil
}

// Verify re-derives the key with the stored iteration count and salt and
// compares in constant time. A malformed stored string verifies as false;
// it never propagates as a fault.
func Verify(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations < 1 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
