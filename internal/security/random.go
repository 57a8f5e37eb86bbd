package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Generated password bounds.
const (
	DefaultPasswordLength = 8
	MinPasswordLength     = 6
	MaxPasswordLength     = 32
)

// passwordAlphabet holds the characters of generated passwords.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// sessionTokenPrefix marks panel session tokens in logs.
const sessionTokenPrefix = "tvp_"

// ClampPasswordLength limits a requested password length to the allowed range.
func ClampPasswordLength(length int) int {
	switch {
	case length < MinPasswordLength:
		return MinPasswordLength
	case length > MaxPasswordLength:
		return MaxPasswordLength
	default:
		return length
	}
}

// GeneratePassword returns a random alphanumeric password of the clamped length.
func GeneratePassword(length int) (string, error) {
	length = ClampPasswordLength(length)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// NewSessionToken creates a new random session token.
func NewSessionToken() (string, error) {
	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return sessionTokenPrefix + hex.EncodeToString(secret), nil
}

// HashToken returns the hex SHA-256 of a token, the form persisted server side.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsSessionToken reports whether token has the session token shape.
func IsSessionToken(token string) bool {
	return strings.HasPrefix(token, sessionTokenPrefix) && len(token) == len(sessionTokenPrefix)+64
}
