package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerificationTokenBytes is the entropy of a verification token.
const VerificationTokenBytes = 20

// ShortCodeLen is the length of the OTP derived from a verification token.
const ShortCodeLen = 6

// NewVerificationToken returns a 40-character hex token and the 6-character
// code derived from it. The code alphabet is [0-9A-F]: about 16.7M values,
// accepted for a single-use, 10 minute, cooldown-limited secret.
func NewVerificationToken() (longToken, shortCode string, err error) {
	b := make([]byte, VerificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate verification token: %w", err)
	}
	longToken = hex.EncodeToString(b)
	return longToken, ShortCode(longToken), nil
}

// ShortCode derives the OTP from a long token.
func ShortCode(longToken string) string {
	if len(longToken) < ShortCodeLen {
		return strings.ToUpper(longToken)
	}
	return strings.ToUpper(longToken[:ShortCodeLen])
}

// Hash is the one-way form of a long token kept on the durable record.
func Hash(longToken string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(longToken)))
	return hex.EncodeToString(sum[:])
}

// HashEqual compares a candidate token to a stored hash in constant time.
func HashEqual(longToken, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(longToken)), []byte(storedHash)) == 1
}
