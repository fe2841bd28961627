package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NormalizePhone strips formatting and country prefixes and returns the bare
// 10-digit subscriber number. This is the canonical form stored and compared
// everywhere; two submissions are duplicates iff their normalized phones match.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return "", fmt.Errorf("phone %q: expected 10 digits, got %d", raw, len(digits))
	}
	return digits, nil
}

// NewRegistrationID returns a human-readable id like REG-3F2A91BC.
// Random suffix, no counter to coordinate; collisions are caught by the
// unique index on the column.
func NewRegistrationID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "REG-" + suffix
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
