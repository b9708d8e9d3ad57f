// Package authn gates the bridge drain trigger and the DLQ admin endpoints
// behind a bearer credential, hashed with bcrypt the way the teacher's
// tenant API keys were hashed.
package authn

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Level distinguishes the trigger credential (can kick a drain) from the
// elevated admin credential (can replay/discard DLQ messages).
type Level int

const (
	LevelTrigger Level = iota
	LevelAdmin
)

// Checker validates a bearer token against a bcrypt hash held in config.
type Checker struct {
	triggerHash string
	adminHash   string
}

func NewChecker(triggerHash, adminHash string) *Checker {
	return &Checker{triggerHash: triggerHash, adminHash: adminHash}
}

// HashToken bcrypt-hashes a plaintext credential for storage in config.
func HashToken(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (c *Checker) hashFor(level Level) string {
	if level == LevelAdmin {
		return c.adminHash
	}
	return c.triggerHash
}

// Require wraps an http.HandlerFunc, rejecting requests without a bearer
// token that matches the hash configured for level.
func (c *Checker) Require(level Level, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := c.hashFor(level)
		if hash == "" {
			http.Error(w, "credential not configured", http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
