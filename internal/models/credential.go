package models

import (
	"fmt"
	"time"
)

// Credential is the persisted OAuth token slot. It is owned by the token
// store; the device-auth flow writes the initial grant and the store's
// refresh routine rewrites it afterwards.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token is usable at the given instant.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && c.ExpiresAt.After(now)
}

// Redacted returns a log-safe representation. Token values are never
// written to logs in full.
func (c Credential) Redacted() string {
	return fmt.Sprintf("access=%s refresh=%s expires=%s",
		redactToken(c.AccessToken), redactToken(c.RefreshToken),
		c.ExpiresAt.UTC().Format(time.RFC3339))
}

func redactToken(tok string) string {
	if len(tok) <= 6 {
		if tok == "" {
			return "<none>"
		}
		return "****"
	}
	return tok[:4] + "****"
}
