package directory

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ValidateSessionToken checks that a bearer token exists and has not expired.
// The signature is not verified — the directory service does that — but an
// absent or expired token means collection was requested without a valid
// session, which is a fatal configuration error rather than something to
// discover one 401 at a time mid-run.
func ValidateSessionToken(token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("no session token configured (set CAMAP_DIRECTORY_TOKEN)")
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("session token is not a parseable JWT: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("session token has an unreadable expiry claim: %w", err)
	}
	if exp == nil {
		return fmt.Errorf("session token carries no expiry claim")
	}
	if !now.Before(exp.Time) {
		return fmt.Errorf("session token expired at %s", exp.Time.Format(time.RFC3339))
	}
	return nil
}
