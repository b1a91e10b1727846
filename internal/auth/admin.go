// Package auth implements the shared-secret capabilities gating the
// administrative endpoints. There are no users, roles, or expiring tokens:
// a caller either presents the secret or it does not.
//
// Each capability is constructed once from configuration and injected into
// the handlers that need it, so no handler reads environment state at call
// time and an unconfigured secret fails closed everywhere.
package auth

import (
	"crypto/subtle"
	"errors"
)

// Wire names for the credentials.
const (
	// HeaderAdminPass carries the admin secret on delete requests.
	HeaderAdminPass = "X-Admin-Pass"

	// HeaderSeedToken carries the separate bulk-import secret.
	HeaderSeedToken = "X-Seed-Token"

	// DevCookieName is the development-only cookie that marks a browser as
	// admin after the secret was supplied once via the URL and stripped.
	DevCookieName = "mooky_admin"
)

var (
	// ErrUnconfigured means no secret is set server-side. The capability
	// fails closed: callers must answer 503, never allow.
	ErrUnconfigured = errors.New("admin secret not configured")

	// ErrUnauthorized means the presented credential is missing or wrong.
	ErrUnauthorized = errors.New("invalid admin credential")
)

// Admin is the deletion capability.
type Admin struct {
	secret  string
	devMode bool
}

// NewAdmin builds the capability. devMode additionally accepts the dev
// cookie; production builds must pass false so the header is the only path.
func NewAdmin(secret string, devMode bool) Admin {
	return Admin{secret: secret, devMode: devMode}
}

// Authorize checks a request's credentials: the x-admin-pass header value
// and, in development mode only, the mooky_admin cookie value.
func (a Admin) Authorize(headerPass, devCookie string) error {
	if a.secret == "" {
		return ErrUnconfigured
	}
	if headerPass != "" && subtle.ConstantTimeCompare([]byte(headerPass), []byte(a.secret)) == 1 {
		return nil
	}
	if a.devMode && devCookie == "1" {
		return nil
	}
	return ErrUnauthorized
}

// SeedToken is the trusted-operator capability for bulk import.
type SeedToken struct {
	token string
}

// NewSeedToken builds the capability from configuration.
func NewSeedToken(token string) SeedToken {
	return SeedToken{token: token}
}

// Authorize checks the x-seed-token header value. An unset token fails
// closed like the admin secret.
func (t SeedToken) Authorize(header string) error {
	if t.token == "" {
		return ErrUnconfigured
	}
	if header != "" && subtle.ConstantTimeCompare([]byte(header), []byte(t.token)) == 1 {
		return nil
	}
	return ErrUnauthorized
}
