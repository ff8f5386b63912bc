// Package session holds the explicit sign-in state that the transport reads its
// bearer token from. There is no ambient token lookup anywhere else.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when a session is built from an empty token
var ErrNoToken = errors.New("no access token provided")

// Session represents a signed-in user
type Session struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// FromToken builds a session from an access token. Claims are read for display
// only; the signature is the backend's business. Opaque tokens are accepted as-is.
func FromToken(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}

	s := &Session{Token: token}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return s, nil
	}
	s.Subject = c.Subject
	s.Email = c.Email
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// BearerToken returns the token to send, or "" for a nil session
func (s *Session) BearerToken() string {
	if s == nil {
		return ""
	}
	return s.Token
}

// Expired reports whether the token's exp claim is in the past. Tokens without exp never expire.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// Label is a short description for status lines
func (s *Session) Label() string {
	switch {
	case s == nil:
		return "signed out"
	case s.Email != "":
		return s.Email
	case s.Subject != "":
		return s.Subject
	default:
		return "signed in"
	}
}
