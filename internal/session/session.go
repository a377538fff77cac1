// Package session carries the bearer credential of the local user. It is
// passed explicitly to every component that talks to the server.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when a session is built without a credential.
var ErrNoToken = errors.New("session: missing bearer token")

// Session is an authenticated user.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// FromToken builds a session from a JWT. The signature is not checked here;
// the server verifies it on every request. The username comes from the
// "username" claim, falling back to "sub".
func FromToken(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	s := &Session{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// opaque tokens are fine, the username must then be supplied
		return s, nil
	}
	if u, ok := claims["username"].(string); ok && u != "" {
		s.Username = u
	} else if sub, err := claims.GetSubject(); err == nil {
		s.Username = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Expired reports whether the token's exp claim has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authorize sets the Authorization header on req.
func (s *Session) Authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.Token)
}

// Header returns the headers used for push subscriptions.
func (s *Session) Header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.Token)
	return h
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s)", s.Username)
}
