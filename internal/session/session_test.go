package session

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestFromTokenReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, err := FromToken(signed(t, jwt.MapClaims{"username": "alice", "exp": exp.Unix()}))
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if s.Username != "alice" {
		t.Fatalf("Username = %q", s.Username)
	}
	if !s.ExpiresAt.Equal(exp) || s.Expired(time.Now()) {
		t.Fatalf("ExpiresAt = %s", s.ExpiresAt)
	}
	if !s.Expired(exp.Add(time.Second)) {
		t.Fatalf("expected session to expire")
	}
}

func TestFromTokenSubjectFallback(t *testing.T) {
	s, err := FromToken(signed(t, jwt.MapClaims{"sub": "bob"}))
	if err != nil || s.Username != "bob" {
		t.Fatalf("FromToken = %+v, %v", s, err)
	}
}

func TestOpaqueToken(t *testing.T) {
	s, err := FromToken("not-a-jwt")
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if s.Username != "" || s.Expired(time.Now()) {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestEmptyToken(t *testing.T) {
	if _, err := FromToken("  "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	s := &Session{Token: "abc"}
	req := httptest.NewRequest("POST", "/game/join", nil)
	s.Authorize(req)
	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Fatalf("Authorization = %q", got)
	}
}
