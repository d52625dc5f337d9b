package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("secret")
	token, err := m.GenerateToken("user1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user1" {
		t.Fatalf("expected user1, got %s", claims.UserID)
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewManager("secret")
	token, err := m.GenerateToken("user1", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.ParseToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	token, _ := NewManager("one").GenerateToken("user1", time.Hour)
	if _, err := NewManager("two").ParseToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestPIN(t *testing.T) {
	m := NewManager("secret")
	hash, err := m.HashPIN("1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := m.ComparePIN(hash, "1234"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := m.ComparePIN(hash, "0000"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := TokenFromRequest(r); ok {
		t.Fatal("expected no token")
	}
	r.Header.Set("Authorization", "Bearer abc")
	if token, ok := TokenFromRequest(r); !ok || token != "abc" {
		t.Fatalf("unexpected token %q", token)
	}
	r.Header.Set("Authorization", "Basic abc")
	if _, ok := TokenFromRequest(r); ok {
		t.Fatal("basic auth should not be accepted")
	}
}
