package usertoken

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret, TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{Secret: "short"}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, nil)
	token, err := m.Issue(7, "alice", "author")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 7 {
		t.Fatalf("user id = %d err=%v", id, err)
	}
	if claims.Username != "alice" || claims.Role != "author" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Sub(claims.IssuedAt.Time) != time.Hour {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	old := newTestManager(t, func() time.Time { return issuedAt })
	token, err := old.Issue(1, "bob", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := newTestManager(t, nil).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := newTestManager(t, nil).Issue(1, "bob", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := NewManager(Config{Secret: "another-secret-9876543210"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestVerifyRejectsUnexpectedAlgorithms(t *testing.T) {
	m := newTestManager(t, nil)
	claims := Claims{
		Username: "mallory",
		Role:     "author",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    defaultIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Verify(none); err == nil {
		t.Fatalf("expected alg=none to fail")
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, err := m.Verify(hs512); err == nil {
		t.Fatalf("expected HS512 to fail")
	}
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	m := newTestManager(t, nil)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-a",
		Issuer:    defaultIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected non-numeric subject to fail, got %v", err)
	}
	if _, err := m.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token to fail")
	}
}
