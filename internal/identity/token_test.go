package identity

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/issue-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	want := domain.Identity{
		UID:         "uid-1",
		Email:       "a@example.com",
		DisplayName: "Alex",
		Role:        domain.RoleContractor,
	}

	token, err := verifier.Sign(want, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := verifier.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("identity = %+v, want %+v", got, want)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenVerifier("secret-a").Sign(domain.Identity{UID: "u", Role: domain.RoleCitizen}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenVerifier("secret-b").Parse(token); err == nil {
		t.Fatal("expected parse with wrong secret to fail")
	}
}

func TestTokenExpiredRejected(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	claims := &Claims{
		Role: domain.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(verifier.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestTokenWrongAlgorithmRejected(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	claims := &Claims{
		Role:             domain.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(verifier.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected token signed with a different algorithm to fail")
	}
}

func TestTokenUnknownRoleRejected(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	token, err := verifier.Sign(domain.Identity{UID: "u", Role: domain.Role("inspector")}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
