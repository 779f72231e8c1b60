package identity

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/issue-service/internal/domain"
)

// TokenVerifier validates the signed identity tokens issued by the
// external auth provider and extracts the session identity from them.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier for the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Claims describes the identity token payload.
type Claims struct {
	Email       string      `json:"email,omitempty"`
	DisplayName string      `json:"name,omitempty"`
	PhotoURL    string      `json:"picture,omitempty"`
	Role        domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Parse validates a token and returns the identity it carries.
func (v *TokenVerifier) Parse(tokenStr string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, errors.New("invalid token claims")
	}
	if !domain.KnownRole(claims.Role) {
		return domain.Identity{}, errors.New("unknown role in token")
	}
	return domain.Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		PhotoURL:    claims.PhotoURL,
		Role:        claims.Role,
	}, nil
}

// Sign issues a token for the given identity. Used by tests and local
// development; production tokens come from the external provider.
func (v *TokenVerifier) Sign(id domain.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := &Claims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
