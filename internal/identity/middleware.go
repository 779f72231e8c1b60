package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/domain"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

const localsKey = "session_identity"

// Middleware extracts the session identity from the Authorization
// header and attaches it to the request context.
type Middleware struct {
	verifier *TokenVerifier
}

// NewMiddleware builds the middleware.
func NewMiddleware(verifier *TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handle resolves and injects the session identity.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return apperrors.NewUnauthorized("authorization header required")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return apperrors.NewUnauthorized("bearer token required")
	}
	id, err := m.verifier.Parse(strings.TrimSpace(token))
	if err != nil {
		return apperrors.NewUnauthorized("invalid identity token")
	}
	c.Locals(localsKey, id)
	return c.Next()
}

// FromContext returns the identity injected by Handle.
func FromContext(c *fiber.Ctx) (domain.Identity, bool) {
	id, ok := c.Locals(localsKey).(domain.Identity)
	return id, ok
}

// RequireRole guards a route group to the given roles.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := FromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("identity required")
		}
		for _, role := range roles {
			if id.Role == role {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
