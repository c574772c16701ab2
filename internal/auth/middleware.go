package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/pkg/util"
)

const subjectKey = "auth_subject"

// AuthMiddleware validates bearer tokens on the ops API.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	c.Locals(subjectKey, claims.Subject)
	return c.Next()
}

// SubjectFromContext retrieves the authenticated operator identity.
func SubjectFromContext(c *fiber.Ctx) (string, bool) {
	subject, ok := c.Locals(subjectKey).(string)
	return subject, ok && subject != ""
}
