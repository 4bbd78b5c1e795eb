package middleware

import (
	"strings"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// Auth requires a valid bearer token and stores its claims on the request.
func Auth(tokens *security.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return pkgError.UnauthorizedError("missing bearer token")
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			return pkgError.UnauthorizedError("invalid or expired token")
		}
		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RequireRole rejects authenticated users without role.
func RequireRole(role domainUser.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Role(c) != role {
			return pkgError.ForbiddenError("insufficient permissions")
		}
		return c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func Role(c *fiber.Ctx) domainUser.Role {
	role, _ := c.Locals(localRole).(string)
	return domainUser.Role(role)
}

func IsAdmin(c *fiber.Ctx) bool {
	return Role(c) == domainUser.RoleAdmin
}
