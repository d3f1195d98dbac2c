package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"invest-bot/internal/auth"
	"invest-bot/internal/models"
)

const ClaimsKey = "claims"

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// AccountFinder returns the active account with the given id, or nil.
type AccountFinder interface {
	FindActiveByID(ctx context.Context, id uint) (*models.User, error)
}

// BearerToken returns the token from an "Authorization: Bearer ..." header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// RequireAdmin lets through requests carrying a valid operator token whose
// account is still active and still an admin.
func RequireAdmin(tokens TokenParser, accounts AccountFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := BearerToken(c)
		if !ok {
			return unauthorized(c, "Bearer token required")
		}

		claims, err := tokens.Parse(raw)
		if errors.Is(err, auth.ErrTokenExpired) {
			return unauthorized(c, "Token expired")
		}
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		if !claims.IsAdmin {
			return forbidden(c)
		}

		account, err := accounts.FindActiveByID(c.UserContext(), claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to verify account: %w", err)
		}
		if account == nil {
			return unauthorized(c, "Account not found or inactive")
		}
		if !account.IsAdmin {
			return forbidden(c)
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Claims returns the verified token claims, or nil on unguarded routes.
func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(ClaimsKey).(*auth.Claims)
	return claims
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "Unauthorized",
		"message": message,
	})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":   "Forbidden",
		"message": "Admin access required",
	})
}
