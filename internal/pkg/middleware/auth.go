package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/security"
	"github.com/ManuelReschke/insights/internal/pkg/usercontext"
)

// Authenticator is the part of the auth service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, singleSession bool) (security.Subject, error)
}

// RequireBearer guards API routes with "Authorization: Bearer <token>".
// Only a missing header is 403; a header that does not carry a valid bearer
// token is 401.
func RequireBearer(auth Authenticator, singleSession bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			return apperror.Forbidden("No token provided")
		}

		token := extractBearerToken(header)
		if token == "" {
			return apperror.Auth("Invalid token")
		}

		sub, err := auth.Authenticate(c.UserContext(), token, singleSession)
		if err != nil {
			return err
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     sub.ID,
			Email:      sub.Email,
			IsLoggedIn: true,
		}, token)

		return c.Next()
	}
}

func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
