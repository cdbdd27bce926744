package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/auth"
)

type AuthController struct {
	auth *auth.Service
}

func NewAuthController(svc *auth.Service) *AuthController {
	return &AuthController{auth: svc}
}

// HandleLogin accepts JSON or form encoded credentials and returns a
// session token.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperror.Validation("Email and password are required", nil)
	}

	res, err := ac.auth.Login(c.UserContext(), req)
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Kind == apperror.KindAuth {
			log.Infof("[AuthController] Failed login for %q from %s: %s", req.Email, GetClientIP(c), appErr.Message)
		}
		return err
	}

	return c.JSON(fiber.Map{
		"message":  "Login successful",
		"token":    res.Token,
		"redirect": res.Redirect,
	})
}
