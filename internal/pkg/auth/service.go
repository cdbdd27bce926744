package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/insights/app/repository"
	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/security"
)

// SessionCache is the optional fast path for CurrentToken.
type SessionCache interface {
	SetToken(ctx context.Context, userID uint, token string, ttl time.Duration) error
	GetToken(ctx context.Context, userID uint) (string, bool, error)
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type LoginResult struct {
	Token    string
	Redirect string
	User     security.Subject
}

type Service struct {
	users    repository.UserRepository
	tokens   *security.TokenService
	cache    SessionCache
	redirect string
	validate *validator.Validate
}

type Option func(*Service)

// WithSessionCache makes CurrentToken consult cache before the database.
func WithSessionCache(cache SessionCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithRedirect(path string) Option {
	return func(s *Service) {
		s.redirect = path
	}
}

func NewService(users repository.UserRepository, tokens *security.TokenService, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		redirect: "/insights_news",
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Tokens() *security.TokenService {
	return s.tokens
}

// Login checks the credentials, issues a new token and stores it on the user
// row, replacing whatever session the user had before.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil || strings.TrimSpace(req.Password) == "" {
		return nil, apperror.Validation("Email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth("Wrong email entered")
		}
		return nil, apperror.Internal("Server error", fmt.Errorf("load user: %w", err))
	}

	if !user.CheckPassword(req.Password) {
		return nil, apperror.Auth("Wrong password entered")
	}

	sub := security.Subject{ID: user.ID, Email: user.Email}
	token, err := s.tokens.Issue(sub)
	if err != nil {
		return nil, apperror.Internal("Server error", err)
	}

	if err := s.users.UpdateToken(ctx, user.ID, token); err != nil {
		return nil, apperror.Internal("Server error", fmt.Errorf("store token: %w", err))
	}
	if s.cache != nil {
		if err := s.cache.SetToken(ctx, user.ID, token, s.tokens.TTL()); err != nil {
			log.Warnf("[AuthService] Could not cache session for user %d: %v", user.ID, err)
		}
	}

	log.Infof("[AuthService] User %d logged in", user.ID)
	return &LoginResult{Token: token, Redirect: s.redirect, User: sub}, nil
}

// Authenticate verifies the token signature and expiry. With singleSession
// set it also requires the token to be the one stored by the last login.
func (s *Service) Authenticate(ctx context.Context, token string, singleSession bool) (security.Subject, error) {
	sub, err := s.tokens.Verify(token)
	if err != nil {
		return security.Subject{}, apperror.Auth("Invalid token")
	}
	if !singleSession {
		return sub, nil
	}

	current, err := s.CurrentToken(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return security.Subject{}, apperror.Auth("Invalid token")
		}
		return security.Subject{}, apperror.Internal("Server error", err)
	}
	if current != token {
		return security.Subject{}, apperror.Auth("Invalid token")
	}
	return sub, nil
}

// CurrentToken returns the token stored by the user's latest login.
func (s *Service) CurrentToken(ctx context.Context, userID uint) (string, error) {
	if s.cache != nil {
		token, ok, err := s.cache.GetToken(ctx, userID)
		if err != nil {
			log.Warnf("[AuthService] Session cache lookup failed for user %d: %v", userID, err)
		} else if ok {
			return token, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	token := user.CurrentToken()

	if s.cache != nil && token != "" {
		if err := s.cache.SetToken(ctx, userID, token, s.tokens.TTL()); err != nil {
			log.Warnf("[AuthService] Could not cache session for user %d: %v", userID, err)
		}
	}
	return token, nil
}
