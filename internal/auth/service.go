// Package auth supplies the current-user capability: signup, login and
// session-backed identity. Consumers only ever read the uid and role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"biblioteca/internal/config"
	"biblioteca/internal/database/users"
	"biblioteca/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// ErrUserNotFound mirrors the repository sentinel for callers that only
// import this package.
var ErrUserNotFound = users.ErrUserNotFound

// CurrentUser is the identity attached to an authenticated request.
type CurrentUser struct {
	UID      string            `json:"uid"`
	Username string            `json:"username"`
	Role     entities.UserRole `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *CurrentUser) IsAdmin() bool {
	return u != nil && u.Role == entities.UserRoleAdmin
}

// Service handles signup and credential verification.
type Service struct {
	users  *users.Repository
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{users: repo, config: cfg}
}

// SignUp creates a new user account with the given role.
func (s *Service) SignUp(ctx context.Context, username, email, password string, role entities.UserRole) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 limits addresses to 254 characters
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}
	switch role {
	case entities.UserRoleAdmin, entities.UserRoleUser:
	default:
		return nil, ErrInvalidRole
	}

	exists, err := s.users.Exists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	return s.users.Create(ctx, username, email, passwordHash, role)
}

// Login validates credentials and returns the user.
func (s *Service) Login(ctx context.Context, login, password string) (*entities.User, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}
	return user, nil
}
