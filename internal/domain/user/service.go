package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/session"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is an account as stored by the backend.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Identity() session.Identity {
	return session.Identity{ID: u.ID, Email: u.Email, DisplayName: u.Name}
}

// Repository stores accounts. Emails are stored lower-cased and unique;
// Create returns ErrEmailTaken on a duplicate.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

// Service is the storefront's auth provider: it verifies credentials and
// drives the session store.
type Service struct {
	users  Repository
	logger *slog.Logger
}

func NewService(users Repository, log *slog.Logger) *Service {
	return &Service{users: users, logger: logger.Component(log, "Auth")}
}

// Signup creates an account and logs it in on sess.
func (s *Service) Signup(ctx context.Context, sess *session.Store, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if name == "" {
		return nil, ErrInvalidName
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	if sess != nil {
		sess.Set(ctx, u.Identity())
	}
	return u, nil
}

// Login verifies credentials and sets the identity on sess.
func (s *Service) Login(ctx context.Context, sess *session.Store, email, password string) (*User, error) {
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if sess != nil {
		sess.Set(ctx, u.Identity())
	}
	return u, nil
}

// Logout clears the identity on sess.
func (s *Service) Logout(ctx context.Context, sess *session.Store) {
	if id, ok := sess.Current(); ok {
		s.logger.Info("user logged out", "user_id", id.ID)
	}
	sess.Clear(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.users.GetUserByID(ctx, id)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
