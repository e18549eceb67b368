// Package users manages account records and credentials.
package users

import (
	"context"
	"strings"

	"github.com/petrolink/fuelhub/internal/app/auth"
	"github.com/petrolink/fuelhub/internal/app/domain/user"
	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/pkg/logger"
)

// Service manages user accounts.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Ensure returns the account for email, creating it on first sign-in. An
// existing account is returned unchanged.
func (s *Service) Ensure(ctx context.Context, email, name, password string, role user.Role) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return user.User{}, errors.Validation("email is required")
	}
	if _, err := user.ParseRole(string(role)); err != nil {
		return user.User{}, errors.Validation(err.Error())
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	hash := ""
	if password != "" {
		if hash, err = auth.HashPassword(password); err != nil {
			return user.User{}, err
		}
	}
	created, err := s.store.CreateUser(ctx, user.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		Status:       user.StatusActive,
	})
	if err != nil {
		// Lost a race with a concurrent first sign-in.
		if errors.Is(err, storage.ErrDuplicate) {
			return s.store.GetUserByEmail(ctx, email)
		}
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).
		WithField("email", created.Email).
		WithField("role", string(created.Role)).
		Info("user created")
	return created, nil
}

// Authenticate verifies email/password credentials and returns the account.
// Suspended accounts cannot sign in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, errors.Unauthorized("Invalid credentials")
		}
		return user.User{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return user.User{}, errors.Unauthorized("Invalid credentials")
	}
	if u.Status != user.StatusActive {
		return user.User{}, errors.Forbidden("Account is suspended")
	}
	return u, nil
}

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns every account, oldest first.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// Update changes mutable profile fields. Email is immutable.
func (s *Service) Update(ctx context.Context, u user.User) (user.User, error) {
	current, err := s.store.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	if u.Name != "" {
		current.Name = strings.TrimSpace(u.Name)
	}
	if u.CompanyID != "" {
		current.CompanyID = u.CompanyID
	}
	if u.Role != "" {
		if _, err := user.ParseRole(string(u.Role)); err != nil {
			return user.User{}, errors.Validation(err.Error())
		}
		current.Role = u.Role
	}

	updated, err := s.store.UpdateUser(ctx, current)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", u.ID).Info("user updated")
	return updated, nil
}

// SetStatus suspends or reactivates an account. Accounts are never deleted.
func (s *Service) SetStatus(ctx context.Context, id string, status user.Status) (user.User, error) {
	if status != user.StatusActive && status != user.StatusSuspended {
		return user.User{}, errors.Validation("unsupported status")
	}

	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	current.Status = status
	updated, err := s.store.UpdateUser(ctx, current)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).WithField("status", string(status)).Info("user status changed")
	return updated, nil
}
