package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/perviz24/innovati-x/internal/config"
	"github.com/perviz24/innovati-x/internal/store"
)

// UserService provides business logic for account registration and login.
type UserService struct {
	users    store.UserStore
	password *config.PasswordConfig
}

// NewUserService creates a UserService with the given dependencies.
func NewUserService(users store.UserStore, password *config.PasswordConfig) *UserService {
	return &UserService{users: users, password: password}
}

// Register creates a new account with a hashed password.
func (s *UserService) Register(ctx context.Context, name, email, plaintext string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := s.password.HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		if err == store.ErrEmailTaken {
			return nil, &ErrEmailAlreadyExists{Email: email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("created user not found: %s", id)
	}
	return user, nil
}

// Login authenticates an account. Unknown emails and wrong passwords yield
// the same error.
func (s *UserService) Login(ctx context.Context, email, plaintext string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.password.VerifyPassword(plaintext, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return user, nil
}
