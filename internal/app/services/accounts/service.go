// Package accounts manages user registration, authentication, and profile
// updates.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const minPasswordLength = 8

// Service manages user accounts.
type Service struct {
	users storage.UserStore
	log   *logger.Logger
}

// New constructs an accounts service.
func New(users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{users: users, log: log}
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account with a hashed password. New accounts start
// on the basic tier with email notifications enabled.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		return user.User{}, fmt.Errorf("username is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return user.User{}, fmt.Errorf("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return user.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Username:           in.Username,
		Email:              in.Email,
		PasswordHash:       string(hash),
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		EmailNotifications: true,
		SubscriptionTier:   user.TierBasic,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", u.ID).WithField("username", u.Username).Infof("user registered")
	return u, nil
}

// Authenticate verifies a username/password pair. The error is identical for
// unknown usernames and wrong passwords.
func (s *Service) Authenticate(ctx context.Context, username, password string) (user.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return user.User{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, fmt.Errorf("invalid credentials")
	}
	return u, nil
}

// Get returns the account by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateInput carries optional profile changes. Nil fields are left alone.
type UpdateInput struct {
	Email              *string
	FirstName          *string
	LastName           *string
	EmailNotifications *bool
	Password           *string
}

// Update applies profile changes to the account.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return user.User{}, fmt.Errorf("a valid email is required")
		}
		u.Email = email
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.EmailNotifications != nil {
		u.EmailNotifications = *in.EmailNotifications
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return user.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	return s.users.UpdateUser(ctx, u)
}
