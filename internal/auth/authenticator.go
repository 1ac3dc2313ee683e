// Package auth issues and checks the tokens that tie saved bills to an
// account. Splitting a bill never needs one.
package auth

import (
	"context"
	"errors"

	"github.com/mmynk/receiptsplit/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Authenticator creates accounts and checks sign-ins.
type Authenticator interface {
	// Register returns ErrEmailExists, ErrInvalidEmail or the
	// ValidateCredential error for rejected sign-ups.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns ErrInvalidCredentials for an unknown email or a
	// wrong credential, without saying which.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	ValidateCredential(credential string) error
}

// UserStorage is the subset of storage.Store the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
