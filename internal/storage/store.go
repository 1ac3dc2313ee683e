// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/receiptsplit/internal/models"
)

// ErrNotFound is returned when a bill or user does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for finalized bill and user storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// in-memory) without changing the service layer.
type Store interface {
	// SaveBill persists a finalized bill.
	// The bill.ID, Title and CreatedAt fields are populated when empty.
	SaveBill(ctx context.Context, bill *models.SavedBill) error

	// GetBill retrieves a bill by its ID.
	// Returns ErrNotFound if the bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.SavedBill, error)

	// ListBillsByOwner returns the bills finalized by a user, newest first.
	ListBillsByOwner(ctx context.Context, ownerID string) ([]*models.SavedBill, error)

	// DeleteBill removes a bill and everything attached to it.
	// Returns ErrNotFound if the bill does not exist.
	DeleteBill(ctx context.Context, billID string) error

	// CreateUser inserts a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail and GetUserByID return ErrNotFound for unknown users.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}

// GenerateTitle creates an auto-generated title from participant names.
func GenerateTitle(participants []models.Participant) string {
	if len(participants) == 0 {
		return fmt.Sprintf("Bill - %s", time.Now().Format("Jan 2, 2006"))
	}

	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.DisplayName
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
