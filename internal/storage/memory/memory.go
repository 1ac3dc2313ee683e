// Package memory provides an in-process storage.Store. Nothing survives a
// restart; it backs tests and the CLI.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type savedBill struct {
	meta models.SavedBill
	snap models.Snapshot
}

// Store keeps bills as snapshots so callers never share state with it.
type Store struct {
	mu    sync.RWMutex
	bills map[string]savedBill
	users map[string]models.User
}

// New returns an empty store.
func New() *Store {
	return &Store{
		bills: make(map[string]savedBill),
		users: make(map[string]models.User),
	}
}

func (s *Store) SaveBill(_ context.Context, bill *models.SavedBill) error {
	if bill.Bill == nil {
		return fmt.Errorf("bill has no contents")
	}
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = storage.GenerateTitle(bill.Bill.Participants())
	}

	meta := *bill
	meta.Bill = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID] = savedBill{meta: meta, snap: bill.Bill.Snapshot()}
	return nil
}

func (s *Store) GetBill(_ context.Context, billID string) (*models.SavedBill, error) {
	s.mu.RLock()
	saved, ok := s.bills[billID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return saved.restore()
}

func (s *Store) ListBillsByOwner(_ context.Context, ownerID string) ([]*models.SavedBill, error) {
	s.mu.RLock()
	var matches []savedBill
	for _, saved := range s.bills {
		if saved.meta.OwnerID == ownerID {
			matches = append(matches, saved)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matches, func(a, b savedBill) int {
		if c := cmp.Compare(b.meta.CreatedAt, a.meta.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.meta.ID, b.meta.ID)
	})

	bills := make([]*models.SavedBill, 0, len(matches))
	for _, saved := range matches {
		bill, err := saved.restore()
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (s *Store) DeleteBill(_ context.Context, billID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[billID]; !ok {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	delete(s.bills, billID)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: email %s already taken", user.Email)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) Close() error { return nil }

func (b savedBill) restore() (*models.SavedBill, error) {
	bill, err := models.FromSnapshot(b.snap)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild bill %s: %w", b.meta.ID, err)
	}
	out := b.meta
	out.Bill = bill
	return &out, nil
}
