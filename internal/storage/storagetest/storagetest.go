// Package storagetest holds behaviour tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// sampleBill builds a bill with two assigned items, one shared item and a
// declared total, and computes its split.
func sampleBill(t *testing.T, names ...string) *models.Bill {
	t.Helper()

	b := models.NewBill()
	payload := `{"items":[
		{"name":"Burger","quantity":2,"price":10.99},
		{"name":"Fries","quantity":1,"price":3.99},
		{"name":"Soda","quantity":2,"price":1.99}
	],"total":29.95}`
	if err := b.LoadFromExtraction([]byte(payload)); err != nil {
		t.Fatalf("LoadFromExtraction failed: %v", err)
	}
	for _, name := range names {
		b.AddParticipant(name)
	}
	if len(names) >= 2 {
		if err := b.ToggleAssignment(1, 1); err != nil {
			t.Fatalf("ToggleAssignment failed: %v", err)
		}
		if err := b.ToggleAssignment(2, 2); err != nil {
			t.Fatalf("ToggleAssignment failed: %v", err)
		}
	}
	b.ComputeSplit()
	return b
}

// Run exercises a store end to end. Each subtest uses fresh owner ids and
// emails, so newStore may hand back stores sharing one database.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("SaveBill generates ID and title", func(t *testing.T) {
		store := newStore(t)
		bill := &models.SavedBill{Bill: sampleBill(t, "Alice", "Bob")}

		if err := store.SaveBill(ctx, bill); err != nil {
			t.Fatalf("SaveBill failed: %v", err)
		}
		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.Title != "Split with Alice, Bob" {
			t.Errorf("Title = %q, want %q", bill.Title, "Split with Alice, Bob")
		}
		if bill.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetBill retrieves complete bill", func(t *testing.T) {
		store := newStore(t)
		original := &models.SavedBill{
			Title:   "Test Dinner",
			OwnerID: "user-1",
			PayerID: 2,
			Bill:    sampleBill(t, "Charlie", "Diana", "Eve"),
		}
		if err := store.SaveBill(ctx, original); err != nil {
			t.Fatalf("SaveBill failed: %v", err)
		}

		retrieved, err := store.GetBill(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}

		if retrieved.Title != original.Title || retrieved.OwnerID != original.OwnerID ||
			retrieved.PayerID != original.PayerID || retrieved.CreatedAt != original.CreatedAt {
			t.Errorf("metadata mismatch: got %+v, want %+v", retrieved, original)
		}
		if !reflect.DeepEqual(retrieved.Bill.Snapshot(), original.Bill.Snapshot()) {
			t.Errorf("bill contents mismatch:\n got %+v\nwant %+v",
				retrieved.Bill.Snapshot(), original.Bill.Snapshot())
		}
	})

	t.Run("GetBill returns ErrNotFound for nonexistent bill", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetBill(ctx, uuid.New().String())
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill error = %v, want ErrNotFound", err)
		}
	})

	t.Run("SaveBill with no participants", func(t *testing.T) {
		store := newStore(t)
		bill := &models.SavedBill{Bill: sampleBill(t)}
		if err := store.SaveBill(ctx, bill); err != nil {
			t.Fatalf("SaveBill failed: %v", err)
		}
		if !strings.HasPrefix(bill.Title, "Bill - ") {
			t.Errorf("Title = %q, want date based title", bill.Title)
		}

		retrieved, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if len(retrieved.Bill.Participants()) != 0 {
			t.Errorf("Expected 0 participants, got %d", len(retrieved.Bill.Participants()))
		}
		if len(retrieved.Bill.Items()) != 3 {
			t.Errorf("Expected 3 items, got %d", len(retrieved.Bill.Items()))
		}
	})

	t.Run("ListBillsByOwner and DeleteBill", func(t *testing.T) {
		store := newStore(t)
		owner := "owner-" + uuid.New().String()

		older := &models.SavedBill{OwnerID: owner, CreatedAt: 100, Bill: sampleBill(t, "Alice", "Bob")}
		newer := &models.SavedBill{OwnerID: owner, CreatedAt: 200, Bill: sampleBill(t, "Carol", "Dan")}
		other := &models.SavedBill{OwnerID: "someone-else", Bill: sampleBill(t, "Eve", "Frank")}
		for _, b := range []*models.SavedBill{older, newer, other} {
			if err := store.SaveBill(ctx, b); err != nil {
				t.Fatalf("SaveBill failed: %v", err)
			}
		}

		bills, err := store.ListBillsByOwner(ctx, owner)
		if err != nil {
			t.Fatalf("ListBillsByOwner failed: %v", err)
		}
		if len(bills) != 2 || bills[0].ID != newer.ID || bills[1].ID != older.ID {
			t.Fatalf("ListBillsByOwner returned %d bills in wrong order", len(bills))
		}

		if err := store.DeleteBill(ctx, newer.ID); err != nil {
			t.Fatalf("DeleteBill failed: %v", err)
		}
		if _, err := store.GetBill(ctx, newer.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill after delete error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteBill(ctx, newer.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteBill error = %v, want ErrNotFound", err)
		}

		bills, err = store.ListBillsByOwner(ctx, owner)
		if err != nil {
			t.Fatalf("ListBillsByOwner failed: %v", err)
		}
		if len(bills) != 1 {
			t.Errorf("expected 1 bill after delete, got %d", len(bills))
		}
	})

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		email := uuid.New().String() + "@example.com"
		user := models.NewUser(email, "Alice", "hash")

		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		byEmail, err := store.GetUserByEmail(ctx, email)
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if !reflect.DeepEqual(byEmail, user) {
			t.Errorf("GetUserByEmail = %+v, want %+v", byEmail, user)
		}

		byID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.Email != email {
			t.Errorf("GetUserByID email = %q, want %q", byID.Email, email)
		}

		if _, err := store.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByEmail(missing) error = %v, want ErrNotFound", err)
		}
	})
}
