package memory

import (
	"context"
	"testing"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestSaveBill_DetachesFromCaller(t *testing.T) {
	ctx := context.Background()
	store := New()

	b := models.NewBill()
	b.AddParticipant("Alice")
	saved := &models.SavedBill{Bill: b}
	if err := store.SaveBill(ctx, saved); err != nil {
		t.Fatalf("SaveBill failed: %v", err)
	}

	b.AddParticipant("Mallory")

	got, err := store.GetBill(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if n := len(got.Bill.Participants()); n != 1 {
		t.Errorf("stored bill has %d participants, want 1", n)
	}
}
