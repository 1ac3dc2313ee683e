package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/receiptsplit/internal/models"
)

func sampleSnapshot(t *testing.T) models.Snapshot {
	t.Helper()
	b := models.NewBill()
	b.AddParticipant("Alice")
	b.AddParticipant("Bob")
	_, err := b.AddItem("Pizza", 1, 1800)
	require.NoError(t, err)
	require.NoError(t, b.ToggleAssignment(1, 2))
	total := models.Amount(1800)
	b.SetDeclaredTotal(&total)
	b.ComputeSplit()
	return b.Snapshot()
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	snap := sampleSnapshot(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Put(ctx, "s1", snap, time.Minute))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap, *got)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "s1"), ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "s1", sampleSnapshot(t), time.Minute))
	require.NoError(t, store.Put(ctx, "forever", sampleSnapshot(t), 0))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryStore_PutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "s1", sampleSnapshot(t), time.Minute))
	require.NoError(t, store.Put(ctx, "forever", sampleSnapshot(t), 0))

	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Put(ctx, "s2", sampleSnapshot(t), time.Minute))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.entries, 2)
	assert.NotContains(t, store.entries, "s1")
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	testStore(t, store)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Put(ctx, "s1", sampleSnapshot(t), time.Minute))
	assert.True(t, mr.Exists(defaultKeyPrefix+"s1"))
	assert.Equal(t, time.Minute, mr.TTL(defaultKeyPrefix+"s1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CreateStartsWithOneParticipant(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	id, bill, err := m.Create(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	participants := bill.Participants()
	require.Len(t, participants, 1)
	assert.Equal(t, "Person 1", participants[0].DisplayName)

	viewed, err := m.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bill.Snapshot(), viewed.Snapshot())
}

func TestManager_UpdateRecomputesSplit(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	id, _, err := m.Create(ctx, nil)
	require.NoError(t, err)

	bill, err := m.Update(ctx, id, func(b *models.Bill) error {
		b.AddParticipant("Bob")
		_, err := b.AddItem("Pizza", 1, 1000)
		return err
	})
	require.NoError(t, err)

	for _, p := range bill.Participants() {
		assert.Equal(t, models.Amount(500), p.ComputedTotal(), "participant %d", p.ID)
	}

	stored, err := m.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bill.Snapshot(), stored.Snapshot())
}

func TestManager_FailedUpdateLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	id, before, err := m.Create(ctx, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = m.Update(ctx, id, func(b *models.Bill) error {
		b.AddParticipant("Ghost")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := m.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Snapshot(), after.Snapshot())
}

func TestManager_ConcurrentUpdatesAreSerialised(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	id, _, err := m.Create(ctx, nil)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, id, func(b *models.Bill) error {
				_, err := b.AddItem("", 1, 100)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bill, err := m.View(ctx, id)
	require.NoError(t, err)
	assert.Len(t, bill.Items(), workers)
	assert.Equal(t, models.Amount(workers*100), bill.Subtotal())
	assert.Empty(t, m.locks)
}

func TestManager_UnknownSessionsLeaveNoLocks(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	for i := range 1000 {
		_, err := m.Update(ctx, fmt.Sprintf("bogus-%d", i), func(*models.Bill) error { return nil })
		require.ErrorIs(t, err, ErrSessionNotFound)
	}
	assert.ErrorIs(t, m.Hold(ctx, "bogus", func(*models.Bill) error { return nil }), ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "bogus"), ErrSessionNotFound)

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	assert.Empty(t, m.locks)
}

func TestManager_HoldDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	id, before, err := m.Create(ctx, nil)
	require.NoError(t, err)

	var seen int
	err = m.Hold(ctx, id, func(b *models.Bill) error {
		b.AddParticipant("Ghost")
		seen = len(b.Participants())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	after, err := m.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Snapshot(), after.Snapshot())

	boom := errors.New("boom")
	assert.ErrorIs(t, m.Hold(ctx, id, func(*models.Bill) error { return boom }), boom)
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)
	id, _, err := m.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, id))
	_, err = m.View(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Update(ctx, id, func(*models.Bill) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
