package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Manager serialises edits to a session: each Update loads the bill,
// applies the edit, recomputes the split and writes it back while holding
// that session's lock.
type Manager struct {
	store Store
	ttl   time.Duration

	mapMu sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from Manager.locks once no caller holds or
// waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ttl:   ttl,
		locks: make(map[string]*sessionLock),
	}
}

func (m *Manager) acquire(id string) *sessionLock {
	m.mapMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mapMu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) release(id string, l *sessionLock) {
	l.mu.Unlock()

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
}

// Create stores bill under a fresh session id. A nil bill starts empty.
// Sessions always start with at least one participant.
func (m *Manager) Create(ctx context.Context, bill *models.Bill) (string, *models.Bill, error) {
	if bill == nil {
		bill = models.NewBill()
	}
	if len(bill.Participants()) == 0 {
		bill.AddParticipant("")
	}
	bill.ComputeSplit()

	id := uuid.New().String()
	if err := m.store.Put(ctx, id, bill.Snapshot(), m.ttl); err != nil {
		return "", nil, err
	}
	return id, bill, nil
}

// View returns the session's bill without refreshing its expiry.
func (m *Manager) View(ctx context.Context, id string) (*models.Bill, error) {
	snap, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bill, err := models.FromSnapshot(*snap)
	if err != nil {
		return nil, fmt.Errorf("session %s is corrupt: %w", id, err)
	}
	return bill, nil
}

// Update applies fn to the session's bill. When fn fails nothing is
// written and its error is returned unchanged.
func (m *Manager) Update(ctx context.Context, id string, fn func(*models.Bill) error) (*models.Bill, error) {
	l := m.acquire(id)
	defer m.release(id, l)

	bill, err := m.View(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(bill); err != nil {
		return nil, err
	}
	bill.ComputeSplit()

	if err := m.store.Put(ctx, id, bill.Snapshot(), m.ttl); err != nil {
		return nil, err
	}
	return bill, nil
}

// Hold runs fn on the session's bill under the session lock without
// writing the bill back. Edits fn makes to the bill are discarded.
func (m *Manager) Hold(ctx context.Context, id string, fn func(*models.Bill) error) error {
	l := m.acquire(id)
	defer m.release(id, l)

	bill, err := m.View(ctx, id)
	if err != nil {
		return err
	}
	return fn(bill)
}

// Delete ends a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	l := m.acquire(id)
	defer m.release(id, l)

	return m.store.Delete(ctx, id)
}
