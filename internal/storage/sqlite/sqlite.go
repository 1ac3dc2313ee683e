// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the foreign_keys pragma in effect and
	// serialises writers the way SQLite wants.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBill persists a finalized bill with its items, participants and
// assignments in one transaction.
func (s *SQLiteStore) SaveBill(ctx context.Context, bill *models.SavedBill) error {
	if bill.Bill == nil {
		return fmt.Errorf("bill has no contents")
	}

	// Generate ID and defaults if not set
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = storage.GenerateTitle(bill.Bill.Participants())
	}

	snap := bill.Bill.Snapshot()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var declared sql.NullInt64
	if snap.DeclaredTotal != nil {
		declared = sql.NullInt64{Int64: int64(*snap.DeclaredTotal), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, title, owner_id, payer_id, declared_total, next_item_id, next_participant_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Title, bill.OwnerID, bill.PayerID, declared,
		snap.NextItemID, snap.NextParticipantID, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	// Insert participants
	for pos, p := range snap.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (bill_id, participant_id, position, display_name, computed_total) VALUES (?, ?, ?, ?, ?)",
			bill.ID, p.ID, pos, p.DisplayName, int64(p.ComputedTotal),
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	// Insert items and their assignments
	for pos, item := range snap.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (bill_id, item_id, position, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?, ?)",
			bill.ID, item.ID, pos, item.Name, item.Quantity, int64(item.UnitPrice),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for _, participantID := range item.AssignedTo {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO item_assignments (bill_id, item_id, participant_id) VALUES (?, ?, ?)",
				bill.ID, item.ID, participantID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item assignment: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including all items and participants.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.SavedBill, error) {
	saved := &models.SavedBill{}
	var snap models.Snapshot
	var declared sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, owner_id, payer_id, declared_total, next_item_id, next_participant_id, created_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&saved.ID, &saved.Title, &saved.OwnerID, &saved.PayerID, &declared,
		&snap.NextItemID, &snap.NextParticipantID, &saved.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if declared.Valid {
		total := models.Amount(declared.Int64)
		snap.DeclaredTotal = &total
	}

	if snap.Participants, err = s.getParticipants(ctx, billID); err != nil {
		return nil, err
	}
	if snap.Items, err = s.getItems(ctx, billID); err != nil {
		return nil, err
	}

	saved.Bill, err = models.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild bill %s: %w", billID, err)
	}
	return saved, nil
}

func (s *SQLiteStore) getParticipants(ctx context.Context, billID string) ([]models.ParticipantSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT participant_id, display_name, computed_total FROM participants WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.ParticipantSnapshot
	for rows.Next() {
		var p models.ParticipantSnapshot
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.ComputedTotal); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (s *SQLiteStore) getItems(ctx context.Context, billID string) ([]models.ItemSnapshot, error) {
	assignments, err := s.getAssignments(ctx, billID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, name, quantity, unit_price FROM items WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.ItemSnapshot
	for rows.Next() {
		var item models.ItemSnapshot
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.AssignedTo = assignments[item.ID]
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// getAssignments loads every assignment of a bill keyed by item id.
func (s *SQLiteStore) getAssignments(ctx context.Context, billID string) (map[int][]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, participant_id FROM item_assignments WHERE bill_id = ? ORDER BY item_id, participant_id",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get item assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[int][]int)
	for rows.Next() {
		var itemID, participantID int
		if err := rows.Scan(&itemID, &participantID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[itemID] = append(assignments[itemID], participantID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}

// ListBillsByOwner returns every bill finalized by the owner, newest first.
func (s *SQLiteStore) ListBillsByOwner(ctx context.Context, ownerID string) ([]*models.SavedBill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM bills WHERE owner_id = ? ORDER BY created_at DESC, id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	bills := make([]*models.SavedBill, 0, len(ids))
	for _, id := range ids {
		bill, err := s.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

// DeleteBill removes a bill; items, participants and assignments cascade.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return nil
}
