// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface using lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore implements storage.Store on PostgreSQL. Item assignments
// are kept as an INTEGER[] column on items.
type PostgresStore struct {
	db *sql.DB
}

// New connects to the database at dsn and runs migrations.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) SaveBill(ctx context.Context, bill *models.SavedBill) (err error) {
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

	snap := bill.Bill.Snapshot()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var declared sql.NullInt64
	if snap.DeclaredTotal != nil {
		declared = sql.NullInt64{Int64: int64(*snap.DeclaredTotal), Valid: true}
	}

	const insertBill = `INSERT INTO bills (id, title, owner_id, payer_id, declared_total, next_item_id, next_participant_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err = tx.ExecContext(ctx, insertBill,
		bill.ID, bill.Title, bill.OwnerID, bill.PayerID, declared,
		snap.NextItemID, snap.NextParticipantID, bill.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	const insertParticipant = `INSERT INTO participants (bill_id, participant_id, position, display_name, computed_total)
	VALUES ($1, $2, $3, $4, $5)`
	for pos, ps := range snap.Participants {
		if _, err = tx.ExecContext(ctx, insertParticipant,
			bill.ID, ps.ID, pos, ps.DisplayName, int64(ps.ComputedTotal),
		); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	const insertItem = `INSERT INTO items (bill_id, item_id, position, name, quantity, unit_price, assigned_to)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for pos, item := range snap.Items {
		assigned := make([]int64, len(item.AssignedTo))
		for i, id := range item.AssignedTo {
			assigned[i] = int64(id)
		}
		if _, err = tx.ExecContext(ctx, insertItem,
			bill.ID, item.ID, pos, item.Name, item.Quantity, int64(item.UnitPrice), pq.Array(assigned),
		); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetBill(ctx context.Context, billID string) (*models.SavedBill, error) {
	saved := &models.SavedBill{}
	var snap models.Snapshot
	var declared sql.NullInt64

	const query = `SELECT id, title, owner_id, payer_id, declared_total, next_item_id, next_participant_id, created_at
	FROM bills WHERE id = $1`
	err := p.db.QueryRowContext(ctx, query, billID).Scan(
		&saved.ID, &saved.Title, &saved.OwnerID, &saved.PayerID, &declared,
		&snap.NextItemID, &snap.NextParticipantID, &saved.CreatedAt,
	)
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

	if snap.Participants, err = p.getParticipants(ctx, billID); err != nil {
		return nil, err
	}
	if snap.Items, err = p.getItems(ctx, billID); err != nil {
		return nil, err
	}

	saved.Bill, err = models.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild bill %s: %w", billID, err)
	}
	return saved, nil
}

func (p *PostgresStore) getParticipants(ctx context.Context, billID string) ([]models.ParticipantSnapshot, error) {
	const query = `SELECT participant_id, display_name, computed_total FROM participants
	WHERE bill_id = $1 ORDER BY position`
	rows, err := p.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.ParticipantSnapshot
	for rows.Next() {
		var ps models.ParticipantSnapshot
		if err := rows.Scan(&ps.ID, &ps.DisplayName, &ps.ComputedTotal); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (p *PostgresStore) getItems(ctx context.Context, billID string) ([]models.ItemSnapshot, error) {
	const query = `SELECT item_id, name, quantity, unit_price, assigned_to FROM items
	WHERE bill_id = $1 ORDER BY position`
	rows, err := p.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.ItemSnapshot
	for rows.Next() {
		var item models.ItemSnapshot
		var assigned pq.Int64Array
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.UnitPrice, &assigned); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		for _, id := range assigned {
			item.AssignedTo = append(item.AssignedTo, int(id))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func (p *PostgresStore) ListBillsByOwner(ctx context.Context, ownerID string) ([]*models.SavedBill, error) {
	const query = `SELECT id FROM bills WHERE owner_id = $1 ORDER BY created_at DESC, id`
	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	bills := make([]*models.SavedBill, 0, len(ids))
	for _, id := range ids {
		bill, err := p.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (p *PostgresStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, billID)
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

func (p *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to create user: email %s already taken", user.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, email, display_name, password_hash, created_at, updated_at FROM users WHERE email = $1`, email)
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, email, display_name, password_hash, created_at, updated_at FROM users WHERE id = $1`, id)
}

func (p *PostgresStore) getUser(ctx context.Context, query, key string) (*models.User, error) {
	user := &models.User{}
	err := p.db.QueryRowContext(ctx, query, key).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
