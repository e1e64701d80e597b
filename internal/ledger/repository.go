package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
)

// Repository is the append-mostly money-movement audit log. Appends happen
// inside the same transaction as the wallet mutation they record; status and
// amount are updated in place only by admin reconciliation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a transaction row inside the caller's transaction.
func (r *Repository) Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, status, description, job_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.UserID, t.Amount, t.Type, t.Status, t.Description, t.JobID).Scan(&t.CreatedAt)
}

// UpdateStatus sets a transaction's status inside the caller's transaction.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	return err
}

// Reconcile corrects a transaction's amount and status in place. Used when an
// admin confirms a deposit's actual amount.
func (r *Repository) Reconcile(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount money.Cents, status string) error {
	_, err := tx.Exec(ctx, `UPDATE transactions SET amount = $2, status = $3 WHERE id = $1`, id, amount, status)
	return err
}

// MarkReversed rewrites a transaction as a reversal with a new description.
func (r *Repository) MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID, description string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status = 'rejected', type = 'adjustment', description = $2 WHERE id = $1
	`, id, description)
	return err
}

// ListByUser returns a user's transactions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, selectTx+`WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListAll returns recent transactions across all users. Admin use.
func (r *Repository) ListAll(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, selectTx+`ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// SumEscrowHeld returns the total amount currently held in escrow across all
// wallets. Used by admin stats and conservation checks.
func (r *Repository) SumEscrowHeld(ctx context.Context) (money.Cents, error) {
	var total money.Cents
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(escrow), 0) FROM wallets`).Scan(&total)
	return total, err
}

const selectTx = `
	SELECT id, user_id, amount, type, status, description, job_id, created_at
	FROM transactions
`

func collect(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var created time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.JobID, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = created
		list = append(list, &t)
	}
	return list, rows.Err()
}
