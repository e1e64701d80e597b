package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpond/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateDepositTx inserts the deposit request inside the caller's transaction.
func (r *Repository) CreateDepositTx(ctx context.Context, tx pgx.Tx, d *models.DepositRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO deposit_requests (id, user_id, amount, method, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING requested_at
	`, d.ID, d.UserID, d.Amount, d.Method, d.TransactionID, d.Status).Scan(&d.RequestedAt)
}

// GetDepositForUpdate locks the deposit request row for review.
func (r *Repository) GetDepositForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.DepositRequest, error) {
	var d models.DepositRequest
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, amount, method, transaction_id, status, requested_at, reviewed_at
		FROM deposit_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&d.ID, &d.UserID, &d.Amount, &d.Method, &d.TransactionID, &d.Status, &d.RequestedAt, &d.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ResolveDepositTx closes a pending deposit request with its review outcome.
// Reports false when the request was already reviewed.
func (r *Repository) ResolveDepositTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, amount int64) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE deposit_requests SET status = $2, amount = $3, reviewed_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status, amount)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// CreateWithdrawalTx inserts the withdrawal request inside the caller's transaction.
func (r *Repository) CreateWithdrawalTx(ctx context.Context, tx pgx.Tx, wd *models.WithdrawalRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, amount, method, account_number, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING requested_at
	`, wd.ID, wd.UserID, wd.Amount, wd.Method, wd.AccountNumber, wd.TransactionID, wd.Status).Scan(&wd.RequestedAt)
}

// GetWithdrawalForUpdate locks the withdrawal request row for review.
func (r *Repository) GetWithdrawalForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var wd models.WithdrawalRequest
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, amount, method, account_number, transaction_id, status, requested_at, reviewed_at
		FROM withdrawal_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&wd.ID, &wd.UserID, &wd.Amount, &wd.Method, &wd.AccountNumber, &wd.TransactionID,
		&wd.Status, &wd.RequestedAt, &wd.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

// ResolveWithdrawalTx closes a pending withdrawal request with its review
// outcome. Reports false when the request was already reviewed.
func (r *Repository) ResolveWithdrawalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $2, reviewed_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ListDeposits returns deposit requests, optionally filtered to one status.
func (r *Repository) ListDeposits(ctx context.Context, status string) ([]*models.DepositRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, method, transaction_id, status, requested_at, reviewed_at
		FROM deposit_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.DepositRequest
	for rows.Next() {
		var d models.DepositRequest
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Method, &d.TransactionID,
			&d.Status, &d.RequestedAt, &d.ReviewedAt); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// ListWithdrawals returns withdrawal requests, optionally filtered to one status.
func (r *Repository) ListWithdrawals(ctx context.Context, status string) ([]*models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, method, account_number, transaction_id, status, requested_at, reviewed_at
		FROM withdrawal_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.WithdrawalRequest
	for rows.Next() {
		var wd models.WithdrawalRequest
		if err := rows.Scan(&wd.ID, &wd.UserID, &wd.Amount, &wd.Method, &wd.AccountNumber,
			&wd.TransactionID, &wd.Status, &wd.RequestedAt, &wd.ReviewedAt); err != nil {
			return nil, err
		}
		list = append(list, &wd)
	}
	return list, rows.Err()
}

// ListMethods returns active payment methods, optionally all of them.
func (r *Repository) ListMethods(ctx context.Context, includeInactive bool) ([]*models.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, kind, details, is_active, created_at
		FROM payment_methods
		WHERE ($1 OR is_active)
		ORDER BY created_at ASC
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &m.Details, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// CreateMethod adds a payment method.
func (r *Repository) CreateMethod(ctx context.Context, m *models.PaymentMethod) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_methods (id, name, kind, details, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.Name, m.Kind, m.Details, m.IsActive).Scan(&m.CreatedAt)
}

// SetMethodActive toggles a payment method's visibility.
func (r *Repository) SetMethodActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.pool.Exec(ctx, `UPDATE payment_methods SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
