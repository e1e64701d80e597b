package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
)

var (
	// ErrInsufficientFunds is returned when a debit-class operation would push
	// the spendable balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientEscrow is returned when an escrow release exceeds the
	// amount currently held.
	ErrInsufficientEscrow = errors.New("insufficient escrow")
)

// Repository applies field deltas to wallet rows. Every mutating method runs
// inside a caller-supplied transaction and guards its own precondition with a
// conditional UPDATE, so check and mutation cannot be separated by a
// concurrent writer. None of these methods opens a transaction of its own.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ensure merge-creates the wallet row for the user.
func (r *Repository) Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

// Credit adds amount to the spendable balance.
func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	_, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE user_id = $2
	`, amount, userID)
	return err
}

// Debit removes amount from the spendable balance if it is covered.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	res, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// MoveToEscrow shifts amount from balance to escrow.
func (r *Repository) MoveToEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	res, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $1, escrow = escrow + $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ReleaseFromEscrow shifts amount from escrow back to balance.
func (r *Repository) ReleaseFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	res, err := tx.Exec(ctx, `
		UPDATE wallets SET escrow = escrow - $1, balance = balance + $1, updated_at = now()
		WHERE user_id = $2 AND escrow >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientEscrow
	}
	return nil
}

// PayoutFromEscrow spends amount out of escrow, counting it as money the user
// has spent on the platform. Used when a client's escrowed funds pay a worker.
func (r *Repository) PayoutFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	res, err := tx.Exec(ctx, `
		UPDATE wallets SET escrow = escrow - $1, total_spent = total_spent + $1, updated_at = now()
		WHERE user_id = $2 AND escrow >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientEscrow
	}
	return nil
}

// CreditEarnings adds a payout to the worker's balance and lifetime earnings.
func (r *Repository) CreditEarnings(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	_, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $1, total_earned = total_earned + $1, updated_at = now()
		WHERE user_id = $2
	`, amount, userID)
	return err
}

// WithdrawFromEscrow removes amount from escrow entirely; the funds leave the
// system (approved withdrawal).
func (r *Repository) WithdrawFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error {
	if amount <= 0 {
		return money.ErrNotPositive
	}
	res, err := tx.Exec(ctx, `
		UPDATE wallets SET escrow = escrow - $1, updated_at = now()
		WHERE user_id = $2 AND escrow >= $1
	`, amount, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientEscrow
	}
	return nil
}

// Get returns the user's wallet, or a zero wallet if none exists yet.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, balance, escrow, total_earned, total_spent, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.Escrow, &w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.Wallet{UserID: userID}, nil
		}
		return nil, err
	}
	return &w, nil
}

// ListAll returns every wallet, newest first. Admin use.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Wallet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, balance, escrow, total_earned, total_spent, created_at, updated_at
		FROM wallets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.UserID, &w.Balance, &w.Escrow, &w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
