package auth

import (
	"context"
	"errors"

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

// Create inserts a new user and fills in the database-assigned defaults.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, role, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING status, kyc_status, account_type, created_at, updated_at
	`, u.ID, u.Email, u.FullName, u.PasswordHash, u.Role, u.IsAdmin).
		Scan(&u.Status, &u.KYCStatus, &u.AccountType, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail returns the user for login. Returns (nil, nil) when not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetByID loads a user by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
}

const selectUser = `
	SELECT id, email, full_name, password_hash, role, is_admin, status, kyc_status, account_type,
		withdrawal_method, account_number, created_at, updated_at
	FROM users
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsAdmin, &u.Status,
		&u.KYCStatus, &u.AccountType, &u.WithdrawalMethod, &u.AccountNumber, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
