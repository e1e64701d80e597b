package users

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

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil pointers leave the column untouched.
type ProfileUpdate struct {
	FullName         *string
	WithdrawalMethod *string
	AccountNumber    *string
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			withdrawal_method = COALESCE($3, withdrawal_method),
			account_number = COALESCE($4, account_number),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.FullName, p.WithdrawalMethod, p.AccountNumber))
}

// SetStatus flips an account's status. Admin use.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns users, optionally filtered by role or status. Admin use.
func (r *Repository) List(ctx context.Context, role, status string) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, selectUser+`
		WHERE ($1 = '' OR role = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, role, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Count returns the number of users per status. Admin stats.
func (r *Repository) Count(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const userColumns = `id, email, full_name, password_hash, role, is_admin, status, kyc_status, account_type,
		withdrawal_method, account_number, created_at, updated_at`

const selectUser = `SELECT ` + userColumns + ` FROM users `

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsAdmin, &u.Status,
		&u.KYCStatus, &u.AccountType, &u.WithdrawalMethod, &u.AccountNumber, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
