package activity

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpond/backend/internal/models"
)

// Repository is the single chokepoint for activity-feed writes. State
// transitions call Emit inside their own transaction so the feed entry commits
// or rolls back with the ledger mutation it describes.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Emit appends one activity row for the user inside the caller's transaction.
func (r *Repository) Emit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind string, payload map[string]any) error {
	var raw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO activities (id, user_id, kind, payload) VALUES ($1, $2, $3, $4)
	`, uuid.New(), userID, kind, raw)
	return err
}

// ListByUser returns the user's recent activity, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, payload, created_at
		FROM activities WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
