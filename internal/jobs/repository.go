package jobs

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
	// ErrJobFull is returned when approved+pending submissions already cover
	// every needed worker slot.
	ErrJobFull = errors.New("job has no open worker slots")
	// ErrInsufficientBudget is returned when a payout would overdraw the
	// job's remaining budget.
	ErrInsufficientBudget = errors.New("insufficient remaining budget")
	// ErrInvalidStatus is returned when a status transition's precondition
	// does not hold.
	ErrInvalidStatus = errors.New("job is not in a valid status for this operation")
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

// CreateTx inserts the job inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (id, client_id, title, description, status, cost_per_worker, workers_needed,
			total_cost, remaining_budget, submission_cooldown, instructions, restrictions, proofs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, j.ID, j.ClientID, j.Title, j.Description, j.Status, j.CostPerWorker, j.WorkersNeeded,
		j.TotalCost, j.RemainingBudget, j.SubmissionCooldown, j.Instructions, j.Restrictions, j.Proofs).
		Scan(&j.CreatedAt, &j.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, selectJob+`WHERE id = $1`, id))
}

// GetForUpdate locks the job row for the remainder of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error) {
	return scanJob(tx.QueryRow(ctx, selectJob+`WHERE id = $1 FOR UPDATE`, id))
}

// SetStatusTx flips the job status if the current status is one of from.
func (r *Repository) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []string, to string) error {
	res, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2)
	`, id, from, to)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// SetReviewRejectedTx moves a pending_review job to rejected with the reason.
func (r *Repository) SetReviewRejectedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error {
	res, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'rejected', rejection_reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending_review'
	`, id, reason)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// UpdateBudgetTx rewrites the job's cost fields and shifts remaining_budget by
// delta. The remaining_budget >= 0 guard closes races with concurrent payouts.
func (r *Repository) UpdateBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, workersNeeded int, costPerWorker, newTotal, delta money.Cents) error {
	res, err := tx.Exec(ctx, `
		UPDATE jobs SET workers_needed = $2, cost_per_worker = $3, total_cost = $4,
			remaining_budget = remaining_budget + $5, updated_at = now()
		WHERE id = $1 AND remaining_budget + $5 >= 0
	`, id, workersNeeded, costPerWorker, newTotal, delta)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientBudget
	}
	return nil
}

// ReserveSlotTx increments the pending counter only while a worker slot is
// free, closing the race of two workers submitting into the last slot.
func (r *Repository) ReserveSlotTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	res, err := tx.Exec(ctx, `
		UPDATE jobs SET submissions_pending = submissions_pending + 1, updated_at = now()
		WHERE id = $1 AND submissions_approved + submissions_pending < workers_needed
	`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrJobFull
	}
	return nil
}

// ApprovalCounters is the job state after a payout was applied.
type ApprovalCounters struct {
	Approved        int
	WorkersNeeded   int
	RemainingBudget money.Cents
}

// ApplyApprovalTx applies the job-side effects of an approved submission:
// budget decrement guarded against overdraw, approved+1, pending-1.
func (r *Repository) ApplyApprovalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, payout money.Cents) (*ApprovalCounters, error) {
	var c ApprovalCounters
	err := tx.QueryRow(ctx, `
		UPDATE jobs SET remaining_budget = remaining_budget - $2,
			submissions_approved = submissions_approved + 1,
			submissions_pending = submissions_pending - 1,
			updated_at = now()
		WHERE id = $1 AND remaining_budget >= $2
		RETURNING submissions_approved, workers_needed, remaining_budget
	`, id, payout).Scan(&c.Approved, &c.WorkersNeeded, &c.RemainingBudget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientBudget
		}
		return nil, err
	}
	return &c, nil
}

// ApplyRejectionTx counts a direct rejection: rejected+1, pending-1.
func (r *Repository) ApplyRejectionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET submissions_rejected = submissions_rejected + 1,
			submissions_pending = submissions_pending - 1, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// ApplyResubmitRequestTx removes a submission from the pending count while the
// worker reworks it.
func (r *Repository) ApplyResubmitRequestTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET submissions_pending = submissions_pending - 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// ApplyResubmitTx returns a reworked submission to the pending count.
func (r *Repository) ApplyResubmitTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET submissions_pending = submissions_pending + 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// ApplyExpiryTx counts a resubmission-deadline expiry as a terminal rejection.
// The pending counter was already decremented when rework was requested.
func (r *Repository) ApplyExpiryTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET submissions_rejected = submissions_rejected + 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// CompleteTx marks the job completed and zeroes its remaining budget. The
// caller refunds the remainder to the client in the same transaction.
func (r *Repository) CompleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'completed', remaining_budget = 0, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// FinalizeCancelTx closes out a cancelled job after its outstanding
// submissions were reconciled.
func (r *Repository) FinalizeCancelTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, approvedDelta, rejectedDelta int) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'cancelled', remaining_budget = 0, submissions_pending = 0,
			submissions_approved = submissions_approved + $2,
			submissions_rejected = submissions_rejected + $3,
			updated_at = now()
		WHERE id = $1
	`, id, approvedDelta, rejectedDelta)
	return err
}

// DeleteTx hard-deletes the job row; submissions cascade.
func (r *Repository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

// ListOpen returns jobs workers may browse and submit to.
func (r *Repository) ListOpen(ctx context.Context) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, selectJob+`WHERE status IN ('open','active') ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ListByClient returns all of a client's jobs, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, selectJob+`WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ListPendingReview returns jobs awaiting admin review.
func (r *Repository) ListPendingReview(ctx context.Context) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, selectJob+`WHERE status = 'pending_review' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

const selectJob = `
	SELECT id, client_id, title, description, status, cost_per_worker, workers_needed,
		total_cost, remaining_budget, submissions_pending, submissions_approved, submissions_rejected,
		submission_cooldown, instructions, restrictions, proofs, rejection_reason, created_at, updated_at
	FROM jobs
`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ClientID, &j.Title, &j.Description, &j.Status, &j.CostPerWorker,
		&j.WorkersNeeded, &j.TotalCost, &j.RemainingBudget, &j.SubmissionsPending, &j.SubmissionsApproved,
		&j.SubmissionsRejected, &j.SubmissionCooldown, &j.Instructions, &j.Restrictions, &j.Proofs,
		&j.RejectionReason, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*models.Job, error) {
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}
