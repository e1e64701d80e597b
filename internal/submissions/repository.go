package submissions

import (
	"context"
	"errors"
	"time"

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

// CreateTx inserts the submission inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, s *models.Submission) error {
	return tx.QueryRow(ctx, `
		INSERT INTO submissions (id, job_id, worker_id, client_id, payout, status, proofs, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING submission_count, created_at, updated_at
	`, s.ID, s.JobID, s.WorkerID, s.ClientID, s.Payout, s.Status, s.Proofs, s.SubmittedAt).
		Scan(&s.SubmissionCount, &s.CreatedAt, &s.UpdatedAt)
}

// GetForUpdate locks the submission row for the remainder of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(tx.QueryRow(ctx, selectSubmission+`WHERE id = $1 FOR UPDATE`, id))
}

// LatestByWorkerTx returns the worker's most recent submission to the job, or
// nil. Read inside the create transaction so the cooldown check cannot race a
// concurrent create by the same worker.
func (r *Repository) LatestByWorkerTx(ctx context.Context, tx pgx.Tx, jobID, workerID uuid.UUID) (*models.Submission, error) {
	s, err := scanSubmission(tx.QueryRow(ctx, selectSubmission+`
		WHERE job_id = $1 AND worker_id = $2 ORDER BY submitted_at DESC LIMIT 1
	`, jobID, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Transition flips status from→to. Reports false when the submission was not
// in the expected state, which is the at-most-once guard for payouts.
func (r *Repository) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE submissions SET status = $3, updated_at = now() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// SetRejectedTx terminally rejects a pending submission, recording the reason.
func (r *Repository) SetRejectedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE submissions SET status = 'rejected', rejection_reason = $2, rejection_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, reason, at)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// SetReworkRequestedTx moves a pending submission to resubmit_pending and
// starts the resubmission window.
func (r *Repository) SetReworkRequestedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE submissions SET status = 'resubmit_pending', rejection_reason = $2, rejection_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, reason, at)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// SetResubmittedTx returns a reworked submission to pending with fresh proofs.
func (r *Repository) SetResubmittedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, proofs []models.Proof, at time.Time) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE submissions SET status = 'pending', proofs = $2, submitted_at = $3,
			submission_count = submission_count + 1, updated_at = now()
		WHERE id = $1 AND status = 'resubmit_pending'
	`, id, proofs, at)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ForceApproveTx approves an outstanding submission regardless of which
// non-terminal state it is in. Used by the cancel path.
func (r *Repository) ForceApproveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE submissions SET status = 'approved', updated_at = now()
		WHERE id = $1 AND status IN ('pending','resubmit_pending')
	`, id)
	return err
}

// ForceRejectTx rejects an outstanding submission. Used by the cancel path.
func (r *Repository) ForceRejectTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE submissions SET status = 'rejected', rejection_reason = $2, rejection_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending','resubmit_pending')
	`, id, reason)
	return err
}

// ListOutstandingForUpdate locks and returns every pending/resubmit_pending
// submission of the job, oldest first.
func (r *Repository) ListOutstandingForUpdate(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) ([]*models.Submission, error) {
	rows, err := tx.Query(ctx, selectSubmission+`
		WHERE job_id = $1 AND status IN ('pending','resubmit_pending')
		ORDER BY submitted_at ASC
		FOR UPDATE
	`, jobID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// DueSubmission identifies a sweep candidate.
type DueSubmission struct {
	ID    uuid.UUID
	JobID uuid.UUID
}

// ListDuePending returns submissions still pending since before the cutoff.
func (r *Repository) ListDuePending(ctx context.Context, cutoff time.Time) ([]DueSubmission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id FROM submissions
		WHERE status = 'pending' AND submitted_at <= $1
		ORDER BY submitted_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []DueSubmission
	for rows.Next() {
		var d DueSubmission
		if err := rows.Scan(&d.ID, &d.JobID); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// ListByJob returns all submissions of a job, newest first.
func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, selectSubmission+`WHERE job_id = $1 ORDER BY submitted_at DESC`, jobID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// ListByWorker returns all of a worker's submissions, newest first.
func (r *Repository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, selectSubmission+`WHERE worker_id = $1 ORDER BY submitted_at DESC`, workerID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

const selectSubmission = `
	SELECT id, job_id, worker_id, client_id, payout, status, proofs, submitted_at,
		rejection_reason, rejection_at, submission_count, created_at, updated_at
	FROM submissions
`

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.JobID, &s.WorkerID, &s.ClientID, &s.Payout, &s.Status, &s.Proofs,
		&s.SubmittedAt, &s.RejectionReason, &s.RejectionAt, &s.SubmissionCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	defer rows.Close()
	var list []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
