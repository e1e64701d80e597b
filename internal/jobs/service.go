package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
)

var (
	// ErrNotFound is returned when the job does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrForbidden is returned when the caller does not own the job.
	ErrForbidden = errors.New("not the job owner")
	// ErrReasonRequired is returned when a review rejection carries no reason.
	ErrReasonRequired = errors.New("a rejection reason is required")
	// ErrBelowCommitted is returned when a budget edit would shrink the job
	// below already-committed worker slots.
	ErrBelowCommitted = errors.New("workers needed cannot drop below approved and pending submissions")
	// ErrInvalidInput wraps request-shape validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// TxBeginner opens a database transaction. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletOps is the subset of wallet delta operations the job lifecycle needs.
// Every method applies inside the caller's transaction.
type WalletOps interface {
	Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	MoveToEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	ReleaseFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	PayoutFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	CreditEarnings(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
}

// LedgerWriter appends audit rows inside the caller's transaction.
type LedgerWriter interface {
	Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// ActivityEmitter records feed entries inside the caller's transaction.
type ActivityEmitter interface {
	Emit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind string, payload map[string]any) error
}

// JobStore is the repository surface the service needs.
type JobStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []string, to string) error
	SetReviewRejectedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error
	UpdateBudgetTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, workersNeeded int, costPerWorker, newTotal, delta money.Cents) error
	FinalizeCancelTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, approvedDelta, rejectedDelta int) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ListOpen(ctx context.Context) ([]*models.Job, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Job, error)
	ListPendingReview(ctx context.Context) ([]*models.Job, error)
}

// SubmissionStore is the submission surface the cancel path needs: resolve
// every outstanding submission inside the cancel transaction.
type SubmissionStore interface {
	ListOutstandingForUpdate(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) ([]*models.Submission, error)
	ForceApproveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ForceRejectTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error
}

// PostInput carries the client-supplied job fields. Monetary validation and
// the platform fee happen here, not in the handler.
type PostInput struct {
	Title              string
	Description        string
	CostPerWorker      money.Cents
	WorkersNeeded      int
	SubmissionCooldown int
	Instructions       []string
	Restrictions       []string
	Proofs             []models.ProofRequirement
}

type Service struct {
	db       TxBeginner
	repo     JobStore
	subs     SubmissionStore
	wallets  WalletOps
	ledger   LedgerWriter
	activity ActivityEmitter
}

func NewService(db TxBeginner, repo JobStore, subs SubmissionStore, wallets WalletOps, ledger LedgerWriter, activity ActivityEmitter) *Service {
	return &Service{db: db, repo: repo, subs: subs, wallets: wallets, ledger: ledger, activity: activity}
}

// Post reserves the job's total cost (workers * cost + 10% fee) from the
// client's balance into escrow and creates the job awaiting admin review.
func (s *Service) Post(ctx context.Context, clientID uuid.UUID, in PostInput) (*models.Job, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.WorkersNeeded <= 0 || in.CostPerWorker <= 0 {
		return nil, fmt.Errorf("%w: workers needed and cost per worker must be positive", ErrInvalidInput)
	}
	for _, p := range in.Proofs {
		switch p.Type {
		case models.ProofTypeText, models.ProofTypeLink, models.ProofTypeScreenshot:
		default:
			return nil, fmt.Errorf("%w: unknown proof type %q", ErrInvalidInput, p.Type)
		}
	}
	cooldown := in.SubmissionCooldown
	if cooldown <= 0 {
		cooldown = models.DefaultSubmissionCooldown
	}
	totalCost := money.TotalJobCost(in.WorkersNeeded, in.CostPerWorker)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.wallets.Ensure(ctx, tx, clientID); err != nil {
		return nil, err
	}
	if err := s.wallets.MoveToEscrow(ctx, tx, clientID, totalCost); err != nil {
		return nil, err
	}
	j := &models.Job{
		ID:                 uuid.New(),
		ClientID:           clientID,
		Title:              in.Title,
		Description:        in.Description,
		Status:             models.JobStatusPendingReview,
		CostPerWorker:      in.CostPerWorker,
		WorkersNeeded:      in.WorkersNeeded,
		TotalCost:          totalCost,
		RemainingBudget:    totalCost,
		SubmissionCooldown: cooldown,
		Instructions:       in.Instructions,
		Restrictions:       in.Restrictions,
		Proofs:             in.Proofs,
	}
	if err := s.repo.CreateTx(ctx, tx, j); err != nil {
		return nil, err
	}
	if err := s.ledger.Append(ctx, tx, &models.Transaction{
		UserID:      clientID,
		Amount:      -totalCost,
		Type:        models.TxTypeJobPosting,
		Status:      models.TxStatusCompleted,
		Description: "budget reserved for job " + j.Title,
		JobID:       &j.ID,
	}); err != nil {
		return nil, err
	}
	if err := s.activity.Emit(ctx, tx, clientID, models.ActivityJobPosted, map[string]any{
		"job_id": j.ID, "total_cost": totalCost,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// ApproveReview flips a pending_review job to open. No money moves.
func (s *Service) ApproveReview(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if err := s.repo.SetStatusTx(ctx, tx, jobID, []string{models.JobStatusPendingReview}, models.JobStatusOpen); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, j.ClientID, models.ActivityJobApproved, map[string]any{"job_id": jobID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RejectReview refunds the full reserved budget and rejects the job.
// Requires a non-empty reason.
func (s *Service) RejectReview(ctx context.Context, jobID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if err := s.repo.SetReviewRejectedTx(ctx, tx, jobID, reason); err != nil {
		return err
	}
	if err := s.wallets.ReleaseFromEscrow(ctx, tx, j.ClientID, j.TotalCost); err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, tx, &models.Transaction{
		UserID:      j.ClientID,
		Amount:      j.TotalCost,
		Type:        models.TxTypeAdjustment,
		Status:      models.TxStatusCompleted,
		Description: "job rejected in review: " + reason,
		JobID:       &jobID,
	}); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, j.ClientID, models.ActivityJobRejected, map[string]any{
		"job_id": jobID, "reason": reason,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Pause stops a job from receiving submissions. Owner or admin.
func (s *Service) Pause(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID uuid.UUID) error {
	return s.flipOwned(ctx, actorID, isAdmin, jobID,
		[]string{models.JobStatusOpen, models.JobStatusActive}, models.JobStatusPaused)
}

// Resume reopens a paused job.
func (s *Service) Resume(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID uuid.UUID) error {
	return s.flipOwned(ctx, actorID, isAdmin, jobID,
		[]string{models.JobStatusPaused}, models.JobStatusOpen)
}

func (s *Service) flipOwned(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID uuid.UUID, from []string, to string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if j.ClientID != actorID && !isAdmin {
		return ErrForbidden
	}
	if err := s.repo.SetStatusTx(ctx, tx, jobID, from, to); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateBudget recomputes the total cost from the new worker count and rate,
// moves the difference between balance and escrow, and shifts the remaining
// budget by the same delta. One transaction.
func (s *Service) UpdateBudget(ctx context.Context, clientID, jobID uuid.UUID, workersNeeded int, costPerWorker money.Cents) (*models.Job, error) {
	if workersNeeded <= 0 || costPerWorker <= 0 {
		return nil, fmt.Errorf("%w: workers needed and cost per worker must be positive", ErrInvalidInput)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if j.ClientID != clientID {
		return nil, ErrForbidden
	}
	switch j.Status {
	case models.JobStatusOpen, models.JobStatusActive, models.JobStatusPaused:
	default:
		return nil, ErrInvalidStatus
	}
	if workersNeeded < j.SubmissionsApproved+j.SubmissionsPending {
		return nil, ErrBelowCommitted
	}
	newTotal := money.TotalJobCost(workersNeeded, costPerWorker)
	delta := newTotal - j.TotalCost
	if delta > 0 {
		if err := s.wallets.MoveToEscrow(ctx, tx, clientID, delta); err != nil {
			return nil, err
		}
	} else if delta < 0 {
		if err := s.wallets.ReleaseFromEscrow(ctx, tx, clientID, -delta); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateBudgetTx(ctx, tx, jobID, workersNeeded, costPerWorker, newTotal, delta); err != nil {
		return nil, err
	}
	if delta != 0 {
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      clientID,
			Amount:      -delta,
			Type:        models.TxTypeAdjustment,
			Status:      models.TxStatusCompleted,
			Description: "job budget updated",
			JobID:       &jobID,
		}); err != nil {
			return nil, err
		}
	}
	if err := s.activity.Emit(ctx, tx, clientID, models.ActivityJobBudgetUpdated, map[string]any{
		"job_id": jobID, "total_cost": newTotal,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	j.WorkersNeeded = workersNeeded
	j.CostPerWorker = costPerWorker
	j.TotalCost = newTotal
	j.RemainingBudget += delta
	return j, nil
}

// Cancel resolves every outstanding submission — auto-approving and paying
// each one the remaining budget can cover — then refunds the remainder to the
// client and retires the job. Entirely one transaction.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if j.ClientID != actorID && !isAdmin {
		return ErrForbidden
	}
	if !j.Cancellable() {
		return ErrInvalidStatus
	}

	outstanding, err := s.subs.ListOutstandingForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	remaining := j.RemainingBudget
	approved, rejected := 0, 0
	for _, sub := range outstanding {
		if remaining < sub.Payout {
			if err := s.subs.ForceRejectTx(ctx, tx, sub.ID, "job cancelled"); err != nil {
				return err
			}
			rejected++
			continue
		}
		if err := s.subs.ForceApproveTx(ctx, tx, sub.ID); err != nil {
			return err
		}
		if err := s.wallets.CreditEarnings(ctx, tx, sub.WorkerID, sub.Payout); err != nil {
			return err
		}
		if err := s.wallets.PayoutFromEscrow(ctx, tx, j.ClientID, sub.Payout); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      sub.WorkerID,
			Amount:      sub.Payout,
			Type:        models.TxTypeEarning,
			Status:      models.TxStatusCompleted,
			Description: "submission auto-approved on job cancellation",
			JobID:       &jobID,
		}); err != nil {
			return err
		}
		if err := s.activity.Emit(ctx, tx, sub.WorkerID, models.ActivitySubmissionApproved, map[string]any{
			"job_id": jobID, "submission_id": sub.ID, "payout": sub.Payout,
		}); err != nil {
			return err
		}
		remaining -= sub.Payout
		approved++
	}
	if remaining > 0 {
		if err := s.wallets.ReleaseFromEscrow(ctx, tx, j.ClientID, remaining); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      j.ClientID,
			Amount:      remaining,
			Type:        models.TxTypeAdjustment,
			Status:      models.TxStatusCompleted,
			Description: "unused budget refunded on job cancellation",
			JobID:       &jobID,
		}); err != nil {
			return err
		}
	}
	if err := s.repo.FinalizeCancelTx(ctx, tx, jobID, approved, rejected); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, j.ClientID, models.ActivityJobCancelled, map[string]any{
		"job_id": jobID, "refunded": remaining, "auto_approved": approved,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete hard-deletes a job after refunding its remaining budget. Admin only;
// submissions cascade with the row.
func (s *Service) Delete(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, err := s.getForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if j.RemainingBudget > 0 {
		if err := s.wallets.ReleaseFromEscrow(ctx, tx, j.ClientID, j.RemainingBudget); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      j.ClientID,
			Amount:      j.RemainingBudget,
			Type:        models.TxTypeAdjustment,
			Status:      models.TxStatusCompleted,
			Description: "budget refunded on job deletion",
		}); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, j.ClientID, models.ActivityJobCancelled, map[string]any{
		"job_id": jobID, "deleted": true,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	j, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *Service) ListOpen(ctx context.Context) ([]*models.Job, error) {
	return s.repo.ListOpen(ctx)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Job, error) {
	return s.repo.ListByClient(ctx, clientID)
}

func (s *Service) ListPendingReview(ctx context.Context) ([]*models.Job, error) {
	return s.repo.ListPendingReview(ctx)
}

func (s *Service) getForUpdate(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (*models.Job, error) {
	j, err := s.repo.GetForUpdate(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}
