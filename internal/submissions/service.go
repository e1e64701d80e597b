package submissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpond/backend/internal/jobs"
	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
)

var (
	// ErrNotFound is returned when the submission does not exist under the job.
	ErrNotFound = errors.New("submission not found")
	// ErrForbidden is returned when the caller may not act on the submission.
	ErrForbidden = errors.New("not allowed to act on this submission")
	// ErrAlreadyProcessed is returned when the submission left the expected
	// state before the operation ran. Payouts never fire twice because of it.
	ErrAlreadyProcessed = errors.New("submission already processed")
	// ErrOwnJob is returned when a client submits to their own job.
	ErrOwnJob = errors.New("cannot submit to your own job")
	// ErrJobNotOpen is returned when the job is not accepting submissions.
	ErrJobNotOpen = errors.New("job is not accepting submissions")
	// ErrCooldownActive is returned while the per-worker cooldown since the
	// last submission has not elapsed.
	ErrCooldownActive = errors.New("submission cooldown has not elapsed")
	// ErrOpenSubmission is returned when the worker already has an unresolved
	// submission on the job.
	ErrOpenSubmission = errors.New("an unresolved submission for this job already exists")
	// ErrResubmissionExpired is returned when the rework deadline has passed.
	ErrResubmissionExpired = errors.New("resubmission window has expired")
	// ErrReasonRequired is returned when a rejection or rework request carries
	// no reason.
	ErrReasonRequired = errors.New("a reason is required")
	// ErrInvalidInput wraps request-shape validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// TxBeginner opens a database transaction. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// JobStore is the job-side surface of the submission lifecycle: slot and
// counter bookkeeping applied inside the same transaction as the submission
// state flip.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []string, to string) error
	ReserveSlotTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ApplyApprovalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, payout money.Cents) (*jobs.ApprovalCounters, error)
	ApplyRejectionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ApplyResubmitRequestTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ApplyResubmitTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ApplyExpiryTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	CompleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// WalletOps is the subset of wallet delta operations payouts need.
type WalletOps interface {
	CreditEarnings(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	PayoutFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	ReleaseFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
}

// LedgerWriter appends audit rows inside the caller's transaction.
type LedgerWriter interface {
	Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// ActivityEmitter records feed entries inside the caller's transaction.
type ActivityEmitter interface {
	Emit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind string, payload map[string]any) error
}

// SubmissionStore is the repository surface the service needs.
type SubmissionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error)
	LatestByWorkerTx(ctx context.Context, tx pgx.Tx, jobID, workerID uuid.UUID) (*models.Submission, error)
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) (bool, error)
	SetRejectedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error)
	SetReworkRequestedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error)
	SetResubmittedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, proofs []models.Proof, at time.Time) (bool, error)
	ListDuePending(ctx context.Context, cutoff time.Time) ([]DueSubmission, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Submission, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error)
}

type Service struct {
	db       TxBeginner
	repo     SubmissionStore
	jobs     JobStore
	wallets  WalletOps
	ledger   LedgerWriter
	activity ActivityEmitter
	log      *slog.Logger

	now func() time.Time
}

func NewService(db TxBeginner, repo SubmissionStore, jobStore JobStore, wallets WalletOps, ledger LedgerWriter, activity ActivityEmitter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:       db,
		repo:     repo,
		jobs:     jobStore,
		wallets:  wallets,
		ledger:   ledger,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

// Create records a worker's submission against an open job. The slot reserve
// enforces approved+pending < workers_needed inside the same transaction, and
// the cooldown is measured against the worker's latest submission to the job.
func (s *Service) Create(ctx context.Context, workerID, jobID uuid.UUID, proofs []models.Proof) (*models.Submission, error) {
	if err := validateProofs(proofs); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	j, err := s.jobForUpdate(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if j.ClientID == workerID {
		return nil, ErrOwnJob
	}
	if !j.AcceptsSubmissions() {
		return nil, ErrJobNotOpen
	}
	last, err := s.repo.LatestByWorkerTx(ctx, tx, jobID, workerID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		switch last.Status {
		case models.SubmissionPending, models.SubmissionResubmitPending:
			return nil, ErrOpenSubmission
		}
		cooldown := time.Duration(j.SubmissionCooldown) * time.Second
		if s.now().Sub(last.SubmittedAt) < cooldown {
			return nil, ErrCooldownActive
		}
	}
	if err := s.jobs.ReserveSlotTx(ctx, tx, jobID); err != nil {
		return nil, err
	}
	if j.Status == models.JobStatusOpen {
		if err := s.jobs.SetStatusTx(ctx, tx, jobID, []string{models.JobStatusOpen}, models.JobStatusActive); err != nil {
			return nil, err
		}
	}
	sub := &models.Submission{
		ID:          uuid.New(),
		JobID:       jobID,
		WorkerID:    workerID,
		ClientID:    j.ClientID,
		Payout:      j.CostPerWorker,
		Status:      models.SubmissionPending,
		Proofs:      proofs,
		SubmittedAt: s.now(),
	}
	if err := s.repo.CreateTx(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := s.activity.Emit(ctx, tx, j.ClientID, models.ActivitySubmissionCreated, map[string]any{
		"job_id": jobID, "submission_id": sub.ID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// Approve pays the worker and debits the job escrow, exactly once. When the
// approval fills the last worker slot the job completes and any unused budget
// goes back to the client, all in the same transaction.
func (s *Service) Approve(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID, subID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, sub, err := s.pairForUpdate(ctx, tx, jobID, subID)
	if err != nil {
		return err
	}
	if j.ClientID != actorID && !isAdmin {
		return ErrForbidden
	}
	if err := s.approveLocked(ctx, tx, j, sub, "submission approved"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reject terminally rejects a pending submission. The reserved payout stays in
// job escrow, reusable by another worker's submission.
func (s *Service) Reject(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID, subID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, sub, err := s.pairForUpdate(ctx, tx, jobID, subID)
	if err != nil {
		return err
	}
	if j.ClientID != actorID && !isAdmin {
		return ErrForbidden
	}
	ok, err := s.repo.SetRejectedTx(ctx, tx, subID, reason, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyProcessed
	}
	if err := s.jobs.ApplyRejectionTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, sub.WorkerID, models.ActivitySubmissionRejected, map[string]any{
		"job_id": jobID, "submission_id": subID, "reason": reason,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RequestRework sends a pending submission back to the worker and opens the
// resubmission window.
func (s *Service) RequestRework(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID, subID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, sub, err := s.pairForUpdate(ctx, tx, jobID, subID)
	if err != nil {
		return err
	}
	if j.ClientID != actorID && !isAdmin {
		return ErrForbidden
	}
	ok, err := s.repo.SetReworkRequestedTx(ctx, tx, subID, reason, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyProcessed
	}
	if err := s.jobs.ApplyResubmitRequestTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, sub.WorkerID, models.ActivityResubmissionRequested, map[string]any{
		"job_id": jobID, "submission_id": subID, "reason": reason,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Resubmit returns a reworked submission to pending with fresh proofs. Past
// the window the submission is terminally rejected instead, and that outcome
// commits.
func (s *Service) Resubmit(ctx context.Context, workerID, jobID, subID uuid.UUID, proofs []models.Proof) (*models.Submission, error) {
	if err := validateProofs(proofs); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub, err := s.subForUpdate(ctx, tx, subID)
	if err != nil {
		return nil, err
	}
	if sub.JobID != jobID {
		return nil, ErrNotFound
	}
	if sub.WorkerID != workerID {
		return nil, ErrForbidden
	}
	if sub.Status != models.SubmissionResubmitPending {
		return nil, ErrAlreadyProcessed
	}
	if sub.RejectionAt == nil || s.now().After(sub.RejectionAt.Add(models.ResubmissionWindow)) {
		if _, err := s.repo.Transition(ctx, tx, subID, models.SubmissionResubmitPending, models.SubmissionRejected); err != nil {
			return nil, err
		}
		if err := s.jobs.ApplyExpiryTx(ctx, tx, jobID); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, ErrResubmissionExpired
	}
	now := s.now()
	ok, err := s.repo.SetResubmittedTx(ctx, tx, subID, proofs, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyProcessed
	}
	if err := s.jobs.ApplyResubmitTx(ctx, tx, jobID); err != nil {
		return nil, err
	}
	if err := s.activity.Emit(ctx, tx, sub.ClientID, models.ActivitySubmissionCreated, map[string]any{
		"job_id": jobID, "submission_id": subID, "resubmitted": true,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	sub.Status = models.SubmissionPending
	sub.Proofs = proofs
	sub.SubmittedAt = now
	sub.SubmissionCount++
	return sub, nil
}

// AutoApproveDue force-approves every submission pending longer than the
// review window. Each submission runs in its own transaction so one failure
// cannot hold back the rest; skipped ones are logged and retried next sweep.
func (s *Service) AutoApproveDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListDuePending(ctx, s.now().Add(-models.AutoApproveAfter))
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, d := range due {
		if err := s.autoApprove(ctx, d); err != nil {
			if errors.Is(err, ErrAlreadyProcessed) || errors.Is(err, ErrNotFound) {
				continue
			}
			s.log.Warn("auto-approve skipped",
				"submission_id", d.ID, "job_id", d.JobID, "error", err)
			continue
		}
		approved++
	}
	return approved, nil
}

func (s *Service) autoApprove(ctx context.Context, d DueSubmission) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	j, sub, err := s.pairForUpdate(ctx, tx, d.JobID, d.ID)
	if err != nil {
		return err
	}
	if sub.Status != models.SubmissionPending {
		return ErrAlreadyProcessed
	}
	if err := s.approveLocked(ctx, tx, j, sub, "submission auto-approved after review window"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// approveLocked applies the approval side effects against already-locked job
// and submission rows. The pending→approved flip is the idempotency gate: a
// second caller finds no pending row and stops before any money moves.
func (s *Service) approveLocked(ctx context.Context, tx pgx.Tx, j *models.Job, sub *models.Submission, desc string) error {
	ok, err := s.repo.Transition(ctx, tx, sub.ID, models.SubmissionPending, models.SubmissionApproved)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyProcessed
	}
	counters, err := s.jobs.ApplyApprovalTx(ctx, tx, j.ID, sub.Payout)
	if err != nil {
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
		Description: desc,
		JobID:       &j.ID,
	}); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, sub.WorkerID, models.ActivitySubmissionApproved, map[string]any{
		"job_id": j.ID, "submission_id": sub.ID, "payout": sub.Payout,
	}); err != nil {
		return err
	}
	if counters.Approved < counters.WorkersNeeded {
		return nil
	}
	if counters.RemainingBudget > 0 {
		if err := s.wallets.ReleaseFromEscrow(ctx, tx, j.ClientID, counters.RemainingBudget); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      j.ClientID,
			Amount:      counters.RemainingBudget,
			Type:        models.TxTypeAdjustment,
			Status:      models.TxStatusCompleted,
			Description: "unused budget refunded on job completion",
			JobID:       &j.ID,
		}); err != nil {
			return err
		}
	}
	return s.jobs.CompleteTx(ctx, tx, j.ID)
}

// ListByJob returns a job's submissions to its owner or an admin.
func (s *Service) ListByJob(ctx context.Context, actorID uuid.UUID, isAdmin bool, jobID uuid.UUID) ([]*models.Submission, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrNotFound
		}
		return nil, err
	}
	if j.ClientID != actorID && !isAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListByJob(ctx, jobID)
}

// ListMine returns the worker's own submissions.
func (s *Service) ListMine(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	return s.repo.ListByWorker(ctx, workerID)
}

func (s *Service) pairForUpdate(ctx context.Context, tx pgx.Tx, jobID, subID uuid.UUID) (*models.Job, *models.Submission, error) {
	j, err := s.jobForUpdate(ctx, tx, jobID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := s.subForUpdate(ctx, tx, subID)
	if err != nil {
		return nil, nil, err
	}
	if sub.JobID != jobID {
		return nil, nil, ErrNotFound
	}
	return j, sub, nil
}

func (s *Service) jobForUpdate(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (*models.Job, error) {
	j, err := s.jobs.GetForUpdate(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *Service) subForUpdate(ctx context.Context, tx pgx.Tx, subID uuid.UUID) (*models.Submission, error) {
	sub, err := s.repo.GetForUpdate(ctx, tx, subID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func validateProofs(proofs []models.Proof) error {
	if len(proofs) == 0 {
		return fmt.Errorf("%w: at least one proof is required", ErrInvalidInput)
	}
	for _, p := range proofs {
		switch p.Type {
		case models.ProofTypeText, models.ProofTypeLink, models.ProofTypeScreenshot:
		default:
			return fmt.Errorf("%w: unknown proof type %q", ErrInvalidInput, p.Type)
		}
		if p.Value == "" {
			return fmt.Errorf("%w: proof value is required", ErrInvalidInput)
		}
	}
	return nil
}
