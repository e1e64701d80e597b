package submissions

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskpond/backend/internal/jobs"
	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
	"github.com/taskpond/backend/internal/wallet"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- in-memory wallets ---

type fakeWallet struct {
	balance money.Cents
	escrow  money.Cents
	earned  money.Cents
	spent   money.Cents
}

type fakeWallets struct {
	byUser map[uuid.UUID]*fakeWallet
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{byUser: make(map[uuid.UUID]*fakeWallet)}
}

func (f *fakeWallets) get(id uuid.UUID) *fakeWallet {
	w, ok := f.byUser[id]
	if !ok {
		w = &fakeWallet{}
		f.byUser[id] = w
	}
	return w
}

func (f *fakeWallets) CreditEarnings(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	w.balance += amount
	w.earned += amount
	return nil
}

func (f *fakeWallets) PayoutFromEscrow(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	if w.escrow < amount {
		return wallet.ErrInsufficientEscrow
	}
	w.escrow -= amount
	w.spent += amount
	return nil
}

func (f *fakeWallets) ReleaseFromEscrow(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	if w.escrow < amount {
		return wallet.ErrInsufficientEscrow
	}
	w.escrow -= amount
	w.balance += amount
	return nil
}

type fakeLedger struct {
	rows []*models.Transaction
}

func (f *fakeLedger) Append(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	f.rows = append(f.rows, t)
	return nil
}

type fakeActivity struct {
	emitted int
}

func (f *fakeActivity) Emit(context.Context, pgx.Tx, uuid.UUID, string, map[string]any) error {
	f.emitted++
	return nil
}

// --- in-memory job store enforcing slot and budget invariants ---

type fakeJobs struct {
	jobs map[uuid.UUID]*models.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[uuid.UUID]*models.Job)}
}

func (f *fakeJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return j, nil
}

func (f *fakeJobs) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Job, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeJobs) SetStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, from []string, to string) error {
	j := f.jobs[id]
	for _, s := range from {
		if j.Status == s {
			j.Status = to
			return nil
		}
	}
	return jobs.ErrInvalidStatus
}

func (f *fakeJobs) ReserveSlotTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	j := f.jobs[id]
	if j.SubmissionsApproved+j.SubmissionsPending >= j.WorkersNeeded {
		return jobs.ErrJobFull
	}
	j.SubmissionsPending++
	return nil
}

func (f *fakeJobs) ApplyApprovalTx(_ context.Context, _ pgx.Tx, id uuid.UUID, payout money.Cents) (*jobs.ApprovalCounters, error) {
	j := f.jobs[id]
	if j.RemainingBudget < payout {
		return nil, jobs.ErrInsufficientBudget
	}
	j.RemainingBudget -= payout
	j.SubmissionsApproved++
	j.SubmissionsPending--
	return &jobs.ApprovalCounters{
		Approved:        j.SubmissionsApproved,
		WorkersNeeded:   j.WorkersNeeded,
		RemainingBudget: j.RemainingBudget,
	}, nil
}

func (f *fakeJobs) ApplyRejectionTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	j := f.jobs[id]
	j.SubmissionsRejected++
	j.SubmissionsPending--
	return nil
}

func (f *fakeJobs) ApplyResubmitRequestTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	f.jobs[id].SubmissionsPending--
	return nil
}

func (f *fakeJobs) ApplyResubmitTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	f.jobs[id].SubmissionsPending++
	return nil
}

func (f *fakeJobs) ApplyExpiryTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	f.jobs[id].SubmissionsRejected++
	return nil
}

func (f *fakeJobs) CompleteTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	j := f.jobs[id]
	j.Status = models.JobStatusCompleted
	j.RemainingBudget = 0
	return nil
}

// --- in-memory submission store ---

type fakeSubs struct {
	subs map[uuid.UUID]*models.Submission
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{subs: make(map[uuid.UUID]*models.Submission)}
}

func (f *fakeSubs) CreateTx(_ context.Context, _ pgx.Tx, s *models.Submission) error {
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

func (f *fakeSubs) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubs) LatestByWorkerTx(_ context.Context, _ pgx.Tx, jobID, workerID uuid.UUID) (*models.Submission, error) {
	var latest *models.Submission
	for _, s := range f.subs {
		if s.JobID != jobID || s.WorkerID != workerID {
			continue
		}
		if latest == nil || s.SubmittedAt.After(latest.SubmittedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeSubs) Transition(_ context.Context, _ pgx.Tx, id uuid.UUID, from, to string) (bool, error) {
	s, ok := f.subs[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeSubs) SetRejectedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	s, ok := f.subs[id]
	if !ok || s.Status != models.SubmissionPending {
		return false, nil
	}
	s.Status = models.SubmissionRejected
	s.RejectionReason = &reason
	s.RejectionAt = &at
	return true, nil
}

func (f *fakeSubs) SetReworkRequestedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	s, ok := f.subs[id]
	if !ok || s.Status != models.SubmissionPending {
		return false, nil
	}
	s.Status = models.SubmissionResubmitPending
	s.RejectionReason = &reason
	s.RejectionAt = &at
	return true, nil
}

func (f *fakeSubs) SetResubmittedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, proofs []models.Proof, at time.Time) (bool, error) {
	s, ok := f.subs[id]
	if !ok || s.Status != models.SubmissionResubmitPending {
		return false, nil
	}
	s.Status = models.SubmissionPending
	s.Proofs = proofs
	s.SubmittedAt = at
	s.SubmissionCount++
	return true, nil
}

func (f *fakeSubs) ListDuePending(_ context.Context, cutoff time.Time) ([]DueSubmission, error) {
	var due []DueSubmission
	for _, s := range f.subs {
		if s.Status == models.SubmissionPending && !s.SubmittedAt.After(cutoff) {
			due = append(due, DueSubmission{ID: s.ID, JobID: s.JobID})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID.String() < due[j].ID.String() })
	return due, nil
}

func (f *fakeSubs) ListByJob(_ context.Context, jobID uuid.UUID) ([]*models.Submission, error) {
	var list []*models.Submission
	for _, s := range f.subs {
		if s.JobID == jobID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (f *fakeSubs) ListByWorker(_ context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	var list []*models.Submission
	for _, s := range f.subs {
		if s.WorkerID == workerID {
			list = append(list, s)
		}
	}
	return list, nil
}

// ---------------------------------------------------------------------------

type fixture struct {
	svc     *Service
	jobs    *fakeJobs
	subs    *fakeSubs
	wallets *fakeWallets
	ledger  *fakeLedger

	client uuid.UUID
	jobID  uuid.UUID
}

func newFixture(workersNeeded int, costPerWorker, remaining money.Cents) *fixture {
	js := newFakeJobs()
	ss := newFakeSubs()
	ws := newFakeWallets()
	led := &fakeLedger{}
	svc := NewService(mockPool{}, ss, js, ws, led, &fakeActivity{}, nil)

	client := uuid.New()
	jobID := uuid.New()
	js.jobs[jobID] = &models.Job{
		ID:                 jobID,
		ClientID:           client,
		Status:             models.JobStatusOpen,
		CostPerWorker:      costPerWorker,
		WorkersNeeded:      workersNeeded,
		TotalCost:          money.TotalJobCost(workersNeeded, costPerWorker),
		RemainingBudget:    remaining,
		SubmissionCooldown: models.DefaultSubmissionCooldown,
	}
	ws.get(client).escrow = remaining

	return &fixture{svc: svc, jobs: js, subs: ss, wallets: ws, ledger: led, client: client, jobID: jobID}
}

func proofs() []models.Proof {
	return []models.Proof{{Type: models.ProofTypeLink, Value: "https://example.com/done"}}
}

func (fx *fixture) seedPending(workerID uuid.UUID, submittedAt time.Time) *models.Submission {
	sub := &models.Submission{
		ID:          uuid.New(),
		JobID:       fx.jobID,
		WorkerID:    workerID,
		ClientID:    fx.client,
		Payout:      fx.jobs.jobs[fx.jobID].CostPerWorker,
		Status:      models.SubmissionPending,
		Proofs:      proofs(),
		SubmittedAt: submittedAt,
	}
	fx.subs.subs[sub.ID] = sub
	fx.jobs.jobs[fx.jobID].SubmissionsPending++
	return sub
}

func TestCreateReservesSlotAndActivates(t *testing.T) {
	fx := newFixture(2, 100, 220)
	worker := uuid.New()

	sub, err := fx.svc.Create(context.Background(), worker, fx.jobID, proofs())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.Status != models.SubmissionPending || sub.Payout != 100 {
		t.Errorf("submission = status %q payout %d, want pending/100", sub.Status, sub.Payout)
	}
	j := fx.jobs.jobs[fx.jobID]
	if j.SubmissionsPending != 1 {
		t.Errorf("pending = %d, want 1", j.SubmissionsPending)
	}
	if j.Status != models.JobStatusActive {
		t.Errorf("job status = %q, want active", j.Status)
	}
}

func TestCreateJobFull(t *testing.T) {
	fx := newFixture(1, 100, 110)
	fx.jobs.jobs[fx.jobID].SubmissionsApproved = 1

	_, err := fx.svc.Create(context.Background(), uuid.New(), fx.jobID, proofs())
	if !errors.Is(err, jobs.ErrJobFull) {
		t.Fatalf("err = %v, want job full", err)
	}
}

func TestCreateOwnJob(t *testing.T) {
	fx := newFixture(2, 100, 220)

	_, err := fx.svc.Create(context.Background(), fx.client, fx.jobID, proofs())
	if !errors.Is(err, ErrOwnJob) {
		t.Fatalf("err = %v, want own job", err)
	}
}

func TestCreateCooldown(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	now := time.Now()
	fx.svc.now = func() time.Time { return now }

	// A still-open submission always blocks, regardless of cooldown.
	open := fx.seedPending(worker, now.Add(-2*time.Hour))
	if _, err := fx.svc.Create(context.Background(), worker, fx.jobID, proofs()); !errors.Is(err, ErrOpenSubmission) {
		t.Fatalf("open submission: err = %v, want open submission", err)
	}

	// Resolved 10 minutes ago with a 1 hour cooldown: still cooling down.
	open.Status = models.SubmissionRejected
	open.SubmittedAt = now.Add(-10 * time.Minute)
	if _, err := fx.svc.Create(context.Background(), worker, fx.jobID, proofs()); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("cooldown: err = %v, want cooldown active", err)
	}

	// Past the cooldown the worker may submit again.
	open.SubmittedAt = now.Add(-2 * time.Hour)
	if _, err := fx.svc.Create(context.Background(), worker, fx.jobID, proofs()); err != nil {
		t.Fatalf("past cooldown: %v", err)
	}
}

func TestApprovePaysExactlyOnce(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())

	if err := fx.svc.Approve(context.Background(), fx.client, false, fx.jobID, sub.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	ww := fx.wallets.get(worker)
	if ww.balance != 100 || ww.earned != 100 {
		t.Errorf("worker wallet = balance %d earned %d, want 100/100", ww.balance, ww.earned)
	}
	cw := fx.wallets.get(fx.client)
	if cw.escrow != 230 || cw.spent != 100 {
		t.Errorf("client wallet = escrow %d spent %d, want 230/100", cw.escrow, cw.spent)
	}
	if got := fx.jobs.jobs[fx.jobID].RemainingBudget; got != 230 {
		t.Errorf("remaining budget = %d, want 230", got)
	}

	// Second approval must not move money again.
	err := fx.svc.Approve(context.Background(), fx.client, false, fx.jobID, sub.ID)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second approve: err = %v, want already processed", err)
	}
	if ww.balance != 100 {
		t.Errorf("worker paid twice: balance %d", ww.balance)
	}
}

func TestApproveForbiddenForNonOwner(t *testing.T) {
	fx := newFixture(3, 100, 330)
	sub := fx.seedPending(uuid.New(), time.Now())

	err := fx.svc.Approve(context.Background(), uuid.New(), false, fx.jobID, sub.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestApproveFillsLastSlotAndCompletes(t *testing.T) {
	fx := newFixture(1, 100, 110)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())

	if err := fx.svc.Approve(context.Background(), fx.client, false, fx.jobID, sub.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	j := fx.jobs.jobs[fx.jobID]
	if j.Status != models.JobStatusCompleted || j.RemainingBudget != 0 {
		t.Errorf("job = status %q remaining %d, want completed/0", j.Status, j.RemainingBudget)
	}
	// The 10 cent fee remainder goes back to the client.
	cw := fx.wallets.get(fx.client)
	if cw.balance != 10 || cw.escrow != 0 || cw.spent != 100 {
		t.Errorf("client wallet = balance %d escrow %d spent %d, want 10/0/100", cw.balance, cw.escrow, cw.spent)
	}
}

func TestApproveInsufficientBudget(t *testing.T) {
	fx := newFixture(3, 100, 50)
	sub := fx.seedPending(uuid.New(), time.Now())

	err := fx.svc.Approve(context.Background(), fx.client, false, fx.jobID, sub.ID)
	if !errors.Is(err, jobs.ErrInsufficientBudget) {
		t.Fatalf("err = %v, want insufficient budget", err)
	}
}

func TestRejectIsIdempotent(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())

	if err := fx.svc.Reject(context.Background(), fx.client, false, fx.jobID, sub.ID, "blurry proof"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	j := fx.jobs.jobs[fx.jobID]
	if j.SubmissionsRejected != 1 || j.SubmissionsPending != 0 {
		t.Errorf("counters = rejected %d pending %d, want 1/0", j.SubmissionsRejected, j.SubmissionsPending)
	}
	// The reserved payout stays in escrow for another worker.
	if got := fx.wallets.get(fx.client).escrow; got != 330 {
		t.Errorf("client escrow = %d, want 330", got)
	}

	err := fx.svc.Reject(context.Background(), fx.client, false, fx.jobID, sub.ID, "again")
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second reject: err = %v, want already processed", err)
	}
	if j.SubmissionsRejected != 1 {
		t.Errorf("rejection double-counted: %d", j.SubmissionsRejected)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	fx := newFixture(3, 100, 330)
	sub := fx.seedPending(uuid.New(), time.Now())

	err := fx.svc.Reject(context.Background(), fx.client, false, fx.jobID, sub.ID, "")
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("err = %v, want reason required", err)
	}
}

func TestResubmitWithinWindow(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())
	now := time.Now()
	fx.svc.now = func() time.Time { return now }

	if err := fx.svc.RequestRework(context.Background(), fx.client, false, fx.jobID, sub.ID, "add a screenshot"); err != nil {
		t.Fatalf("RequestRework: %v", err)
	}
	if got := fx.jobs.jobs[fx.jobID].SubmissionsPending; got != 0 {
		t.Errorf("pending after rework request = %d, want 0", got)
	}

	// Just inside the 12 hour window.
	fx.svc.now = func() time.Time { return now.Add(models.ResubmissionWindow - time.Minute) }
	updated, err := fx.svc.Resubmit(context.Background(), worker, fx.jobID, sub.ID, proofs())
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	if updated.Status != models.SubmissionPending || updated.SubmissionCount != 1 {
		t.Errorf("resubmitted = status %q count %d, want pending/1", updated.Status, updated.SubmissionCount)
	}
	if got := fx.jobs.jobs[fx.jobID].SubmissionsPending; got != 1 {
		t.Errorf("pending after resubmit = %d, want 1", got)
	}
}

func TestResubmitExpired(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())
	now := time.Now()
	fx.svc.now = func() time.Time { return now }

	if err := fx.svc.RequestRework(context.Background(), fx.client, false, fx.jobID, sub.ID, "wrong link"); err != nil {
		t.Fatalf("RequestRework: %v", err)
	}

	fx.svc.now = func() time.Time { return now.Add(models.ResubmissionWindow + time.Minute) }
	_, err := fx.svc.Resubmit(context.Background(), worker, fx.jobID, sub.ID, proofs())
	if !errors.Is(err, ErrResubmissionExpired) {
		t.Fatalf("err = %v, want resubmission expired", err)
	}
	// The expiry outcome is terminal and counted.
	if got := fx.subs.subs[sub.ID].Status; got != models.SubmissionRejected {
		t.Errorf("status = %q, want rejected", got)
	}
	if got := fx.jobs.jobs[fx.jobID].SubmissionsRejected; got != 1 {
		t.Errorf("rejected counter = %d, want 1", got)
	}
}

func TestResubmitWrongWorker(t *testing.T) {
	fx := newFixture(3, 100, 330)
	worker := uuid.New()
	sub := fx.seedPending(worker, time.Now())
	if err := fx.svc.RequestRework(context.Background(), fx.client, false, fx.jobID, sub.ID, "fix"); err != nil {
		t.Fatalf("RequestRework: %v", err)
	}

	_, err := fx.svc.Resubmit(context.Background(), uuid.New(), fx.jobID, sub.ID, proofs())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestAutoApproveDue(t *testing.T) {
	fx := newFixture(5, 100, 550)
	now := time.Now()
	fx.svc.now = func() time.Time { return now }

	overdueA := fx.seedPending(uuid.New(), now.Add(-25*time.Hour))
	overdueB := fx.seedPending(uuid.New(), now.Add(-30*time.Hour))
	fresh := fx.seedPending(uuid.New(), now.Add(-1*time.Hour))

	n, err := fx.svc.AutoApproveDue(context.Background())
	if err != nil {
		t.Fatalf("AutoApproveDue: %v", err)
	}
	if n != 2 {
		t.Fatalf("approved = %d, want 2", n)
	}
	for _, id := range []uuid.UUID{overdueA.ID, overdueB.ID} {
		if got := fx.subs.subs[id].Status; got != models.SubmissionApproved {
			t.Errorf("overdue submission %s = %q, want approved", id, got)
		}
	}
	if got := fx.subs.subs[fresh.ID].Status; got != models.SubmissionPending {
		t.Errorf("fresh submission = %q, want pending", got)
	}
	if got := fx.wallets.get(overdueA.WorkerID).earned; got != 100 {
		t.Errorf("worker A earned = %d, want 100", got)
	}
	if got := fx.jobs.jobs[fx.jobID].RemainingBudget; got != 350 {
		t.Errorf("remaining budget = %d, want 350", got)
	}
}

func TestAutoApproveSkipsUnderfundedJob(t *testing.T) {
	fx := newFixture(5, 100, 100)
	now := time.Now()
	fx.svc.now = func() time.Time { return now }

	paid := fx.seedPending(uuid.New(), now.Add(-26*time.Hour))
	starved := fx.seedPending(uuid.New(), now.Add(-25*time.Hour))
	// Force the ordering: the older one drains the budget first.
	if paid.ID.String() > starved.ID.String() {
		paid, starved = starved, paid
	}

	n, err := fx.svc.AutoApproveDue(context.Background())
	if err != nil {
		t.Fatalf("AutoApproveDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("approved = %d, want 1", n)
	}
	if got := fx.wallets.get(paid.WorkerID).earned; got != 100 {
		t.Errorf("funded worker earned = %d, want 100", got)
	}
	if got := fx.wallets.get(starved.WorkerID).earned; got != 0 {
		t.Errorf("starved worker earned = %d, want 0", got)
	}
	if got := fx.jobs.jobs[fx.jobID].RemainingBudget; got != 0 {
		t.Errorf("remaining budget = %d, want 0", got)
	}
}
