package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

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

func (f *fakeWallets) Ensure(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	f.get(id)
	return nil
}

func (f *fakeWallets) Credit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	f.get(id).balance += amount
	return nil
}

func (f *fakeWallets) Debit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	if w.balance < amount {
		return wallet.ErrInsufficientFunds
	}
	w.balance -= amount
	return nil
}

func (f *fakeWallets) MoveToEscrow(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	if w.balance < amount {
		return wallet.ErrInsufficientFunds
	}
	w.balance -= amount
	w.escrow += amount
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

func (f *fakeWallets) WithdrawFromEscrow(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents) error {
	w := f.get(id)
	if w.escrow < amount {
		return wallet.ErrInsufficientEscrow
	}
	w.escrow -= amount
	return nil
}

// --- in-memory ledger tracking reconciliation ---

type fakeLedger struct {
	rows map[uuid.UUID]*models.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[uuid.UUID]*models.Transaction)}
}

func (f *fakeLedger) Append(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	f.rows[id].Status = status
	return nil
}

func (f *fakeLedger) Reconcile(_ context.Context, _ pgx.Tx, id uuid.UUID, amount money.Cents, status string) error {
	f.rows[id].Amount = amount
	f.rows[id].Status = status
	return nil
}

func (f *fakeLedger) MarkReversed(_ context.Context, _ pgx.Tx, id uuid.UUID, description string) error {
	f.rows[id].Status = models.TxStatusRejected
	f.rows[id].Type = models.TxTypeAdjustment
	f.rows[id].Description = description
	return nil
}

func (f *fakeLedger) byType(txType string) []*models.Transaction {
	var list []*models.Transaction
	for _, t := range f.rows {
		if t.Type == txType {
			list = append(list, t)
		}
	}
	return list
}

type fakeActivity struct{}

func (fakeActivity) Emit(context.Context, pgx.Tx, uuid.UUID, string, map[string]any) error {
	return nil
}

// --- in-memory request store ---

type fakeStore struct {
	deposits    map[uuid.UUID]*models.DepositRequest
	withdrawals map[uuid.UUID]*models.WithdrawalRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deposits:    make(map[uuid.UUID]*models.DepositRequest),
		withdrawals: make(map[uuid.UUID]*models.WithdrawalRequest),
	}
}

func (f *fakeStore) CreateDepositTx(_ context.Context, _ pgx.Tx, d *models.DepositRequest) error {
	cp := *d
	f.deposits[d.ID] = &cp
	return nil
}

func (f *fakeStore) GetDepositForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.DepositRequest, error) {
	d, ok := f.deposits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) ResolveDepositTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, amount int64) (bool, error) {
	d, ok := f.deposits[id]
	if !ok || d.Status != models.RequestPending {
		return false, nil
	}
	d.Status = status
	d.Amount = money.Cents(amount)
	return true, nil
}

func (f *fakeStore) CreateWithdrawalTx(_ context.Context, _ pgx.Tx, wd *models.WithdrawalRequest) error {
	cp := *wd
	f.withdrawals[wd.ID] = &cp
	return nil
}

func (f *fakeStore) GetWithdrawalForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	wd, ok := f.withdrawals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *wd
	return &cp, nil
}

func (f *fakeStore) ResolveWithdrawalTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) (bool, error) {
	wd, ok := f.withdrawals[id]
	if !ok || wd.Status != models.RequestPending {
		return false, nil
	}
	wd.Status = status
	return true, nil
}

func (f *fakeStore) ListDeposits(context.Context, string) ([]*models.DepositRequest, error) {
	return nil, nil
}
func (f *fakeStore) ListWithdrawals(context.Context, string) ([]*models.WithdrawalRequest, error) {
	return nil, nil
}
func (f *fakeStore) ListMethods(context.Context, bool) ([]*models.PaymentMethod, error) {
	return nil, nil
}
func (f *fakeStore) CreateMethod(context.Context, *models.PaymentMethod) error { return nil }
func (f *fakeStore) SetMethodActive(context.Context, uuid.UUID, bool) error    { return nil }

// ---------------------------------------------------------------------------

func newTestService(minWithdrawal money.Cents) (*Service, *fakeStore, *fakeWallets, *fakeLedger) {
	store := newFakeStore()
	wallets := newFakeWallets()
	led := newFakeLedger()
	svc := NewService(mockPool{}, store, wallets, led, fakeActivity{}, minWithdrawal)
	return svc, store, wallets, led
}

func TestRequestDepositCreditsOptimistically(t *testing.T) {
	svc, store, wallets, led := newTestService(1000)
	user := uuid.New()

	d, err := svc.RequestDeposit(context.Background(), user, 500, "bank")
	if err != nil {
		t.Fatalf("RequestDeposit: %v", err)
	}
	if got := wallets.get(user).balance; got != 500 {
		t.Errorf("balance = %d, want 500", got)
	}
	if d.Status != models.RequestPending {
		t.Errorf("request status = %q, want pending", d.Status)
	}
	row := led.rows[d.TransactionID]
	if row == nil || row.Status != models.TxStatusUnverified || row.Amount != 500 {
		t.Errorf("ledger row = %+v, want unverified +500", row)
	}
	if len(store.deposits) != 1 {
		t.Errorf("deposits stored = %d, want 1", len(store.deposits))
	}
}

func TestVerifyDepositReconcilesShortfall(t *testing.T) {
	svc, store, wallets, led := newTestService(1000)
	user := uuid.New()

	d, err := svc.RequestDeposit(context.Background(), user, 500, "bank")
	if err != nil {
		t.Fatalf("RequestDeposit: %v", err)
	}

	// Admin confirms only 450 arrived.
	if err := svc.VerifyDeposit(context.Background(), d.ID, 450); err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
	if got := wallets.get(user).balance; got != 450 {
		t.Errorf("balance = %d, want 450", got)
	}
	if got := store.deposits[d.ID]; got.Status != models.RequestApproved || got.Amount != 450 {
		t.Errorf("request = %+v, want approved at 450", got)
	}
	row := led.rows[d.TransactionID]
	if row.Amount != 450 || row.Status != models.TxStatusApproved {
		t.Errorf("deposit row = %+v, want approved at 450", row)
	}
	adj := led.byType(models.TxTypeDepositAdjustment)
	if len(adj) != 1 || adj[0].Amount != -50 {
		t.Errorf("adjustment rows = %+v, want one at -50", adj)
	}
}

func TestVerifyDepositExactAmount(t *testing.T) {
	svc, _, wallets, led := newTestService(1000)
	user := uuid.New()

	d, _ := svc.RequestDeposit(context.Background(), user, 500, "bank")
	if err := svc.VerifyDeposit(context.Background(), d.ID, 500); err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
	if got := wallets.get(user).balance; got != 500 {
		t.Errorf("balance = %d, want 500", got)
	}
	if adj := led.byType(models.TxTypeDepositAdjustment); len(adj) != 0 {
		t.Errorf("no adjustment expected, got %+v", adj)
	}
}

func TestVerifyDepositTwice(t *testing.T) {
	svc, _, _, _ := newTestService(1000)
	user := uuid.New()

	d, _ := svc.RequestDeposit(context.Background(), user, 500, "bank")
	if err := svc.VerifyDeposit(context.Background(), d.ID, 500); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if err := svc.VerifyDeposit(context.Background(), d.ID, 500); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second verify: err = %v, want already reviewed", err)
	}
}

func TestRejectDepositReversesCredit(t *testing.T) {
	svc, _, wallets, led := newTestService(1000)
	user := uuid.New()

	d, _ := svc.RequestDeposit(context.Background(), user, 500, "bank")
	if err := svc.RejectDeposit(context.Background(), d.ID, "no transfer received"); err != nil {
		t.Fatalf("RejectDeposit: %v", err)
	}
	if got := wallets.get(user).balance; got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
	row := led.rows[d.TransactionID]
	if row.Status != models.TxStatusRejected || row.Type != models.TxTypeAdjustment {
		t.Errorf("ledger row = %+v, want reversed", row)
	}
}

func TestRejectDepositAfterFundsSpent(t *testing.T) {
	svc, _, wallets, _ := newTestService(1000)
	user := uuid.New()

	d, _ := svc.RequestDeposit(context.Background(), user, 500, "bank")
	// The user spent 400 of the unverified credit elsewhere.
	wallets.get(user).balance = 100

	err := svc.RejectDeposit(context.Background(), d.ID, "no transfer received")
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	svc, _, wallets, _ := newTestService(1000)
	user := uuid.New()
	wallets.get(user).balance = 5000

	_, err := svc.RequestWithdrawal(context.Background(), user, 500, "bank", "ACC-1")
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("err = %v, want below minimum", err)
	}
}

func TestWithdrawalApproveLifecycle(t *testing.T) {
	svc, store, wallets, led := newTestService(1000)
	user := uuid.New()
	wallets.get(user).balance = 2500

	wd, err := svc.RequestWithdrawal(context.Background(), user, 2000, "bank", "ACC-1")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	w := wallets.get(user)
	if w.balance != 500 || w.escrow != 2000 {
		t.Fatalf("wallet = balance %d escrow %d, want 500/2000", w.balance, w.escrow)
	}

	if err := svc.ApproveWithdrawal(context.Background(), wd.ID); err != nil {
		t.Fatalf("ApproveWithdrawal: %v", err)
	}
	if w.balance != 500 || w.escrow != 0 {
		t.Errorf("wallet after approve = balance %d escrow %d, want 500/0", w.balance, w.escrow)
	}
	if got := store.withdrawals[wd.ID].Status; got != models.RequestApproved {
		t.Errorf("request = %q, want approved", got)
	}
	if got := led.rows[wd.TransactionID].Status; got != models.TxStatusCompleted {
		t.Errorf("ledger row status = %q, want completed", got)
	}

	if err := svc.ApproveWithdrawal(context.Background(), wd.ID); !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("second approve: err = %v, want already reviewed", err)
	}
}

func TestRejectWithdrawalReturnsFunds(t *testing.T) {
	svc, _, wallets, led := newTestService(1000)
	user := uuid.New()
	wallets.get(user).balance = 2500

	wd, err := svc.RequestWithdrawal(context.Background(), user, 2000, "bank", "ACC-1")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if err := svc.RejectWithdrawal(context.Background(), wd.ID, "account mismatch"); err != nil {
		t.Fatalf("RejectWithdrawal: %v", err)
	}
	w := wallets.get(user)
	if w.balance != 2500 || w.escrow != 0 {
		t.Errorf("wallet = balance %d escrow %d, want 2500/0", w.balance, w.escrow)
	}
	if got := led.rows[wd.TransactionID].Status; got != models.TxStatusRejected {
		t.Errorf("ledger row status = %q, want rejected", got)
	}
}

func TestRequestWithdrawalInsufficientFunds(t *testing.T) {
	svc, _, wallets, _ := newTestService(1000)
	user := uuid.New()
	wallets.get(user).balance = 500

	_, err := svc.RequestWithdrawal(context.Background(), user, 2000, "bank", "ACC-1")
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
}
