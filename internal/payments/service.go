package payments

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
	// ErrNotFound is returned when the deposit or withdrawal request does not exist.
	ErrNotFound = errors.New("request not found")
	// ErrAlreadyReviewed is returned when the request left pending before the
	// review ran. The wallet is touched at most once per request because of it.
	ErrAlreadyReviewed = errors.New("request already reviewed")
	// ErrBelowMinimum is returned when a withdrawal is under the platform minimum.
	ErrBelowMinimum = errors.New("amount is below the minimum withdrawal")
	// ErrInvalidInput wraps request-shape validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// TxBeginner opens a database transaction. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletOps is the subset of wallet delta operations the deposit and
// withdrawal workflows need.
type WalletOps interface {
	Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	MoveToEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	ReleaseFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
	WithdrawFromEscrow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount money.Cents) error
}

// LedgerOps appends and reconciles audit rows inside the caller's transaction.
type LedgerOps interface {
	Append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	Reconcile(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount money.Cents, status string) error
	MarkReversed(ctx context.Context, tx pgx.Tx, id uuid.UUID, description string) error
}

// ActivityEmitter records feed entries inside the caller's transaction.
type ActivityEmitter interface {
	Emit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind string, payload map[string]any) error
}

// Store is the repository surface the service needs.
type Store interface {
	CreateDepositTx(ctx context.Context, tx pgx.Tx, d *models.DepositRequest) error
	GetDepositForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.DepositRequest, error)
	ResolveDepositTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, amount int64) (bool, error)
	CreateWithdrawalTx(ctx context.Context, tx pgx.Tx, wd *models.WithdrawalRequest) error
	GetWithdrawalForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error)
	ResolveWithdrawalTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error)
	ListDeposits(ctx context.Context, status string) ([]*models.DepositRequest, error)
	ListWithdrawals(ctx context.Context, status string) ([]*models.WithdrawalRequest, error)
	ListMethods(ctx context.Context, includeInactive bool) ([]*models.PaymentMethod, error)
	CreateMethod(ctx context.Context, m *models.PaymentMethod) error
	SetMethodActive(ctx context.Context, id uuid.UUID, active bool) error
}

type Service struct {
	db            TxBeginner
	repo          Store
	wallets       WalletOps
	ledger        LedgerOps
	activity      ActivityEmitter
	minWithdrawal money.Cents
}

func NewService(db TxBeginner, repo Store, wallets WalletOps, ledger LedgerOps, activity ActivityEmitter, minWithdrawal money.Cents) *Service {
	return &Service{
		db:            db,
		repo:          repo,
		wallets:       wallets,
		ledger:        ledger,
		activity:      activity,
		minWithdrawal: minWithdrawal,
	}
}

// RequestDeposit credits the wallet optimistically and records an unverified
// ledger row plus a pending request for admin review.
func (s *Service) RequestDeposit(ctx context.Context, userID uuid.UUID, amount money.Cents, method string) (*models.DepositRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.wallets.Ensure(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := s.wallets.Credit(ctx, tx, userID, amount); err != nil {
		return nil, err
	}
	t := &models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TxTypeDeposit,
		Status:      models.TxStatusUnverified,
		Description: "deposit via " + method,
	}
	if err := s.ledger.Append(ctx, tx, t); err != nil {
		return nil, err
	}
	d := &models.DepositRequest{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		TransactionID: t.ID,
		Status:        models.RequestPending,
	}
	if err := s.repo.CreateDepositTx(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := s.activity.Emit(ctx, tx, userID, models.ActivityDepositRequested, map[string]any{
		"request_id": d.ID, "amount": amount,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// VerifyDeposit confirms a deposit at the amount the admin actually received.
// The wallet moves by the difference between confirmed and requested amounts,
// and a deposit_adjustment row records any correction.
func (s *Service) VerifyDeposit(ctx context.Context, requestID uuid.UUID, actual money.Cents) error {
	if actual <= 0 {
		return fmt.Errorf("%w: confirmed amount must be positive", ErrInvalidInput)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	d, err := s.depositForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResolveDepositTx(ctx, tx, requestID, models.RequestApproved, int64(actual))
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}
	diff := actual - d.Amount
	if diff > 0 {
		if err := s.wallets.Credit(ctx, tx, d.UserID, diff); err != nil {
			return err
		}
	} else if diff < 0 {
		if err := s.wallets.Debit(ctx, tx, d.UserID, -diff); err != nil {
			return err
		}
	}
	if err := s.ledger.Reconcile(ctx, tx, d.TransactionID, actual, models.TxStatusApproved); err != nil {
		return err
	}
	if diff != 0 {
		if err := s.ledger.Append(ctx, tx, &models.Transaction{
			UserID:      d.UserID,
			Amount:      diff,
			Type:        models.TxTypeDepositAdjustment,
			Status:      models.TxStatusCompleted,
			Description: fmt.Sprintf("deposit amount corrected from %s to %s", d.Amount, actual),
		}); err != nil {
			return err
		}
	}
	if err := s.activity.Emit(ctx, tx, d.UserID, models.ActivityDepositReviewed, map[string]any{
		"request_id": requestID, "approved": true, "amount": actual,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RejectDeposit reverses the optimistic credit. Fails with insufficient funds
// when the user already spent the unverified money, leaving the request
// pending for a later retry.
func (s *Service) RejectDeposit(ctx context.Context, requestID uuid.UUID, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	d, err := s.depositForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResolveDepositTx(ctx, tx, requestID, models.RequestRejected, int64(d.Amount))
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}
	if err := s.wallets.Debit(ctx, tx, d.UserID, d.Amount); err != nil {
		return err
	}
	desc := "deposit rejected"
	if reason != "" {
		desc += ": " + reason
	}
	if err := s.ledger.MarkReversed(ctx, tx, d.TransactionID, desc); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, d.UserID, models.ActivityDepositReviewed, map[string]any{
		"request_id": requestID, "approved": false, "reason": reason,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RequestWithdrawal parks the amount in escrow and opens a pending request.
// The funds are unspendable while the admin reviews.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount money.Cents, method, accountNumber string) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if amount < s.minWithdrawal {
		return nil, ErrBelowMinimum
	}
	if accountNumber == "" {
		return nil, fmt.Errorf("%w: account number is required", ErrInvalidInput)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.wallets.Ensure(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := s.wallets.MoveToEscrow(ctx, tx, userID, amount); err != nil {
		return nil, err
	}
	t := &models.Transaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        models.TxTypeWithdrawal,
		Status:      models.TxStatusPending,
		Description: "withdrawal via " + method,
	}
	if err := s.ledger.Append(ctx, tx, t); err != nil {
		return nil, err
	}
	wd := &models.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		AccountNumber: accountNumber,
		TransactionID: t.ID,
		Status:        models.RequestPending,
	}
	if err := s.repo.CreateWithdrawalTx(ctx, tx, wd); err != nil {
		return nil, err
	}
	if err := s.activity.Emit(ctx, tx, userID, models.ActivityWithdrawalRequested, map[string]any{
		"request_id": wd.ID, "amount": amount,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return wd, nil
}

// ApproveWithdrawal pays the request out: the parked escrow leaves the system.
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	wd, err := s.withdrawalForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResolveWithdrawalTx(ctx, tx, requestID, models.RequestApproved)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}
	if err := s.wallets.WithdrawFromEscrow(ctx, tx, wd.UserID, wd.Amount); err != nil {
		return err
	}
	if err := s.ledger.UpdateStatus(ctx, tx, wd.TransactionID, models.TxStatusCompleted); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, wd.UserID, models.ActivityWithdrawalReviewed, map[string]any{
		"request_id": requestID, "approved": true, "amount": wd.Amount,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RejectWithdrawal returns the parked escrow to the spendable balance.
func (s *Service) RejectWithdrawal(ctx context.Context, requestID uuid.UUID, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	wd, err := s.withdrawalForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResolveWithdrawalTx(ctx, tx, requestID, models.RequestRejected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyReviewed
	}
	if err := s.wallets.ReleaseFromEscrow(ctx, tx, wd.UserID, wd.Amount); err != nil {
		return err
	}
	desc := "withdrawal rejected"
	if reason != "" {
		desc += ": " + reason
	}
	if err := s.ledger.MarkReversed(ctx, tx, wd.TransactionID, desc); err != nil {
		return err
	}
	if err := s.activity.Emit(ctx, tx, wd.UserID, models.ActivityWithdrawalReviewed, map[string]any{
		"request_id": requestID, "approved": false, "reason": reason,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListDeposits returns deposit requests, optionally filtered by status. Admin use.
func (s *Service) ListDeposits(ctx context.Context, status string) ([]*models.DepositRequest, error) {
	return s.repo.ListDeposits(ctx, status)
}

// ListWithdrawals returns withdrawal requests, optionally filtered by status. Admin use.
func (s *Service) ListWithdrawals(ctx context.Context, status string) ([]*models.WithdrawalRequest, error) {
	return s.repo.ListWithdrawals(ctx, status)
}

// ListMethods returns the payment methods visible to users, or all for admins.
func (s *Service) ListMethods(ctx context.Context, includeInactive bool) ([]*models.PaymentMethod, error) {
	return s.repo.ListMethods(ctx, includeInactive)
}

// AddMethod creates a payment method. Admin use.
func (s *Service) AddMethod(ctx context.Context, name, kind, details string) (*models.PaymentMethod, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	switch kind {
	case "deposit", "withdrawal", "both":
	default:
		return nil, fmt.Errorf("%w: unknown method kind %q", ErrInvalidInput, kind)
	}
	m := &models.PaymentMethod{
		ID:       uuid.New(),
		Name:     name,
		Kind:     kind,
		Details:  details,
		IsActive: true,
	}
	if err := s.repo.CreateMethod(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMethodActive toggles a payment method. Admin use.
func (s *Service) SetMethodActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.repo.SetMethodActive(ctx, id, active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) depositForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.DepositRequest, error) {
	d, err := s.repo.GetDepositForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) withdrawalForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	wd, err := s.repo.GetWithdrawalForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return wd, nil
}
