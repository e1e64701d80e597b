package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
	"github.com/taskpond/backend/internal/users"
)

// UserAdmin is the account-management surface.
type UserAdmin interface {
	List(ctx context.Context, role, status string) ([]*models.User, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Count(ctx context.Context) (map[string]int, error)
}

// WalletReader lists wallets for oversight.
type WalletReader interface {
	ListAll(ctx context.Context) ([]*models.Wallet, error)
}

// LedgerReader lists the audit log and aggregates escrow.
type LedgerReader interface {
	ListAll(ctx context.Context, limit int) ([]*models.Transaction, error)
	SumEscrowHeld(ctx context.Context) (money.Cents, error)
}

// Stats is the platform snapshot returned by the stats endpoint.
type Stats struct {
	Users       map[string]int `json:"users"`
	EscrowHeld  money.Cents    `json:"escrow_held"`
	WalletCount int            `json:"wallet_count"`
}

type Handler struct {
	users   UserAdmin
	wallets WalletReader
	ledger  LedgerReader
	log     *slog.Logger
}

func NewHandler(userAdmin UserAdmin, wallets WalletReader, ledger LedgerReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: userAdmin, wallets: wallets, ledger: ledger, log: log}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.users.List(r.Context(), q.Get("role"), q.Get("status"))
	if err != nil {
		h.fail(w, err, "list users")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// SetUserStatus handles POST /api/v1/admin/users/{id}/status.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case models.UserStatusActive, models.UserStatusSuspended, models.UserStatusBanned, models.UserStatusDeleted:
	default:
		httpapi.Fail(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err := h.users.SetStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpapi.Fail(w, http.StatusNotFound, "user not found")
			return
		}
		h.fail(w, err, "set user status")
		return
	}
	httpapi.OK(w, http.StatusOK, "user "+status, nil)
}

// ListWallets handles GET /api/v1/admin/wallets.
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	list, err := h.wallets.ListAll(r.Context())
	if err != nil {
		h.fail(w, err, "list wallets")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// ListTransactions handles GET /api/v1/admin/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.ledger.ListAll(r.Context(), limit)
	if err != nil {
		h.fail(w, err, "list transactions")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// GetStats handles GET /api/v1/admin/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.users.Count(r.Context())
	if err != nil {
		h.fail(w, err, "platform stats")
		return
	}
	escrow, err := h.ledger.SumEscrowHeld(r.Context())
	if err != nil {
		h.fail(w, err, "platform stats")
		return
	}
	wallets, err := h.wallets.ListAll(r.Context())
	if err != nil {
		h.fail(w, err, "platform stats")
		return
	}
	httpapi.OK(w, http.StatusOK, "", Stats{
		Users:       counts,
		EscrowHeld:  escrow,
		WalletCount: len(wallets),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	h.log.Error(op+" failed", "error", err)
	httpapi.Fail(w, http.StatusInternalServerError, op+" failed")
}

var _ UserAdmin = (*users.Repository)(nil)
