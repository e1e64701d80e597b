package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/models"
)

// TransactionLister reads the caller's slice of the audit log.
type TransactionLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
}

type Handler struct {
	wallets *Repository
	ledger  TransactionLister
	log     *slog.Logger
}

func NewHandler(wallets *Repository, ledger TransactionLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{wallets: wallets, ledger: ledger, log: log}
}

// Get handles GET /api/v1/wallet.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	wal, err := h.wallets.Get(r.Context(), u.ID)
	if err != nil {
		h.log.Error("get wallet failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, "get wallet failed")
		return
	}
	httpapi.OK(w, http.StatusOK, "", wal)
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.ledger.ListByUser(r.Context(), u.ID, limit)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, "list transactions failed")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}
