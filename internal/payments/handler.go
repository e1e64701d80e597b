package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/money"
	"github.com/taskpond/backend/internal/wallet"
)

type DepositRequestBody struct {
	Amount money.Cents `json:"amount"`
	Method string      `json:"method"`
}

type WithdrawalRequestBody struct {
	Amount        money.Cents `json:"amount"`
	Method        string      `json:"method"`
	AccountNumber string      `json:"account_number"`
}

type VerifyDepositBody struct {
	Amount money.Cents `json:"amount"`
}

type ReviewBody struct {
	Reason string `json:"reason"`
}

type AddMethodBody struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// RequestDeposit handles POST /api/v1/payments/deposits.
func (h *Handler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	var req DepositRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	d, err := h.svc.RequestDeposit(r.Context(), u.ID, req.Amount, req.Method)
	if err != nil {
		h.fail(w, err, "request deposit")
		return
	}
	httpapi.OK(w, http.StatusCreated, "deposit requested", d)
}

// RequestWithdrawal handles POST /api/v1/payments/withdrawals.
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	var req WithdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	wd, err := h.svc.RequestWithdrawal(r.Context(), u.ID, req.Amount, req.Method, req.AccountNumber)
	if err != nil {
		h.fail(w, err, "request withdrawal")
		return
	}
	httpapi.OK(w, http.StatusCreated, "withdrawal requested", wd)
}

// ListMethods handles GET /api/v1/payments/methods.
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	list, err := h.svc.ListMethods(r.Context(), u != nil && u.IsAdmin)
	if err != nil {
		h.fail(w, err, "list payment methods")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// ListDeposits handles GET /api/v1/admin/payments/deposits.
func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListDeposits(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err, "list deposits")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// ListWithdrawals handles GET /api/v1/admin/payments/withdrawals.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListWithdrawals(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err, "list withdrawals")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// VerifyDeposit handles POST /api/v1/admin/payments/deposits/{id}/verify.
func (h *Handler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req VerifyDepositBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.VerifyDeposit(r.Context(), id, req.Amount); err != nil {
		h.fail(w, err, "verify deposit")
		return
	}
	httpapi.OK(w, http.StatusOK, "deposit verified", nil)
}

// RejectDeposit handles POST /api/v1/admin/payments/deposits/{id}/reject.
func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.RejectDeposit(r.Context(), id, req.Reason); err != nil {
		h.fail(w, err, "reject deposit")
		return
	}
	httpapi.OK(w, http.StatusOK, "deposit rejected", nil)
}

// ApproveWithdrawal handles POST /api/v1/admin/payments/withdrawals/{id}/approve.
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ApproveWithdrawal(r.Context(), id); err != nil {
		h.fail(w, err, "approve withdrawal")
		return
	}
	httpapi.OK(w, http.StatusOK, "withdrawal approved", nil)
}

// RejectWithdrawal handles POST /api/v1/admin/payments/withdrawals/{id}/reject.
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.RejectWithdrawal(r.Context(), id, req.Reason); err != nil {
		h.fail(w, err, "reject withdrawal")
		return
	}
	httpapi.OK(w, http.StatusOK, "withdrawal rejected", nil)
}

// AddMethod handles POST /api/v1/admin/payments/methods.
func (h *Handler) AddMethod(w http.ResponseWriter, r *http.Request) {
	var req AddMethodBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	m, err := h.svc.AddMethod(r.Context(), req.Name, req.Kind, req.Details)
	if err != nil {
		h.fail(w, err, "add payment method")
		return
	}
	httpapi.OK(w, http.StatusCreated, "payment method added", m)
}

// DisableMethod handles POST /api/v1/admin/payments/methods/{id}/disable.
func (h *Handler) DisableMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetMethodActive(r.Context(), id, false); err != nil {
		h.fail(w, err, "disable payment method")
		return
	}
	httpapi.OK(w, http.StatusOK, "payment method disabled", nil)
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpapi.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds), errors.Is(err, wallet.ErrInsufficientEscrow):
		httpapi.Fail(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrAlreadyReviewed):
		httpapi.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrInvalidInput),
		errors.Is(err, money.ErrNotPositive), errors.Is(err, money.ErrSubCent):
		httpapi.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op+" failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, op+" failed")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid request id")
		return uuid.Nil, false
	}
	return id, true
}
