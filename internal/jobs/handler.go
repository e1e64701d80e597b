package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/models"
	"github.com/taskpond/backend/internal/money"
	"github.com/taskpond/backend/internal/wallet"
)

type PostJobRequest struct {
	Title              string                    `json:"title"`
	Description        string                    `json:"description"`
	CostPerWorker      money.Cents               `json:"cost_per_worker"`
	WorkersNeeded      int                       `json:"workers_needed"`
	SubmissionCooldown int                       `json:"submission_cooldown,omitempty"`
	Instructions       []string                  `json:"instructions"`
	Restrictions       []string                  `json:"restrictions"`
	Proofs             []models.ProofRequirement `json:"proofs"`
}

type UpdateBudgetRequest struct {
	WorkersNeeded int         `json:"workers_needed"`
	CostPerWorker money.Cents `json:"cost_per_worker"`
}

type ReviewRequest struct {
	Reason string `json:"reason"`
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

// Post handles POST /api/v1/jobs.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	var req PostJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	j, err := h.svc.Post(r.Context(), u.ID, PostInput{
		Title:              req.Title,
		Description:        req.Description,
		CostPerWorker:      req.CostPerWorker,
		WorkersNeeded:      req.WorkersNeeded,
		SubmissionCooldown: req.SubmissionCooldown,
		Instructions:       req.Instructions,
		Restrictions:       req.Restrictions,
		Proofs:             req.Proofs,
	})
	if err != nil {
		h.fail(w, err, "post job")
		return
	}
	httpapi.OK(w, http.StatusCreated, "job submitted for review", j)
}

// ListOpen handles GET /api/v1/jobs (worker browse).
func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOpen(r.Context())
	if err != nil {
		h.fail(w, err, "list open jobs")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// ListMine handles GET /api/v1/jobs/mine (client's own jobs).
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	list, err := h.svc.ListByClient(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err, "list client jobs")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// Get handles GET /api/v1/jobs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	j, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get job")
		return
	}
	httpapi.OK(w, http.StatusOK, "", j)
}

// UpdateBudget handles PATCH /api/v1/jobs/{id}/budget.
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	j, err := h.svc.UpdateBudget(r.Context(), u.ID, id, req.WorkersNeeded, req.CostPerWorker)
	if err != nil {
		h.fail(w, err, "update budget")
		return
	}
	httpapi.OK(w, http.StatusOK, "budget updated", j)
}

// Cancel handles POST /api/v1/jobs/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), u.ID, u.IsAdmin, id); err != nil {
		h.fail(w, err, "cancel job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job cancelled", nil)
}

// Pause handles POST /api/v1/jobs/{id}/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Pause(r.Context(), u.ID, u.IsAdmin, id); err != nil {
		h.fail(w, err, "pause job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job paused", nil)
}

// Resume handles POST /api/v1/jobs/{id}/resume.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Resume(r.Context(), u.ID, u.IsAdmin, id); err != nil {
		h.fail(w, err, "resume job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job resumed", nil)
}

// Approve handles POST /api/v1/admin/jobs/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ApproveReview(r.Context(), id); err != nil {
		h.fail(w, err, "approve job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job approved", nil)
}

// Reject handles POST /api/v1/admin/jobs/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.RejectReview(r.Context(), id, req.Reason); err != nil {
		h.fail(w, err, "reject job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job rejected", nil)
}

// Delete handles DELETE /api/v1/admin/jobs/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "delete job")
		return
	}
	httpapi.OK(w, http.StatusOK, "job deleted", nil)
}

// ListPendingReview handles GET /api/v1/admin/jobs/pending.
func (h *Handler) ListPendingReview(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPendingReview(r.Context())
	if err != nil {
		h.fail(w, err, "list pending jobs")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpapi.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		httpapi.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		httpapi.Fail(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInsufficientBudget),
		errors.Is(err, ErrBelowCommitted), errors.Is(err, ErrJobFull):
		httpapi.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrInvalidInput),
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
		httpapi.Fail(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}
