package submissions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/jobs"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/models"
)

type CreateRequest struct {
	Proofs []models.Proof `json:"proofs"`
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

// Create handles POST /api/v1/jobs/{id}/submissions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, ok := pathUUID(w, r, "id", "invalid job id")
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, err := h.svc.Create(r.Context(), u.ID, jobID, req.Proofs)
	if err != nil {
		h.fail(w, err, "create submission")
		return
	}
	httpapi.OK(w, http.StatusCreated, "submission received", sub)
}

// ListByJob handles GET /api/v1/jobs/{id}/submissions.
func (h *Handler) ListByJob(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, ok := pathUUID(w, r, "id", "invalid job id")
	if !ok {
		return
	}
	list, err := h.svc.ListByJob(r.Context(), u.ID, u.IsAdmin, jobID)
	if err != nil {
		h.fail(w, err, "list job submissions")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// ListMine handles GET /api/v1/submissions/mine.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	list, err := h.svc.ListMine(r.Context(), u.ID)
	if err != nil {
		h.fail(w, err, "list own submissions")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}

// Approve handles POST /api/v1/jobs/{id}/submissions/{sid}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, subID, ok := pathPair(w, r)
	if !ok {
		return
	}
	if err := h.svc.Approve(r.Context(), u.ID, u.IsAdmin, jobID, subID); err != nil {
		h.fail(w, err, "approve submission")
		return
	}
	httpapi.OK(w, http.StatusOK, "submission approved", nil)
}

// Reject handles POST /api/v1/jobs/{id}/submissions/{sid}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, subID, ok := pathPair(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.Reject(r.Context(), u.ID, u.IsAdmin, jobID, subID, req.Reason); err != nil {
		h.fail(w, err, "reject submission")
		return
	}
	httpapi.OK(w, http.StatusOK, "submission rejected", nil)
}

// RequestRework handles POST /api/v1/jobs/{id}/submissions/{sid}/rework.
func (h *Handler) RequestRework(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, subID, ok := pathPair(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.RequestRework(r.Context(), u.ID, u.IsAdmin, jobID, subID, req.Reason); err != nil {
		h.fail(w, err, "request rework")
		return
	}
	httpapi.OK(w, http.StatusOK, "rework requested", nil)
}

// Resubmit handles POST /api/v1/jobs/{id}/submissions/{sid}/resubmit.
func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	jobID, subID, ok := pathPair(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, err := h.svc.Resubmit(r.Context(), u.ID, jobID, subID, req.Proofs)
	if err != nil {
		h.fail(w, err, "resubmit")
		return
	}
	httpapi.OK(w, http.StatusOK, "submission resubmitted", sub)
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, jobs.ErrNotFound):
		httpapi.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrOwnJob):
		httpapi.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyProcessed), errors.Is(err, ErrJobNotOpen),
		errors.Is(err, ErrCooldownActive), errors.Is(err, ErrOpenSubmission),
		errors.Is(err, ErrResubmissionExpired), errors.Is(err, jobs.ErrJobFull),
		errors.Is(err, jobs.ErrInsufficientBudget):
		httpapi.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrInvalidInput):
		httpapi.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op+" failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, op+" failed")
	}
}

func pathPair(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	jobID, ok := pathUUID(w, r, "id", "invalid job id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	subID, ok := pathUUID(w, r, "sid", "invalid submission id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return jobID, subID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, key, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		httpapi.Fail(w, http.StatusBadRequest, msg)
		return uuid.Nil, false
	}
	return id, true
}
