package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/models"
)

// ActivityLister reads the caller's activity feed.
type ActivityLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Activity, error)
}

type UpdateProfileRequest struct {
	FullName         *string `json:"full_name"`
	WithdrawalMethod *string `json:"withdrawal_method"`
	AccountNumber    *string `json:"account_number"`
}

type Handler struct {
	repo       *Repository
	activities ActivityLister
	log        *slog.Logger
}

func NewHandler(repo *Repository, activities ActivityLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, activities: activities, log: log}
}

// Me handles GET /api/v1/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	httpapi.OK(w, http.StatusOK, "", u)
}

// UpdateMe handles PATCH /api/v1/users/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FullName != nil && *req.FullName == "" {
		httpapi.Fail(w, http.StatusBadRequest, "full name cannot be empty")
		return
	}
	updated, err := h.repo.UpdateProfile(r.Context(), u.ID, ProfileUpdate{
		FullName:         req.FullName,
		WithdrawalMethod: req.WithdrawalMethod,
		AccountNumber:    req.AccountNumber,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpapi.Fail(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("update profile failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, "update profile failed")
		return
	}
	httpapi.OK(w, http.StatusOK, "profile updated", updated)
}

// Activities handles GET /api/v1/users/me/activities.
func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromCtx(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.activities.ListByUser(r.Context(), u.ID, limit)
	if err != nil {
		h.log.Error("list activities failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, "list activities failed")
		return
	}
	httpapi.OK(w, http.StatusOK, "", list)
}
