package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskpond/backend/internal/httpapi"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		httpapi.Fail(w, http.StatusBadRequest, "missing required fields")
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpapi.Fail(w, http.StatusConflict, "email already registered")
			return
		}
		if err.Error() == "invalid role" {
			httpapi.Fail(w, http.StatusBadRequest, "invalid role")
			return
		}
		h.log.Error("register failed", "error", err)
		httpapi.Fail(w, http.StatusInternalServerError, "registration failed")
		return
	}
	httpapi.OK(w, http.StatusCreated, "account created", u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.Fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpapi.Fail(w, http.StatusBadRequest, "missing email or password")
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			httpapi.Fail(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, ErrAccountDisabled):
			httpapi.Fail(w, http.StatusForbidden, "account is disabled")
		default:
			h.log.Error("login failed", "error", err)
			httpapi.Fail(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	httpapi.OK(w, http.StatusOK, "logged in", LoginResponse{Token: token})
}
