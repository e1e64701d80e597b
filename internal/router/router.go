package router

import (
	"net/http"

	"github.com/taskpond/backend/internal/admin"
	"github.com/taskpond/backend/internal/auth"
	"github.com/taskpond/backend/internal/jobs"
	"github.com/taskpond/backend/internal/middleware"
	"github.com/taskpond/backend/internal/payments"
	"github.com/taskpond/backend/internal/submissions"
	"github.com/taskpond/backend/internal/users"
	"github.com/taskpond/backend/internal/wallet"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Auth        *auth.Handler
	Users       *users.Handler
	Wallet      *wallet.Handler
	Jobs        *jobs.Handler
	Submissions *submissions.Handler
	Payments    *payments.Handler
	Admin       *admin.Handler
}

// New returns an http.Handler serving the API under /api/v1. Everything past
// the auth endpoints requires a valid bearer token; /admin additionally
// requires the admin flag.
func New(h Handlers, tokens middleware.TokenValidator, userLoader middleware.UserLoader) http.Handler {
	authn := middleware.Authenticate(tokens, userLoader)

	protected := http.NewServeMux()

	protected.HandleFunc("GET /api/v1/users/me", h.Users.Me)
	protected.HandleFunc("PATCH /api/v1/users/me", h.Users.UpdateMe)
	protected.HandleFunc("GET /api/v1/users/me/activities", h.Users.Activities)

	protected.HandleFunc("GET /api/v1/wallet", h.Wallet.Get)
	protected.HandleFunc("GET /api/v1/wallet/transactions", h.Wallet.Transactions)

	protected.HandleFunc("POST /api/v1/jobs", h.Jobs.Post)
	protected.HandleFunc("GET /api/v1/jobs", h.Jobs.ListOpen)
	protected.HandleFunc("GET /api/v1/jobs/mine", h.Jobs.ListMine)
	protected.HandleFunc("GET /api/v1/jobs/{id}", h.Jobs.Get)
	protected.HandleFunc("PATCH /api/v1/jobs/{id}/budget", h.Jobs.UpdateBudget)
	protected.HandleFunc("POST /api/v1/jobs/{id}/cancel", h.Jobs.Cancel)
	protected.HandleFunc("POST /api/v1/jobs/{id}/pause", h.Jobs.Pause)
	protected.HandleFunc("POST /api/v1/jobs/{id}/resume", h.Jobs.Resume)

	protected.HandleFunc("POST /api/v1/jobs/{id}/submissions", h.Submissions.Create)
	protected.HandleFunc("GET /api/v1/jobs/{id}/submissions", h.Submissions.ListByJob)
	protected.HandleFunc("GET /api/v1/submissions/mine", h.Submissions.ListMine)
	protected.HandleFunc("POST /api/v1/jobs/{id}/submissions/{sid}/approve", h.Submissions.Approve)
	protected.HandleFunc("POST /api/v1/jobs/{id}/submissions/{sid}/reject", h.Submissions.Reject)
	protected.HandleFunc("POST /api/v1/jobs/{id}/submissions/{sid}/rework", h.Submissions.RequestRework)
	protected.HandleFunc("POST /api/v1/jobs/{id}/submissions/{sid}/resubmit", h.Submissions.Resubmit)

	protected.HandleFunc("POST /api/v1/payments/deposits", h.Payments.RequestDeposit)
	protected.HandleFunc("POST /api/v1/payments/withdrawals", h.Payments.RequestWithdrawal)
	protected.HandleFunc("GET /api/v1/payments/methods", h.Payments.ListMethods)

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /api/v1/admin/users", h.Admin.ListUsers)
	adminMux.HandleFunc("POST /api/v1/admin/users/{id}/status", h.Admin.SetUserStatus)
	adminMux.HandleFunc("GET /api/v1/admin/wallets", h.Admin.ListWallets)
	adminMux.HandleFunc("GET /api/v1/admin/transactions", h.Admin.ListTransactions)
	adminMux.HandleFunc("GET /api/v1/admin/stats", h.Admin.GetStats)
	adminMux.HandleFunc("GET /api/v1/admin/jobs/pending", h.Jobs.ListPendingReview)
	adminMux.HandleFunc("POST /api/v1/admin/jobs/{id}/approve", h.Jobs.Approve)
	adminMux.HandleFunc("POST /api/v1/admin/jobs/{id}/reject", h.Jobs.Reject)
	adminMux.HandleFunc("DELETE /api/v1/admin/jobs/{id}", h.Jobs.Delete)
	adminMux.HandleFunc("GET /api/v1/admin/payments/deposits", h.Payments.ListDeposits)
	adminMux.HandleFunc("GET /api/v1/admin/payments/withdrawals", h.Payments.ListWithdrawals)
	adminMux.HandleFunc("POST /api/v1/admin/payments/deposits/{id}/verify", h.Payments.VerifyDeposit)
	adminMux.HandleFunc("POST /api/v1/admin/payments/deposits/{id}/reject", h.Payments.RejectDeposit)
	adminMux.HandleFunc("POST /api/v1/admin/payments/withdrawals/{id}/approve", h.Payments.ApproveWithdrawal)
	adminMux.HandleFunc("POST /api/v1/admin/payments/withdrawals/{id}/reject", h.Payments.RejectWithdrawal)
	adminMux.HandleFunc("POST /api/v1/admin/payments/methods", h.Payments.AddMethod)
	adminMux.HandleFunc("POST /api/v1/admin/payments/methods/{id}/disable", h.Payments.DisableMethod)
	protected.Handle("/api/v1/admin/", middleware.RequireAdmin(adminMux))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	mux.Handle("/api/v1/", authn(protected))

	return mux
}
