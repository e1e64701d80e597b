package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/money"
)

// Wallet is the per-user two-field balance model. Balance and Escrow are both
// invariant-checked non-negative; the row is merge-created on first use and
// mutated only inside ledger transactions.
type Wallet struct {
	UserID      uuid.UUID   `json:"user_id"`
	Balance     money.Cents `json:"balance"`
	Escrow      money.Cents `json:"escrow"`
	TotalEarned money.Cents `json:"total_earned"`
	TotalSpent  money.Cents `json:"total_spent"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
