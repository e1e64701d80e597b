package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/money"
)

// Transaction type enum.
const (
	TxTypeDeposit           = "deposit"
	TxTypeWithdrawal        = "withdrawal"
	TxTypeJobPosting        = "job_posting"
	TxTypeEarning           = "earning"
	TxTypeDepositAdjustment = "deposit_adjustment"
	TxTypeAdjustment        = "adjustment"
)

// Transaction status enum.
const (
	TxStatusUnverified = "unverified"
	TxStatusPending    = "pending"
	TxStatusApproved   = "approved"
	TxStatusRejected   = "rejected"
	TxStatusCompleted  = "completed"
)

// Transaction is one row of the append-mostly money-movement audit log.
// Amount is signed: credits to the user positive, debits negative.
type Transaction struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Amount      money.Cents `json:"amount"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Description string      `json:"description"`
	JobID       *uuid.UUID  `json:"job_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
