package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity kinds emitted by state transitions.
const (
	ActivityJobPosted             = "job_posted"
	ActivityJobApproved           = "job_approved"
	ActivityJobRejected           = "job_rejected"
	ActivityJobCancelled          = "job_cancelled"
	ActivityJobBudgetUpdated      = "job_budget_updated"
	ActivitySubmissionCreated     = "submission_created"
	ActivitySubmissionApproved    = "submission_approved"
	ActivitySubmissionRejected    = "submission_rejected"
	ActivityResubmissionRequested = "resubmission_requested"
	ActivityDepositRequested      = "deposit_requested"
	ActivityDepositReviewed       = "deposit_reviewed"
	ActivityWithdrawalRequested   = "withdrawal_requested"
	ActivityWithdrawalReviewed    = "withdrawal_reviewed"
)

// Activity is one row of the per-user activity feed.
type Activity struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
