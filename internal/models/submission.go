package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/money"
)

// Submission status enum. approved and rejected are terminal.
const (
	SubmissionPending         = "pending"
	SubmissionApproved        = "approved"
	SubmissionRejected        = "rejected"
	SubmissionResubmitPending = "resubmit_pending"
)

// ResubmissionWindow is how long a worker has to resubmit after the client
// requests rework; past it the submission is permanently rejected.
const ResubmissionWindow = 12 * time.Hour

// AutoApproveAfter is the review window after which a pending submission is
// force-approved by the sweep.
const AutoApproveAfter = 24 * time.Hour

// Proof is a worker-supplied piece of evidence matching a job's ProofRequirement.
type Proof struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Submission struct {
	ID              uuid.UUID   `json:"id"`
	JobID           uuid.UUID   `json:"job_id"`
	WorkerID        uuid.UUID   `json:"worker_id"`
	ClientID        uuid.UUID   `json:"client_id"`
	Payout          money.Cents `json:"payout"`
	Status          string      `json:"status"`
	Proofs          []Proof     `json:"proofs"`
	SubmittedAt     time.Time   `json:"submitted_at"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	RejectionAt     *time.Time  `json:"rejection_at,omitempty"`
	SubmissionCount int         `json:"submission_count"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
