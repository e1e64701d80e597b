package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/money"
)

// Job status enum.
const (
	JobStatusPendingReview = "pending_review"
	JobStatusOpen          = "open"
	JobStatusActive        = "active"
	JobStatusPaused        = "paused"
	JobStatusRejected      = "rejected"
	JobStatusCancelled     = "cancelled"
	JobStatusCompleted     = "completed"
)

// Proof requirement types a client can ask workers for.
const (
	ProofTypeText       = "text"
	ProofTypeLink       = "link"
	ProofTypeScreenshot = "screenshot"
)

// DefaultSubmissionCooldown is the per-worker re-submission cooldown applied
// when a job does not specify one.
const DefaultSubmissionCooldown = 3600 // seconds

// ProofRequirement describes one proof the client expects with each submission.
type ProofRequirement struct {
	Type        string `json:"type"`
	Instruction string `json:"instruction"`
}

type Job struct {
	ID                  uuid.UUID          `json:"id"`
	ClientID            uuid.UUID          `json:"client_id"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Status              string             `json:"status"`
	CostPerWorker       money.Cents        `json:"cost_per_worker"`
	WorkersNeeded       int                `json:"workers_needed"`
	TotalCost           money.Cents        `json:"total_cost"`
	RemainingBudget     money.Cents        `json:"remaining_budget"`
	SubmissionsPending  int                `json:"submissions_pending"`
	SubmissionsApproved int                `json:"submissions_approved"`
	SubmissionsRejected int                `json:"submissions_rejected"`
	SubmissionCooldown  int                `json:"submission_cooldown"` // seconds
	Instructions        []string           `json:"instructions"`
	Restrictions        []string           `json:"restrictions"`
	Proofs              []ProofRequirement `json:"proofs"`
	RejectionReason     *string            `json:"rejection_reason,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// AcceptsSubmissions reports whether workers may submit to the job.
func (j *Job) AcceptsSubmissions() bool {
	return j.Status == JobStatusOpen || j.Status == JobStatusActive
}

// Cancellable reports whether the job can still be cancelled by its owner.
func (j *Job) Cancellable() bool {
	switch j.Status {
	case JobStatusPendingReview, JobStatusOpen, JobStatusActive, JobStatusPaused:
		return true
	}
	return false
}
