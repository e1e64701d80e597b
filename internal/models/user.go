package models

import (
	"time"

	"github.com/google/uuid"
)

// User role enum. Admins are regular users with IsAdmin set; the role records
// which side of the marketplace the account was created for.
const (
	RoleClient = "client"
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

// User status enum. Accounts are never hard-deleted; status is the soft-delete.
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
	UserStatusDeleted   = "deleted"
)

// KYC status enum.
const (
	KYCUnverified = "unverified"
	KYCPending    = "pending"
	KYCVerified   = "verified"
)

// Account type enum.
const (
	AccountTypeFree    = "free"
	AccountTypePremium = "premium"
)

type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	IsAdmin          bool      `json:"is_admin"`
	Status           string    `json:"status"`
	KYCStatus        string    `json:"kyc_status"`
	AccountType      string    `json:"account_type"`
	WithdrawalMethod *string   `json:"withdrawal_method,omitempty"`
	AccountNumber    *string   `json:"account_number,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
