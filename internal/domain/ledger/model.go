package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/user"
)

// Type classifies a ledger entry.
type Type string

const (
	TypeDeposit     Type = "DEPOSIT"
	TypeAdminAdjust Type = "ADMIN_ADJUST"
)

// Status is the lifecycle state of a deposit entry. ADMIN_ADJUST entries
// are written in the terminal APPROVED state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// Transaction is an append-style ledger entry describing an intended or
// applied balance change. Amount is signed; positive means an increase.
type Transaction struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"userId" db:"user_id"`
	Type      Type            `json:"type" db:"type"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    Status          `json:"status" db:"status"`
	Note      string          `json:"note" db:"note"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// OwnerSummary is the slice of the owning user shown alongside a pending
// deposit in the admin queue.
type OwnerSummary struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Balance decimal.Decimal `json:"balance"`
	Plan    user.Plan       `json:"plan"`
	Status  user.Status     `json:"status"`
}

// PendingDeposit joins a PENDING deposit with its owner summary.
type PendingDeposit struct {
	Transaction
	User OwnerSummary `json:"user"`
}
