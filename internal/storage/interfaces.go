// Package storage defines the persistence contracts for users and the
// transaction ledger. Implementations provide the atomic-unit primitive:
// every compound operation here commits all of its writes or none.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/ledger"
	"github.com/redvault/backend/internal/domain/user"
)

var (
	// ErrNotFound reports an absent user or transaction.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateEmail reports a violated unique-email constraint.
	ErrDuplicateEmail = errors.New("storage: email already exists")
	// ErrNotDeposit reports an approval attempt on a non-deposit entry.
	ErrNotDeposit = errors.New("storage: transaction is not a deposit")
	// ErrNotPending reports an approval attempt on a settled deposit.
	ErrNotPending = errors.New("storage: deposit is not pending")
)

// UserAdjustment describes an admin edit to a user record. Nil fields are
// left unchanged. When Balance is set and differs from the current value,
// the implementation writes an ADMIN_ADJUST ledger row for the delta in
// the same atomic unit as the update.
type UserAdjustment struct {
	Balance *decimal.Decimal
	Plan    *user.Plan
	Status  *user.Status
	Note    string
}

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdatePlan(ctx context.Context, id string, plan user.Plan) (user.User, error)
}

// LedgerStore persists transactions and applies balance-affecting
// operations atomically.
type LedgerStore interface {
	// Deposit increments the user's balance and writes an APPROVED
	// DEPOSIT row for the amount as one atomic unit.
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, note string) (user.User, ledger.Transaction, error)

	// CreateTransaction appends a ledger row without touching balances.
	CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)

	GetTransaction(ctx context.Context, id string) (ledger.Transaction, error)

	// ListTransactions returns the user's ledger, newest first.
	ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error)

	// ListPendingDeposits returns PENDING deposits joined with their owner
	// summaries, newest first.
	ListPendingDeposits(ctx context.Context) ([]ledger.PendingDeposit, error)

	// ApproveDeposit flips a PENDING deposit to APPROVED and credits the
	// owner's balance as one atomic unit. It reports ErrNotFound,
	// ErrNotDeposit, or ErrNotPending without writing anything.
	ApproveDeposit(ctx context.Context, txID string, note string) (ledger.Transaction, user.User, error)

	// AdjustUser applies an admin edit; the balance write and its
	// ADMIN_ADJUST row are one atomic unit.
	AdjustUser(ctx context.Context, userID string, adj UserAdjustment) (user.User, error)
}
