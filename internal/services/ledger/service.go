// Package ledger implements the account and transaction operations:
// self-service deposits, deposit requests with admin approval, plan
// changes, and admin adjustments. Every balance change is written as a
// transaction row by the store inside one atomic unit.
package ledger

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/ledger"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/metrics"
	"github.com/redvault/backend/internal/storage"
)

// maxSelfDeposit caps a single self-service deposit, inclusive.
var maxSelfDeposit = decimal.NewFromInt(1_000_000)

const (
	noteSelfDeposit    = "Self-service deposit"
	noteDepositRequest = "User submitted deposit request"
	noteApproved       = "Approved by admin"
	noteAdminAdjust    = "Admin balance adjustment"
)

// Service exposes the account and ledger operations.
type Service struct {
	users  storage.UserStore
	ledger storage.LedgerStore
	log    zerolog.Logger
}

// New creates a ledger Service over the given stores.
func New(users storage.UserStore, ledgerStore storage.LedgerStore, log zerolog.Logger) *Service {
	return &Service{
		users:  users,
		ledger: ledgerStore,
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// GetUser returns the public view of a single user.
func (s *Service) GetUser(ctx context.Context, id string) (user.Public, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.Public{}, errors.NotFound("User not found")
		}
		return user.Public{}, errors.Internal("lookup user", err)
	}
	return u.Public(), nil
}

// ListUsers returns all users, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]user.Public, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, errors.Internal("list users", err)
	}
	result := make([]user.Public, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public())
	}
	return result, nil
}

// SetPlan switches the user onto one of the known plans.
func (s *Service) SetPlan(ctx context.Context, userID, planName string) (user.Public, error) {
	plan, ok := user.ParsePlan(planName)
	if !ok {
		return user.Public{}, errors.Validation("Validation error",
			errors.FieldError{Path: "plan", Message: "Unknown plan"})
	}
	u, err := s.users.UpdatePlan(ctx, userID, plan)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.Public{}, errors.NotFound("User not found")
		}
		return user.Public{}, errors.Internal("update plan", err)
	}
	s.log.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("plan changed")
	return u.Public(), nil
}

// DepositResult pairs the updated account with the ledger row the
// operation produced.
type DepositResult struct {
	User        user.Public        `json:"user"`
	Transaction ledger.Transaction `json:"transaction"`
}

// SelfDeposit credits the caller's balance immediately and records an
// APPROVED deposit. Amounts above the self-service cap must go through
// a deposit request instead.
func (s *Service) SelfDeposit(ctx context.Context, userID string, amount decimal.Decimal) (DepositResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return DepositResult{}, errors.Validation("Validation error",
			errors.FieldError{Path: "amount", Message: "Amount must be positive"})
	}
	if amount.GreaterThan(maxSelfDeposit) {
		return DepositResult{}, errors.Validation("Validation error",
			errors.FieldError{Path: "amount", Message: "Amount exceeds the self-service deposit limit"})
	}

	u, tx, err := s.ledger.Deposit(ctx, userID, amount, noteSelfDeposit)
	metrics.RecordLedgerOperation("self_deposit", err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DepositResult{}, errors.NotFound("User not found")
		}
		return DepositResult{}, errors.Internal("deposit", err)
	}
	s.log.Info().Str("user_id", userID).Str("amount", amount.String()).Msg("self deposit")
	return DepositResult{User: u.Public(), Transaction: tx}, nil
}

// RequestDeposit records a PENDING deposit that does not touch the
// balance until an admin approves it.
func (s *Service) RequestDeposit(ctx context.Context, userID string, amount decimal.Decimal) (ledger.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ledger.Transaction{}, errors.Validation("Validation error",
			errors.FieldError{Path: "amount", Message: "Amount must be positive"})
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ledger.Transaction{}, errors.NotFound("User not found")
		}
		return ledger.Transaction{}, errors.Internal("lookup user", err)
	}

	tx, err := s.ledger.CreateTransaction(ctx, ledger.Transaction{
		UserID: userID,
		Type:   ledger.TypeDeposit,
		Amount: amount,
		Status: ledger.StatusPending,
		Note:   noteDepositRequest,
	})
	metrics.RecordLedgerOperation("deposit_request", err)
	if err != nil {
		return ledger.Transaction{}, errors.Internal("create deposit request", err)
	}
	s.log.Info().Str("user_id", userID).Str("tx_id", tx.ID).Str("amount", amount.String()).Msg("deposit requested")
	return tx, nil
}

// ListPending returns all PENDING deposits across users, newest first,
// each with a summary of its owner.
func (s *Service) ListPending(ctx context.Context) ([]ledger.PendingDeposit, error) {
	deposits, err := s.ledger.ListPendingDeposits(ctx)
	if err != nil {
		return nil, errors.Internal("list pending deposits", err)
	}
	if deposits == nil {
		deposits = []ledger.PendingDeposit{}
	}
	return deposits, nil
}

// ListTransactions returns the user's full history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	history, err := s.ledger.ListTransactions(ctx, userID)
	if err != nil {
		return nil, errors.Internal("list transactions", err)
	}
	if history == nil {
		history = []ledger.Transaction{}
	}
	return history, nil
}

// ApproveDeposit flips a PENDING deposit to APPROVED and credits its
// owner in the same atomic unit.
func (s *Service) ApproveDeposit(ctx context.Context, txID string) (DepositResult, error) {
	tx, u, err := s.ledger.ApproveDeposit(ctx, txID, noteApproved)
	metrics.RecordLedgerOperation("approve_deposit", err)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return DepositResult{}, errors.NotFound("Transaction not found")
		case errors.Is(err, storage.ErrNotDeposit):
			return DepositResult{}, errors.Validation("Not a deposit transaction")
		case errors.Is(err, storage.ErrNotPending):
			return DepositResult{}, errors.Validation("Deposit is not pending")
		default:
			return DepositResult{}, errors.Internal("approve deposit", err)
		}
	}
	s.log.Info().Str("tx_id", tx.ID).Str("user_id", u.ID).Msg("deposit approved")
	return DepositResult{User: u.Public(), Transaction: tx}, nil
}

// AdjustInput is the admin-supplied patch for a user. Nil fields are
// left untouched.
type AdjustInput struct {
	Balance *decimal.Decimal `json:"balance"`
	Plan    *string          `json:"plan"`
	Status  *string          `json:"status"`
}

// AdjustUser applies an admin patch. A balance change is recorded as an
// ADMIN_ADJUST ledger row holding the signed delta.
func (s *Service) AdjustUser(ctx context.Context, userID string, in AdjustInput) (user.Public, error) {
	var details []errors.FieldError
	adj := storage.UserAdjustment{Note: noteAdminAdjust}

	// Any target balance is accepted, negative included; the ledger row
	// records the signed delta either way.
	adj.Balance = in.Balance
	if in.Plan != nil {
		if plan, ok := user.ParsePlan(*in.Plan); ok {
			adj.Plan = &plan
		} else {
			details = append(details, errors.FieldError{Path: "plan", Message: "Unknown plan"})
		}
	}
	if in.Status != nil {
		if status, ok := user.ParseStatus(*in.Status); ok {
			adj.Status = &status
		} else {
			details = append(details, errors.FieldError{Path: "status", Message: "Unknown status"})
		}
	}
	if len(details) > 0 {
		return user.Public{}, errors.Validation("Validation error", details...)
	}

	u, err := s.ledger.AdjustUser(ctx, userID, adj)
	metrics.RecordLedgerOperation("admin_adjust", err)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.Public{}, errors.NotFound("User not found")
		}
		return user.Public{}, errors.Internal("adjust user", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user adjusted")
	return u.Public(), nil
}
