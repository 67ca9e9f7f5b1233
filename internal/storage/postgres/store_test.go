package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/ledger"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/platform/migrations"
	"github.com/redvault/backend/internal/storage"
)

// testStore connects to the database named by TEST_POSTGRES_DSN and
// returns a Store over a clean schema. Tests are skipped when the
// variable is unset so the suite stays runnable without a database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range []string{"transactions", "users"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	return New(db)
}

func seedUser(t *testing.T, store *Store, email string) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         user.RoleUser,
		Status:       user.StatusActive,
		Plan:         user.PlanBasic,
		Balance:      decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	seedUser(t, store, "dup@example.com")
	_, err := store.CreateUser(ctx, user.User{
		Name:         "Other",
		Email:        "DUP@EXAMPLE.COM",
		PasswordHash: "y",
		Role:         user.RoleUser,
		Status:       user.StatusActive,
		Plan:         user.PlanBasic,
	})
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetUserByEmailCaseInsensitive(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	created := seedUser(t, store, "case@example.com")
	got, err := store.GetUserByEmail(ctx, "CASE@Example.Com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected user %s, got %s", created.ID, got.ID)
	}
}

func TestDepositCreditsBalanceAndWritesRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	u := seedUser(t, store, "deposit@example.com")
	updated, tx, err := store.Deposit(ctx, u.ID, decimal.NewFromInt(250), "Self-service deposit")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected balance 250, got %s", updated.Balance)
	}
	if tx.Status != ledger.StatusApproved || tx.Type != ledger.TypeDeposit {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	history, err := store.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 1 || history[0].ID != tx.ID {
		t.Fatalf("expected single row %s, got %+v", tx.ID, history)
	}
}

func TestApproveDepositLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	u := seedUser(t, store, "pending@example.com")
	pending, err := store.CreateTransaction(ctx, ledger.Transaction{
		UserID: u.ID,
		Type:   ledger.TypeDeposit,
		Amount: decimal.NewFromInt(100),
		Status: ledger.StatusPending,
		Note:   "User submitted deposit request",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	deposits, err := store.ListPendingDeposits(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(deposits) != 1 || deposits[0].ID != pending.ID || deposits[0].User.Email != "pending@example.com" {
		t.Fatalf("unexpected pending list %+v", deposits)
	}

	tx, owner, err := store.ApproveDeposit(ctx, pending.ID, "Approved by admin")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if tx.Status != ledger.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", tx.Status)
	}
	if !owner.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", owner.Balance)
	}

	// Second approval must fail without touching the balance again.
	if _, _, err := store.ApproveDeposit(ctx, pending.ID, ""); !errors.Is(err, storage.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	again, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !again.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance credited twice: %s", again.Balance)
	}
}

func TestApproveDepositWrongKind(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	u := seedUser(t, store, "kind@example.com")
	adjust, err := store.CreateTransaction(ctx, ledger.Transaction{
		UserID: u.ID,
		Type:   ledger.TypeAdminAdjust,
		Amount: decimal.NewFromInt(5),
		Status: ledger.StatusApproved,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if _, _, err := store.ApproveDeposit(ctx, adjust.ID, ""); !errors.Is(err, storage.ErrNotDeposit) {
		t.Fatalf("expected ErrNotDeposit, got %v", err)
	}
	if _, _, err := store.ApproveDeposit(ctx, "missing", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustUserWritesDeltaRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	u := seedUser(t, store, "adjust@example.com")
	target := decimal.NewFromInt(500)
	plan := user.PlanGold
	updated, err := store.AdjustUser(ctx, u.ID, storage.UserAdjustment{
		Balance: &target,
		Plan:    &plan,
		Note:    "Admin balance adjustment",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !updated.Balance.Equal(target) || updated.Plan != user.PlanGold {
		t.Fatalf("unexpected user after adjust %+v", updated)
	}

	history, err := store.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(history))
	}
	row := history[0]
	if row.Type != ledger.TypeAdminAdjust || !row.Amount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected adjust row %+v", row)
	}

	// Same target balance again is a no-op on the ledger.
	if _, err := store.AdjustUser(ctx, u.ID, storage.UserAdjustment{Balance: &target}); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	history, err = store.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("no-op adjust wrote a ledger row, got %d rows", len(history))
	}
}

func TestUpdatePlanUnknownUser(t *testing.T) {
	store := testStore(t)

	if _, err := store.UpdatePlan(context.Background(), "missing", user.PlanSilver); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
