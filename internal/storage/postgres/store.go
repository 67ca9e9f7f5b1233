// Package postgres implements the storage interfaces backed by
// PostgreSQL. Compound ledger operations run inside a database
// transaction with the owning user row locked, which provides the
// atomic-unit guarantee.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/ledger"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/storage"
)

const uniqueViolation = "23505"

// Store implements storage.UserStore and storage.LedgerStore.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = "id, email, name, password_hash, role, status, plan, balance, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status, &u.Plan, &u.Balance, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

const txColumns = "id, user_id, type, amount, status, note, created_at"

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var tx ledger.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Status, &tx.Note, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, status, plan, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Status, u.Plan, u.Balance, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return user.User{}, storage.ErrDuplicateEmail
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, strings.ToLower(email))
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) UpdatePlan(ctx context.Context, id string, plan user.Plan) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users SET plan = $2 WHERE id = $1
		RETURNING `+userColumns+`
	`, id, plan)
	return scanUser(row)
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) Deposit(ctx context.Context, userID string, amount decimal.Decimal, note string) (user.User, ledger.Transaction, error) {
	var (
		u  user.User
		tx ledger.Transaction
	)
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		current, err := lockUser(ctx, dbtx, userID)
		if err != nil {
			return err
		}

		tx, err = insertTransaction(ctx, dbtx, ledger.Transaction{
			UserID: userID,
			Type:   ledger.TypeDeposit,
			Amount: amount,
			Status: ledger.StatusApproved,
			Note:   note,
		})
		if err != nil {
			return err
		}

		u, err = setBalance(ctx, dbtx, userID, current.Balance.Add(amount))
		return err
	})
	if err != nil {
		return user.User{}, ledger.Transaction{}, err
	}
	return u, tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Status, tx.Note, tx.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
			return ledger.Transaction{}, storage.ErrNotFound
		}
		return ledger.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE id = $1
	`, id)
	return scanTransaction(row)
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func (s *Store) ListPendingDeposits(ctx context.Context) ([]ledger.PendingDeposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.type, t.amount, t.status, t.note, t.created_at,
		       u.id, u.name, u.email, u.balance, u.plan, u.status
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.type = $1 AND t.status = $2
		ORDER BY t.created_at DESC
	`, ledger.TypeDeposit, ledger.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.PendingDeposit
	for rows.Next() {
		var dep ledger.PendingDeposit
		err := rows.Scan(
			&dep.ID, &dep.UserID, &dep.Type, &dep.Amount, &dep.Status, &dep.Note, &dep.CreatedAt,
			&dep.User.ID, &dep.User.Name, &dep.User.Email, &dep.User.Balance, &dep.User.Plan, &dep.User.Status,
		)
		if err != nil {
			return nil, err
		}
		dep.CreatedAt = dep.CreatedAt.UTC()
		result = append(result, dep)
	}
	return result, rows.Err()
}

func (s *Store) ApproveDeposit(ctx context.Context, txID string, note string) (ledger.Transaction, user.User, error) {
	var (
		tx ledger.Transaction
		u  user.User
	)
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		row := dbtx.QueryRowContext(ctx, `
			SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE
		`, txID)
		current, err := scanTransaction(row)
		if err != nil {
			return err
		}
		if current.Type != ledger.TypeDeposit {
			return storage.ErrNotDeposit
		}
		if current.Status != ledger.StatusPending {
			return storage.ErrNotPending
		}

		owner, err := lockUser(ctx, dbtx, current.UserID)
		if err != nil {
			return err
		}

		tx = current
		tx.Status = ledger.StatusApproved
		if note != "" {
			tx.Note = note
		}
		if _, err := dbtx.ExecContext(ctx, `
			UPDATE transactions SET status = $2, note = $3 WHERE id = $1
		`, tx.ID, tx.Status, tx.Note); err != nil {
			return err
		}

		u, err = setBalance(ctx, dbtx, owner.ID, owner.Balance.Add(tx.Amount))
		return err
	})
	if err != nil {
		return ledger.Transaction{}, user.User{}, err
	}
	return tx, u, nil
}

func (s *Store) AdjustUser(ctx context.Context, userID string, adj storage.UserAdjustment) (user.User, error) {
	var u user.User
	err := s.withTx(ctx, func(dbtx *sql.Tx) error {
		current, err := lockUser(ctx, dbtx, userID)
		if err != nil {
			return err
		}

		balance := current.Balance
		if adj.Balance != nil && !adj.Balance.Equal(current.Balance) {
			delta := adj.Balance.Sub(current.Balance)
			if _, err := insertTransaction(ctx, dbtx, ledger.Transaction{
				UserID: userID,
				Type:   ledger.TypeAdminAdjust,
				Amount: delta,
				Status: ledger.StatusApproved,
				Note:   adj.Note,
			}); err != nil {
				return err
			}
			balance = *adj.Balance
		}

		plan := current.Plan
		if adj.Plan != nil {
			plan = *adj.Plan
		}
		status := current.Status
		if adj.Status != nil {
			status = *adj.Status
		}

		row := dbtx.QueryRowContext(ctx, `
			UPDATE users SET balance = $2, plan = $3, status = $4 WHERE id = $1
			RETURNING `+userColumns+`
		`, userID, balance, plan, status)
		u, err = scanUser(row)
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// --- helpers ----------------------------------------------------------------

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(dbtx); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	return dbtx.Commit()
}

func lockUser(ctx context.Context, dbtx *sql.Tx, id string) (user.User, error) {
	row := dbtx.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE
	`, id)
	return scanUser(row)
}

func setBalance(ctx context.Context, dbtx *sql.Tx, id string, balance decimal.Decimal) (user.User, error) {
	row := dbtx.QueryRowContext(ctx, `
		UPDATE users SET balance = $2 WHERE id = $1
		RETURNING `+userColumns+`
	`, id, balance)
	return scanUser(row)
}

func insertTransaction(ctx context.Context, dbtx *sql.Tx, tx ledger.Transaction) (ledger.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := dbtx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Status, tx.Note, tx.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}
