// Package memory provides an in-memory storage implementation. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/domain/ledger"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/storage"
)

// Store implements storage.UserStore and storage.LedgerStore with maps.
// Its mutex is held across compound operations, which makes each of them
// an atomic unit.
type Store struct {
	mu           sync.RWMutex
	seq          int64
	users        map[string]user.User
	usersByEmail map[string]string
	userSeq      map[string]int64
	transactions map[string]ledger.Transaction
	txSeq        map[string]int64
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		userSeq:      make(map[string]int64),
		transactions: make(map[string]ledger.Transaction),
		txSeq:        make(map[string]int64),
	}
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return user.User{}, storage.ErrDuplicateEmail
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	s.seq++
	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	s.userSeq[u.ID] = s.seq
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		return s.userSeq[result[i].ID] > s.userSeq[result[j].ID]
	})
	return result, nil
}

func (s *Store) UpdatePlan(ctx context.Context, id string, plan user.Plan) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	u.Plan = plan
	s.users[id] = u
	return u, nil
}

func (s *Store) Deposit(ctx context.Context, userID string, amount decimal.Decimal, note string) (user.User, ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, ledger.Transaction{}, storage.ErrNotFound
	}

	tx := s.appendLocked(ledger.Transaction{
		UserID: userID,
		Type:   ledger.TypeDeposit,
		Amount: amount,
		Status: ledger.StatusApproved,
		Note:   note,
	})
	u.Balance = u.Balance.Add(amount)
	s.users[userID] = u
	return u, tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tx.UserID]; !ok {
		return ledger.Transaction{}, storage.ErrNotFound
	}
	return s.appendLocked(tx), nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ledger.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			result = append(result, tx)
		}
	}
	s.sortNewestFirst(result)
	return result, nil
}

func (s *Store) ListPendingDeposits(ctx context.Context) ([]ledger.PendingDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []ledger.Transaction
	for _, tx := range s.transactions {
		if tx.Type == ledger.TypeDeposit && tx.Status == ledger.StatusPending {
			pending = append(pending, tx)
		}
	}
	s.sortNewestFirst(pending)

	result := make([]ledger.PendingDeposit, 0, len(pending))
	for _, tx := range pending {
		owner := s.users[tx.UserID]
		result = append(result, ledger.PendingDeposit{
			Transaction: tx,
			User: ledger.OwnerSummary{
				ID:      owner.ID,
				Name:    owner.Name,
				Email:   owner.Email,
				Balance: owner.Balance,
				Plan:    owner.Plan,
				Status:  owner.Status,
			},
		})
	}
	return result, nil
}

func (s *Store) ApproveDeposit(ctx context.Context, txID string, note string) (ledger.Transaction, user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return ledger.Transaction{}, user.User{}, storage.ErrNotFound
	}
	if tx.Type != ledger.TypeDeposit {
		return ledger.Transaction{}, user.User{}, storage.ErrNotDeposit
	}
	if tx.Status != ledger.StatusPending {
		return ledger.Transaction{}, user.User{}, storage.ErrNotPending
	}

	u, ok := s.users[tx.UserID]
	if !ok {
		return ledger.Transaction{}, user.User{}, storage.ErrNotFound
	}

	tx.Status = ledger.StatusApproved
	if note != "" {
		tx.Note = note
	}
	u.Balance = u.Balance.Add(tx.Amount)

	s.transactions[txID] = tx
	s.users[u.ID] = u
	return tx, u, nil
}

func (s *Store) AdjustUser(ctx context.Context, userID string, adj storage.UserAdjustment) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}

	if adj.Balance != nil && !adj.Balance.Equal(u.Balance) {
		delta := adj.Balance.Sub(u.Balance)
		s.appendLocked(ledger.Transaction{
			UserID: userID,
			Type:   ledger.TypeAdminAdjust,
			Amount: delta,
			Status: ledger.StatusApproved,
			Note:   adj.Note,
		})
		u.Balance = *adj.Balance
	}
	if adj.Plan != nil {
		u.Plan = *adj.Plan
	}
	if adj.Status != nil {
		u.Status = *adj.Status
	}

	s.users[userID] = u
	return u, nil
}

// appendLocked inserts a transaction; callers must hold the write lock.
func (s *Store) appendLocked(tx ledger.Transaction) ledger.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.transactions[tx.ID] = tx
	s.txSeq[tx.ID] = s.seq
	return tx
}

func (s *Store) sortNewestFirst(txs []ledger.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return s.txSeq[txs[i].ID] > s.txSeq[txs[j].ID]
	})
}
