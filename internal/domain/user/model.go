package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role distinguishes ordinary account holders from administrators.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Status controls whether an account may authenticate.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusLocked Status = "LOCKED"
)

// Plan is the subscription tier selected after signup.
type Plan string

const (
	PlanBasic    Plan = "Basic"
	PlanSilver   Plan = "Silver"
	PlanGold     Plan = "Gold"
	PlanPlatinum Plan = "Platinum"
)

// ParsePlan validates a client-supplied plan name.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanBasic, PlanSilver, PlanGold, PlanPlatinum:
		return Plan(s), true
	}
	return "", false
}

// ParseStatus validates a client-supplied account status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusLocked:
		return Status(s), true
	}
	return "", false
}

// User is a registered account. Email is stored lower-cased and is unique.
type User struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Email        string          `db:"email"`
	PasswordHash string          `db:"password_hash"`
	Role         Role            `db:"role"`
	Status       Status          `db:"status"`
	Plan         Plan            `db:"plan"`
	Balance      decimal.Decimal `db:"balance"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Public is the client-facing view of a user. It never carries the
// password hash.
type Public struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      Role            `json:"role"`
	Status    Status          `json:"status"`
	Plan      Plan            `json:"plan"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Public returns the client-facing view of u.
func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		Plan:      u.Plan,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}
