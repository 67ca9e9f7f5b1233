// Package auth implements registration, login, and bearer token
// verification. User tokens are signed HS256 and live for two hours;
// the configured admin identity gets a longer-lived token and never
// touches the users table.
package auth

import (
	"context"
	"crypto/subtle"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/redvault/backend/internal/config"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/storage"
)

const (
	bcryptCost    = 12
	userTokenTTL  = 2 * time.Hour
	adminTokenTTL = 12 * time.Hour

	// adminSubject is the token subject for the configured admin, which
	// has no users row and therefore no real ID.
	adminSubject = "ADMIN"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Claims is the JWT payload carried by every bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies tokens and manages user credentials.
type Service struct {
	users  storage.UserStore
	secret []byte
	admin  config.AdminConfig
	log    zerolog.Logger
	now    func() time.Time
}

// New creates an auth Service backed by the given user store.
func New(users storage.UserStore, jwtSecret string, admin config.AdminConfig, log zerolog.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(jwtSecret),
		admin:  admin,
		log:    log.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) validate() []errors.FieldError {
	var details []errors.FieldError
	if len(strings.TrimSpace(in.Name)) < 2 {
		details = append(details, errors.FieldError{Path: "name", Message: "Name must be at least 2 characters"})
	}
	if !emailPattern.MatchString(in.Email) {
		details = append(details, errors.FieldError{Path: "email", Message: "Invalid email"})
	}
	if len(in.Password) < 6 {
		details = append(details, errors.FieldError{Path: "password", Message: "Password must be at least 6 characters"})
	}
	return details
}

// Session is the result of a successful register or login.
type Session struct {
	Token string      `json:"token"`
	User  user.Public `json:"user"`
}

// Register creates a new ACTIVE user on the Basic plan with a zero
// balance and returns a signed session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if details := in.validate(); len(details) > 0 {
		return Session{}, errors.Validation("Validation error", details...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return Session{}, errors.Internal("hash password", err)
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		Role:         user.RoleUser,
		Status:       user.StatusActive,
		Plan:         user.PlanBasic,
		Balance:      decimal.Zero,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return Session{}, errors.Conflict("Email already registered")
		}
		return Session{}, errors.Internal("create user", err)
	}

	token, err := s.signToken(created.ID, string(created.Role), userTokenTTL)
	if err != nil {
		return Session{}, errors.Internal("sign token", err)
	}
	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return Session{Token: token, User: created.Public()}, nil
}

// LoginInput is the payload accepted by Login and AdminLogin.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a stored user. Locked accounts are rejected even
// with valid credentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, errors.Unauthorized("Invalid credentials")
		}
		return Session{}, errors.Internal("lookup user", err)
	}
	if u.Status == user.StatusLocked {
		return Session{}, errors.Forbidden("Account is locked")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, errors.Unauthorized("Invalid credentials")
	}

	token, err := s.signToken(u.ID, string(u.Role), userTokenTTL)
	if err != nil {
		return Session{}, errors.Internal("sign token", err)
	}
	s.log.Info().Str("user_id", u.ID).Msg("user logged in")
	return Session{Token: token, User: u.Public()}, nil
}

// AdminSession is the result of a successful admin login.
type AdminSession struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AdminLogin authenticates against the configured admin identity only.
func (s *Service) AdminLogin(_ context.Context, in LoginInput) (AdminSession, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(in.Email)), []byte(strings.ToLower(s.admin.Email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(in.Password), []byte(s.admin.Password)) == 1
	if !emailOK || !passOK {
		return AdminSession{}, errors.Unauthorized("Invalid credentials")
	}

	token, err := s.signToken(adminSubject, string(user.RoleAdmin), adminTokenTTL)
	if err != nil {
		return AdminSession{}, errors.Internal("sign token", err)
	}
	s.log.Info().Str("email", s.admin.Email).Msg("admin logged in")
	return AdminSession{Token: token, Email: strings.ToLower(s.admin.Email), Role: string(user.RoleAdmin)}, nil
}

// VerifyToken parses and validates a bearer token, returning its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("Unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, errors.Unauthorized("Invalid or expired token")
	}
	return claims, nil
}

func (s *Service) signToken(subject, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
