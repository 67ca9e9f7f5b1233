package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redvault/backend/internal/config"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/logging"
	"github.com/redvault/backend/internal/storage"
	"github.com/redvault/backend/internal/storage/memory"
)

func testService(t *testing.T) *Service {
	t.Helper()
	admin := config.AdminConfig{Email: "admin@redvault.local", Password: "changeme123"}
	return New(memory.New(), "test-secret", admin, logging.NewDefault("test"))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token")
	}
	if session.User.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %s", session.User.Email)
	}
	if session.User.Role != user.RoleUser || session.User.Plan != user.PlanBasic || session.User.Status != user.StatusActive {
		t.Fatalf("unexpected new user defaults %+v", session.User)
	}
	if !session.User.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", session.User.Balance)
	}

	again, err := svc.Login(ctx, LoginInput{Email: "ALICE@example.COM", Password: "password1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if again.User.ID != session.User.ID {
		t.Fatalf("login returned wrong user %s", again.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := testService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "not-an-email", Password: "123"})
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil || serviceErr.Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(serviceErr.Details) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", serviceErr.Details)
	}
	paths := map[string]bool{}
	for _, d := range serviceErr.Details {
		paths[d.Path] = true
	}
	for _, want := range []string{"name", "email", "password"} {
		if !paths[want] {
			t.Fatalf("missing field error for %q in %+v", want, serviceErr.Details)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	in := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in.Email = "ALICE@EXAMPLE.COM"
	_, err := svc.Register(ctx, in)
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil || serviceErr.Code != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	if got := errors.GetServiceError(err); got == nil || got.Code != errors.CodeUnauthorized {
		t.Fatalf("unknown email: expected unauthorized, got %v", err)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	if got := errors.GetServiceError(err); got == nil || got.Code != errors.CodeUnauthorized {
		t.Fatalf("wrong password: expected unauthorized, got %v", err)
	}
}

func TestLoginLockedAccount(t *testing.T) {
	store := memory.New()
	admin := config.AdminConfig{Email: "admin@redvault.local", Password: "changeme123"}
	svc := New(store, "test-secret", admin, logging.NewDefault("test"))
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	locked := user.StatusLocked
	if _, err := store.AdjustUser(ctx, session.User.ID, storage.UserAdjustment{Status: &locked}); err != nil {
		t.Fatalf("lock user: %v", err)
	}

	// Locked beats wrong password: the account state is reported even
	// when credentials would not have matched.
	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "password1"})
	if got := errors.GetServiceError(err); got == nil || got.Code != errors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	session, err := svc.AdminLogin(ctx, LoginInput{Email: "Admin@RedVault.local", Password: "changeme123"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if session.Role != string(user.RoleAdmin) {
		t.Fatalf("expected ADMIN role, got %s", session.Role)
	}

	claims, err := svc.VerifyToken(session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != adminSubject || claims.Role != string(user.RoleAdmin) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = svc.AdminLogin(ctx, LoginInput{Email: "admin@redvault.local", Password: "wrong"})
	if got := errors.GetServiceError(err); got == nil || got.Code != errors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// A stored user with the admin's email must not pass AdminLogin
	// with their own password.
	if _, err := svc.Register(ctx, RegisterInput{Name: "Imposter", Email: "admin@redvault.local", Password: "different1"}); err != nil {
		t.Fatalf("register imposter: %v", err)
	}
	_, err = svc.AdminLogin(ctx, LoginInput{Email: "admin@redvault.local", Password: "different1"})
	if got := errors.GetServiceError(err); got == nil || got.Code != errors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for imposter, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbageAndExpiry(t *testing.T) {
	svc := testService(t)

	if _, err := svc.VerifyToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}

	session, err := svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := svc.VerifyToken(session.Token)
	if err != nil {
		t.Fatalf("verify fresh token: %v", err)
	}
	if claims.Subject != session.User.ID || claims.Role != string(user.RoleUser) {
		t.Fatalf("unexpected claims %+v", claims)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != userTokenTTL {
		t.Fatalf("expected %s token lifetime, got %s", userTokenTTL, ttl)
	}

	svc.now = func() time.Time { return time.Now().Add(userTokenTTL + time.Minute) }
	if _, err := svc.VerifyToken(session.Token); err == nil {
		t.Fatal("expected error for expired token")
	}

	// Same token, different secret.
	other := New(memory.New(), "other-secret", config.AdminConfig{Email: "a@b.c", Password: "p"}, logging.NewDefault("test"))
	if _, err := other.VerifyToken(session.Token); err == nil {
		t.Fatal("expected error for wrong signing key")
	}
}
