// Command seed-admin creates an ADMIN users row, or promotes an
// existing account, so the dashboard can be operated by a stored user
// in addition to the configured admin identity.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/redvault/backend/internal/config"
	"github.com/redvault/backend/internal/domain/user"
	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/logging"
	"github.com/redvault/backend/internal/platform/migrations"
	"github.com/redvault/backend/internal/storage"
	"github.com/redvault/backend/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	log := logging.NewDefault("seed-admin")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	email := os.Getenv("ADMIN_SEED_EMAIL")
	if email == "" {
		email = cfg.Admin.Email
	}
	password := os.Getenv("ADMIN_SEED_PASSWORD")
	if password == "" {
		password = cfg.Admin.Password
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}

	store := postgres.New(db)
	created, err := store.CreateUser(ctx, user.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
		Status:       user.StatusActive,
		Plan:         user.PlanBasic,
		Balance:      decimal.Zero,
	})
	switch {
	case err == nil:
		log.Info().Str("email", created.Email).Msg("admin user created")
	case errors.Is(err, storage.ErrDuplicateEmail):
		// Promote the existing account and rotate its credentials.
		_, err := db.ExecContext(ctx, `
			UPDATE users SET role = $2, status = $3, password_hash = $4
			WHERE email = LOWER($1)
		`, email, user.RoleAdmin, user.StatusActive, string(hash))
		if err != nil {
			log.Fatal().Err(err).Msg("promote existing user")
		}
		log.Info().Str("email", email).Msg("existing user promoted to admin")
	default:
		log.Fatal().Err(err).Msg("create admin user")
	}
}
