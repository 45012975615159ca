package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/fixora/tasktrail/internal/adapter/persistence"
	"github.com/fixora/tasktrail/internal/adapter/security"
	"github.com/fixora/tasktrail/internal/audit"
	"github.com/fixora/tasktrail/internal/config"
	"github.com/fixora/tasktrail/internal/domain"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/internal/requestctx"
)

// seed creates an owner account, or promotes an existing one, so a fresh
// database has someone able to manage teams and users. The write goes
// through the audited repositories and lands in the history as the
// unknown actor.
func main() {
	email := flag.String("email", getenvDefault("SEED_USER_EMAIL", "owner@example.com"), "account email")
	password := flag.String("password", getenvDefault("SEED_USER_PASSWORD", "Owner1234"), "account password")
	name := flag.String("name", getenvDefault("SEED_USER_NAME", "Owner"), "display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := requestctx.BeginScope(context.Background())
	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "tasktrail-seed",
	})

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	if err := domain.ValidatePassword(*password); err != nil {
		log.Fatalf("Invalid password: %v", err)
	}

	// The seed has no caller, so it always runs fail-open
	interceptor := audit.NewInterceptor(
		audit.NewDomainSchema(),
		persistence.NewPostgresAuditRepository(db),
		appLogger,
		audit.WithIgnoredFields(cfg.Audit.IgnoredFields...),
		audit.WithActorPolicy(audit.ActorPolicyFailOpen),
	)
	txManager := persistence.NewTxManager(db, interceptor)
	users := persistence.NewPostgresUserRepository(txManager)

	hash, err := security.NewBcryptPasswordService(cfg.Security.BcryptCost).HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = domain.NewUser(*name, *email, hash)
		if err != nil {
			log.Fatalf("Invalid account: %v", err)
		}
		user.Role = domain.RoleOwner
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create owner: %v", err)
		}
	case err != nil:
		log.Fatalf("Failed to look up account: %v", err)
	default:
		user.Role = domain.RoleOwner
		user.PasswordHash = hash
		user.UpdatedAt = time.Now().UTC()
		if err := users.Update(ctx, user); err != nil {
			log.Fatalf("Failed to promote owner: %v", err)
		}
	}

	fmt.Printf("Seeded owner: id=%d email=%s role=%s\n", user.ID, user.Email, user.Role)
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
