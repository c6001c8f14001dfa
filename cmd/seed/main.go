package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/usecase/user_management"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/infrastructure/persistence/postgres"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/infrastructure/service/password"
)

// Demo principals for local development.
var seeds = []inbound.CreateUserRequest{
	{Username: "alice", Email: "alice@example.com", FullName: "Alice Customer", Role: "customer"},
	{Username: "admin", Email: "admin@example.com", FullName: "Store Admin", Role: "admin"},
}

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	secret := getenvDefault("SEED_PASSWORD", "correct-secret")

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	createUser := user_management.NewCreateUserUseCase(
		postgres.NewPrincipalRepository(db),
		password.NewBcryptPasswordService(10),
		logger.NewStructuredLogger(logger.LoggerConfig{Level: "warn", Format: "text", ServiceName: "seed"}),
	)

	for _, seed := range seeds {
		seed.Password = secret
		summary, err := createUser.Execute(ctx, seed)
		switch {
		case domainerror.HasCode(err, domainerror.ErrCodeIdentifierConflict):
			log.Printf("skip %s: already exists", seed.Username)
		case err != nil:
			log.Fatalf("failed to seed %s: %v", seed.Username, err)
		default:
			log.Printf("seeded %s (%s) id=%s", summary.Username, summary.Role, summary.ID)
		}
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
