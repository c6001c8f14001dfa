package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/term"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/usecase/user_management"
	"github.com/techstore/storefront/infrastructure/persistence/postgres"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/infrastructure/service/password"
)

func main() {
	username := flag.String("username", "admin", "username of the new account")
	email := flag.String("email", "admin@example.com", "email of the new account")
	fullName := flag.String("name", "Administrator", "display name")
	role := flag.String("role", "admin", "admin or moderator")
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()

	if *role != "admin" && *role != "moderator" {
		log.Fatalf("role must be admin or moderator, got %q", *role)
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	secret := os.Getenv("ADMIN_PASSWORD")
	if secret == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
		secret = string(raw)
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	createUser := user_management.NewCreateUserUseCase(
		postgres.NewPrincipalRepository(db),
		password.NewBcryptPasswordService(*cost),
		logger.NewStructuredLogger(logger.LoggerConfig{Level: "info", Format: "text", ServiceName: "create-admin"}),
	)

	summary, err := createUser.Execute(ctx, inbound.CreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: secret,
		FullName: *fullName,
		Role:     *role,
	})
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *role, err)
	}

	fmt.Printf("Created %s %s (%s) with id %s\n", summary.Role, summary.Username, summary.Email, summary.ID)
}
