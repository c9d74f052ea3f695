package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
)

// Creates an operator account. Intended for bootstrap and ops use:
//
//	go run ./cmd/adduser -username admin -password change-me -name "Admin" -role admin
func main() {
	_ = godotenv.Load()

	username := flag.String("username", "", "login name")
	password := flag.String("password", "", "initial password (min 8 chars)")
	fullName := flag.String("name", "", "display name")
	role := flag.String("role", "staff", "role: staff or admin")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		fmt.Printf("Failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	user, err := core.NewUserService(pool).Create(ctx, *username, *password, *fullName, *role)
	if err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
}
