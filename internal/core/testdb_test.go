package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"inventory-ledger/internal/core"
)

// setupTestDB connects to the dedicated test database, applies the schema,
// and resets it to a known seed. Set TEST_DATABASE_URL in your .env or
// environment to run integration tests.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	// Clean and seed. RESTART IDENTITY makes the seeded ids deterministic:
	// categories 1-2, suppliers 1 (active) and 2 (inactive), warehouses
	// 1 (unconstrained), 2 (capacity 100), 3 (capacity 50), 4 (inactive).
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE operations, items, warehouses, suppliers, categories, users RESTART IDENTITY CASCADE;

		INSERT INTO categories (name, code) VALUES
		('Electronics', 'ELEC'),
		('Tools', 'TOOL');

		INSERT INTO suppliers (name, code, status) VALUES
		('Acme Components', 'SUP-ACME', 'active'),
		('Basin Imports', 'SUP-BASIN', 'inactive');

		INSERT INTO warehouses (name, code, capacity, is_active) VALUES
		('Main Warehouse', 'WH-MAIN', 0, TRUE),
		('Annex', 'WH-ANNEX', 100, TRUE),
		('Vault', 'WH-VAULT', 50, TRUE),
		('Mothballed', 'WH-OLD', 0, FALSE);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// insertItem seeds an item with an explicit opening stock, bypassing the
// service layer on purpose: tests need arbitrary starting balances.
func insertItem(t *testing.T, pool *pgxpool.Pool, name, code string, warehouseID, stock, minStock int) int {
	t.Helper()
	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO items (name, code, category_id, supplier_id, warehouse_id, price, stock, min_stock, status)
		VALUES ($1, $2, 1, 1, $3, 9.50, $4, $5, $6)
		RETURNING id
	`, name, code, warehouseID, stock, minStock, core.StatusFor(stock, minStock)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert item %s: %v", code, err)
	}
	return id
}

// seedUser creates an operator through the service so the stored hash is real.
func seedUser(t *testing.T, pool *pgxpool.Pool, username, password string) *core.User {
	t.Helper()
	user, err := core.NewUserService(pool).Create(context.Background(), username, password, "Test Operator", "staff")
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
	return user
}

func itemStock(t *testing.T, pool *pgxpool.Pool, itemID int) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(), "SELECT stock FROM items WHERE id = $1", itemID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock for item %d: %v", itemID, err)
	}
	return stock
}
