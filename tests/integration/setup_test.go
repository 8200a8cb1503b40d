package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/techzone/commerce/internal/models"
	"github.com/techzone/commerce/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db, email, "Test User")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

// createTestVariant creates a product with a single color variant holding
// the given stock. warrantyMonths may be nil for a product without
// warranty coverage.
func createTestVariant(t *testing.T, db *sql.DB, sku string, price int64, stock int, warrantyMonths *int) (*models.Product, *models.ProductColor) {
	t.Helper()
	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
		SKU:                  sku,
		Name:                 "Product " + sku,
		Description:          "Test",
		Price:                decimal.NewFromInt(price),
		WarrantyPeriodMonths: warrantyMonths,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	color, err := store.CreateProductColor(ctx, db, product.ID, "black", stock)
	if err != nil {
		t.Fatalf("Create product color: %v", err)
	}

	return product, color
}

func addToCart(t *testing.T, db *sql.DB, userID, colorID int64, qty int) {
	t.Helper()

	if _, err := store.AddCartItem(context.Background(), db, userID, colorID, qty); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}
}

func placeTestOrder(t *testing.T, db *sql.DB, userID int64, promoCode string) *models.Order {
	t.Helper()

	order, err := store.PlaceOrder(context.Background(), db, store.PlaceOrderRequest{
		UserID:          userID,
		PromotionCode:   promoCode,
		FullName:        "Test User",
		Phone:           "555-0100",
		ShippingAddress: "1 Test Street",
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}
	return order
}

func intPtr(v int) *int { return &v }
