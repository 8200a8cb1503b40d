package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
	"github.com/techzone/commerce/internal/store"
)

func TestCreateWarrantyForOrderDetail(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "warranty@test.com")
	_, color := createTestVariant(t, db, "WAR-001", 300, 5, intPtr(12))
	addToCart(t, db, user.ID, color.ID, 1)
	order := placeTestOrder(t, db, user.ID, "")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	warranty, err := store.CreateWarrantyForOrderDetail(ctx, db, store.CreateWarrantyRequest{
		OrderDetailID: order.Details[0].ID,
		StartDate:     start,
	})
	if err != nil {
		t.Fatalf("Create warranty: %v", err)
	}

	if warranty.PeriodMonths != 12 {
		t.Errorf("Expected 12 month period, got %d", warranty.PeriodMonths)
	}
	wantEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !warranty.EndDate.UTC().Equal(wantEnd) {
		t.Errorf("Expected end date %v, got %v", wantEnd, warranty.EndDate)
	}
	if warranty.Status != models.WarrantyStatusActive {
		t.Errorf("Expected active status, got %q", warranty.Status)
	}
	if warranty.WarrantyType != "manufacturer" {
		t.Errorf("Expected default manufacturer type, got %q", warranty.WarrantyType)
	}
}

func TestCreateWarrantyIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "idempotent@test.com")
	_, color := createTestVariant(t, db, "WAR-002", 300, 5, intPtr(6))
	addToCart(t, db, user.ID, color.ID, 1)
	order := placeTestOrder(t, db, user.ID, "")

	req := store.CreateWarrantyRequest{OrderDetailID: order.Details[0].ID}

	first, err := store.CreateWarrantyForOrderDetail(ctx, db, req)
	if err != nil {
		t.Fatalf("First issuance: %v", err)
	}

	second, err := store.CreateWarrantyForOrderDetail(ctx, db, req)
	if err != nil {
		t.Fatalf("Second issuance: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected the same warranty back, got %d then %d", first.ID, second.ID)
	}

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM warranties WHERE order_detail_id = $1",
		order.Details[0].ID).Scan(&count)
	if err != nil {
		t.Fatalf("Count warranties: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 warranty row, got %d", count)
	}
}

func TestCreateWarrantyNotEligible(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "noteligible@test.com")
	_, color := createTestVariant(t, db, "WAR-003", 50, 5, nil)
	addToCart(t, db, user.ID, color.ID, 1)
	order := placeTestOrder(t, db, user.ID, "")

	_, err := store.CreateWarrantyForOrderDetail(ctx, db, store.CreateWarrantyRequest{
		OrderDetailID: order.Details[0].ID,
	})
	if !errors.Is(err, database.ErrWarrantyNotEligible) {
		t.Errorf("Expected not eligible, got: %v", err)
	}

	// An override makes the same line eligible.
	warranty, err := store.CreateWarrantyForOrderDetail(ctx, db, store.CreateWarrantyRequest{
		OrderDetailID:  order.Details[0].ID,
		OverrideMonths: intPtr(3),
		WarrantyType:   "extended",
	})
	if err != nil {
		t.Fatalf("Override issuance: %v", err)
	}
	if warranty.PeriodMonths != 3 {
		t.Errorf("Expected 3 month override period, got %d", warranty.PeriodMonths)
	}
	if warranty.WarrantyType != "extended" {
		t.Errorf("Expected extended type, got %q", warranty.WarrantyType)
	}
}

func TestCreateWarrantyUnknownOrderDetail(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.CreateWarrantyForOrderDetail(context.Background(), db, store.CreateWarrantyRequest{
		OrderDetailID: 99999,
	})
	if !errors.Is(err, database.ErrOrderDetailNotFound) {
		t.Errorf("Expected order detail not found, got: %v", err)
	}
}

func TestCreateWarrantiesForOrderFanOut(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "fanout@test.com")
	_, covered := createTestVariant(t, db, "FAN-COVERED", 200, 5, intPtr(12))
	_, bare := createTestVariant(t, db, "FAN-BARE", 20, 5, nil)
	addToCart(t, db, user.ID, covered.ID, 1)
	addToCart(t, db, user.ID, bare.ID, 2)
	order := placeTestOrder(t, db, user.ID, "")

	warranties, err := store.CreateWarrantiesForOrder(ctx, db, order.ID, time.Time{})
	if err != nil {
		t.Fatalf("Fan out: %v", err)
	}
	if len(warranties) != 1 {
		t.Fatalf("Expected 1 warranty (one line ineligible), got %d", len(warranties))
	}

	listed, err := store.ListWarrantiesByUser(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("List warranties: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected 1 warranty for user, got %d", len(listed))
	}

	// Repeating the fan-out issues nothing new.
	again, err := store.CreateWarrantiesForOrder(ctx, db, order.ID, time.Time{})
	if err != nil {
		t.Fatalf("Repeat fan out: %v", err)
	}
	if len(again) != 1 || again[0].ID != warranties[0].ID {
		t.Errorf("Expected the same single warranty on repeat, got %+v", again)
	}
}

func TestCreateWarrantiesForUnknownOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.CreateWarrantiesForOrder(context.Background(), db, 99999, time.Time{})
	if !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found, got: %v", err)
	}
}

func TestUpdateWarrantyStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "voidme@test.com")
	_, color := createTestVariant(t, db, "WAR-VOID", 100, 5, intPtr(12))
	addToCart(t, db, user.ID, color.ID, 1)
	order := placeTestOrder(t, db, user.ID, "")

	warranty, err := store.CreateWarrantyForOrderDetail(ctx, db, store.CreateWarrantyRequest{
		OrderDetailID: order.Details[0].ID,
	})
	if err != nil {
		t.Fatalf("Create warranty: %v", err)
	}

	voided, err := store.UpdateWarrantyStatus(ctx, db, warranty.ID, models.WarrantyStatusVoided)
	if err != nil {
		t.Fatalf("Void warranty: %v", err)
	}
	if voided.Status != models.WarrantyStatusVoided {
		t.Errorf("Expected voided status, got %q", voided.Status)
	}
	if voided.ValidAt(time.Now().UTC()) {
		t.Error("Voided warranty should not report valid")
	}

	_, err = store.UpdateWarrantyStatus(ctx, db, warranty.ID, "suspended")
	if !errors.Is(err, database.ErrInvalidStatus) {
		t.Errorf("Expected invalid status rejection, got: %v", err)
	}

	_, err = store.UpdateWarrantyStatus(ctx, db, 99999, models.WarrantyStatusExpired)
	if !errors.Is(err, database.ErrWarrantyNotFound) {
		t.Errorf("Expected warranty not found, got: %v", err)
	}
}
