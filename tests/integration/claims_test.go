package integration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
	"github.com/techzone/commerce/internal/store"
)

func issueTestWarranty(t *testing.T, db *sql.DB, email, sku string, start time.Time) (*models.User, *models.Warranty) {
	t.Helper()

	user := createTestUser(t, db, email)
	_, color := createTestVariant(t, db, sku, 400, 5, intPtr(12))
	addToCart(t, db, user.ID, color.ID, 1)
	order := placeTestOrder(t, db, user.ID, "")

	warranty, err := store.CreateWarrantyForOrderDetail(context.Background(), db, store.CreateWarrantyRequest{
		OrderDetailID: order.Details[0].ID,
		StartDate:     start,
	})
	if err != nil {
		t.Fatalf("Create warranty: %v", err)
	}
	return user, warranty
}

func TestSubmitClaim(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "claim@test.com", "CLM-001", time.Time{})

	claim, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Screen flickers under load",
		IssueImageURLs:   []string{"https://img.example.com/flicker1.jpg", "https://img.example.com/flicker2.jpg"},
	})
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	if claim.Status != models.ClaimStatusPending {
		t.Errorf("Expected pending status, got %q", claim.Status)
	}
	if claim.ResolvedAt != nil {
		t.Errorf("Expected nil resolved_at on submission, got %v", claim.ResolvedAt)
	}
	if len(claim.IssueImages) != 2 {
		t.Errorf("Expected 2 issue images, got %v", claim.IssueImages)
	}
}

func TestSubmitClaimExpiredWarranty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Coverage ran out two years ago.
	start := time.Now().UTC().AddDate(-3, 0, 0)
	user, warranty := issueTestWarranty(t, db, "expired@test.com", "CLM-002", start)

	_, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Battery dead",
	})

	var validityErr *database.WarrantyValidityError
	if !errors.As(err, &validityErr) {
		t.Fatalf("Expected validity error, got: %v", err)
	}
	if validityErr.WarrantyID != warranty.ID {
		t.Errorf("Expected warranty id %d in error, got %d", warranty.ID, validityErr.WarrantyID)
	}
	if !errors.Is(err, database.ErrWarrantyNotValid) {
		t.Errorf("Expected wrap of ErrWarrantyNotValid, got: %v", err)
	}
}

func TestSubmitClaimVoidedWarranty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "voided@test.com", "CLM-003", time.Time{})

	if _, err := store.UpdateWarrantyStatus(ctx, db, warranty.ID, models.WarrantyStatusVoided); err != nil {
		t.Fatalf("Void warranty: %v", err)
	}

	_, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Spontaneous shutdowns",
	})
	if !errors.Is(err, database.ErrWarrantyNotValid) {
		t.Errorf("Expected validity rejection for voided warranty, got: %v", err)
	}
}

func TestSubmitClaimUnknownWarranty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	user := createTestUser(t, db, "lost@test.com")
	_, err := store.SubmitClaim(context.Background(), db, store.SubmitClaimRequest{
		WarrantyID:       99999,
		UserID:           user.ID,
		IssueDescription: "Does not exist",
	})
	if !errors.Is(err, database.ErrWarrantyNotFound) {
		t.Errorf("Expected warranty not found, got: %v", err)
	}
}

func TestClaimResolutionStampsResolvedAt(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "resolve@test.com", "CLM-004", time.Time{})

	claim, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Keyboard ghosting",
	})
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	approved, err := store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusApproved, nil)
	if err != nil {
		t.Fatalf("Approve claim: %v", err)
	}
	if approved.ResolvedAt != nil {
		t.Errorf("Approved is not terminal; resolved_at should stay nil, got %v", approved.ResolvedAt)
	}

	inProgress, err := store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusInProgress, nil)
	if err != nil {
		t.Fatalf("Start repair: %v", err)
	}
	if inProgress.ResolvedAt != nil {
		t.Errorf("In progress should keep resolved_at nil, got %v", inProgress.ResolvedAt)
	}

	notes := "Replaced keyboard assembly"
	completed, err := store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusCompleted, &notes)
	if err != nil {
		t.Fatalf("Complete claim: %v", err)
	}
	if completed.ResolvedAt == nil {
		t.Error("Completed claim should carry resolved_at")
	}
	if completed.AdminNotes == nil || *completed.AdminNotes != notes {
		t.Errorf("Expected admin notes %q, got %v", notes, completed.AdminNotes)
	}
}

func TestClaimRejectionIsTerminal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "reject@test.com", "CLM-005", time.Time{})

	claim, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Cosmetic scratch",
	})
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	notes := "Cosmetic damage not covered"
	rejected, err := store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusRejected, &notes)
	if err != nil {
		t.Fatalf("Reject claim: %v", err)
	}
	if rejected.ResolvedAt == nil {
		t.Error("Rejected claim should carry resolved_at")
	}

	_, err = store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusApproved, nil)
	var transErr *database.TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("Expected transition rejection out of terminal state, got: %v", err)
	}
	if transErr.From != models.ClaimStatusRejected || transErr.To != models.ClaimStatusApproved {
		t.Errorf("Unexpected transition error detail: %+v", transErr)
	}

	// Resubmission after a rejection is a fresh claim.
	second, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Scratch now a crack",
	})
	if err != nil {
		t.Fatalf("Resubmit claim: %v", err)
	}
	if second.ID == claim.ID {
		t.Error("Resubmission should create a new claim")
	}

	claims, err := store.ListClaimsByWarranty(ctx, db, warranty.ID)
	if err != nil {
		t.Fatalf("List claims: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("Expected 2 claims on warranty, got %d", len(claims))
	}
}

func TestClaimStatusValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "skip@test.com", "CLM-006", time.Time{})

	claim, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Fan noise",
	})
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	// pending cannot jump straight to completed.
	_, err = store.UpdateClaimStatus(ctx, db, claim.ID, models.ClaimStatusCompleted, nil)
	if !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition, got: %v", err)
	}

	_, err = store.UpdateClaimStatus(ctx, db, claim.ID, "escalated", nil)
	if !errors.Is(err, database.ErrInvalidStatus) {
		t.Errorf("Expected invalid status, got: %v", err)
	}

	_, err = store.UpdateClaimStatus(ctx, db, 99999, models.ClaimStatusApproved, nil)
	if !errors.Is(err, database.ErrClaimNotFound) {
		t.Errorf("Expected claim not found, got: %v", err)
	}
}

func TestListClaimsFilter(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user, warranty := issueTestWarranty(t, db, "filter@test.com", "CLM-007", time.Time{})

	first, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Port loose",
	})
	if err != nil {
		t.Fatalf("Submit claim: %v", err)
	}
	if _, err := store.UpdateClaimStatus(ctx, db, first.ID, models.ClaimStatusRejected, nil); err != nil {
		t.Fatalf("Reject claim: %v", err)
	}

	if _, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
		WarrantyID:       warranty.ID,
		UserID:           user.ID,
		IssueDescription: "Hinge stiff",
	}); err != nil {
		t.Fatalf("Submit claim: %v", err)
	}

	page, err := store.ListClaims(ctx, db, models.ClaimStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("List pending claims: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("Expected 1 pending claim, got %d", page.Total)
	}

	all, err := store.ListClaims(ctx, db, "", 1, 10)
	if err != nil {
		t.Fatalf("List all claims: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("Expected 2 claims total, got %d", all.Total)
	}

	if _, err := store.ListClaims(ctx, db, "bogus", 1, 10); !errors.Is(err, database.ErrInvalidStatus) {
		t.Errorf("Expected invalid status filter rejection, got: %v", err)
	}
}
