package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

type SubmitClaimRequest struct {
	WarrantyID       int64
	UserID           int64
	IssueDescription string
	IssueImageURLs   []string
}

const claimColumns = `
	id, warranty_id, user_id, issue_description, issue_images, status,
	admin_notes, submitted_at, resolved_at`

func scanClaim(row interface{ Scan(...interface{}) error }) (*models.WarrantyClaim, error) {
	c := &models.WarrantyClaim{}
	err := row.Scan(
		&c.ID,
		&c.WarrantyID,
		&c.UserID,
		&c.IssueDescription,
		pq.Array(&c.IssueImages),
		&c.Status,
		&c.AdminNotes,
		&c.SubmittedAt,
		&c.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitClaim files a customer claim against a warranty. The warranty must
// be currently valid: filing against an expired or voided one is refused
// with a WarrantyValidityError reporting the computed validity. A warranty
// may accumulate several claims over its life (resubmission after a
// rejection is a new claim).
func SubmitClaim(ctx context.Context, db *sql.DB, req SubmitClaimRequest) (*models.WarrantyClaim, error) {
	var claim *models.WarrantyClaim

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+warrantyColumns+` FROM warranties WHERE id = $1`,
			req.WarrantyID)

		warranty, err := scanWarranty(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrWarrantyNotFound
			}
			return fmt.Errorf("get warranty: %w", err)
		}

		now := time.Now().UTC()
		if !warranty.ValidAt(now) {
			return &database.WarrantyValidityError{
				WarrantyID: warranty.ID,
				Status:     warranty.Status,
				StartDate:  warranty.StartDate,
				EndDate:    warranty.EndDate,
				CheckedAt:  now,
			}
		}

		row = tx.QueryRowContext(ctx,
			`INSERT INTO warranty_claims (warranty_id, user_id, issue_description, issue_images,
			                              status, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING `+claimColumns,
			req.WarrantyID, req.UserID, req.IssueDescription,
			pq.Array(req.IssueImageURLs), models.ClaimStatusPending)

		claim, err = scanClaim(row)
		if err != nil {
			return fmt.Errorf("create claim: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

func GetClaim(ctx context.Context, db *sql.DB, id int64) (*models.WarrantyClaim, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM warranty_claims WHERE id = $1`, id)

	claim, err := scanClaim(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}

	return claim, nil
}

// UpdateClaimStatus applies a staff transition. Moving into a terminal
// status (rejected, completed) stamps ResolvedAt; moving into a
// non-terminal one clears it.
func UpdateClaimStatus(ctx context.Context, db *sql.DB, claimID int64, newStatus string, adminNotes *string) (*models.WarrantyClaim, error) {
	if !models.ValidClaimStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, newStatus)
	}

	var claim *models.WarrantyClaim

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM warranty_claims WHERE id = $1 FOR UPDATE`,
			claimID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrClaimNotFound
			}
			return fmt.Errorf("lock claim: %w", err)
		}

		if !models.ValidClaimTransition(current, newStatus) {
			return &database.TransitionError{Entity: "warranty claim", From: current, To: newStatus}
		}

		var row *sql.Row
		if models.ClaimStatusTerminal(newStatus) {
			row = tx.QueryRowContext(ctx,
				`UPDATE warranty_claims
				 SET status = $1, admin_notes = COALESCE($2, admin_notes), resolved_at = NOW()
				 WHERE id = $3
				 RETURNING `+claimColumns,
				newStatus, adminNotes, claimID)
		} else {
			row = tx.QueryRowContext(ctx,
				`UPDATE warranty_claims
				 SET status = $1, admin_notes = COALESCE($2, admin_notes), resolved_at = NULL
				 WHERE id = $3
				 RETURNING `+claimColumns,
				newStatus, adminNotes, claimID)
		}

		claim, err = scanClaim(row)
		if err != nil {
			return fmt.Errorf("update claim status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

func ListClaimsByWarranty(ctx context.Context, db *sql.DB, warrantyID int64) ([]models.WarrantyClaim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`
		 FROM warranty_claims
		 WHERE warranty_id = $1
		 ORDER BY submitted_at DESC, id DESC`,
		warrantyID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []models.WarrantyClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, *claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return claims, nil
}

func ListClaims(ctx context.Context, db *sql.DB, status string, page, pageSize int) (*OffsetPage, error) {
	if status != "" && !models.ValidClaimStatus(status) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM warranty_claims WHERE ($1 = '' OR status = $1)`,
		status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`
		 FROM warranty_claims
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []models.WarrantyClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, *claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      claims,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
