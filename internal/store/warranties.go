package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

type CreateWarrantyRequest struct {
	OrderDetailID int64
	// OverrideMonths replaces the product's warranty period when set,
	// and makes a line without one eligible.
	OverrideMonths *int
	WarrantyType   string
	// StartDate defaults to the current time when zero.
	StartDate time.Time
}

const warrantyColumns = `
	id, order_detail_id, product_id, period_months, warranty_type, description,
	start_date, end_date, status, created_at`

func scanWarranty(row interface{ Scan(...interface{}) error }) (*models.Warranty, error) {
	w := &models.Warranty{}
	err := row.Scan(
		&w.ID,
		&w.OrderDetailID,
		&w.ProductID,
		&w.PeriodMonths,
		&w.WarrantyType,
		&w.Description,
		&w.StartDate,
		&w.EndDate,
		&w.Status,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateWarrantyForOrderDetail issues the warranty for one order line.
// Idempotent: each order detail carries at most one warranty (unique index
// on order_detail_id), and calling this again returns the existing record.
func CreateWarrantyForOrderDetail(ctx context.Context, db *sql.DB, req CreateWarrantyRequest) (*models.Warranty, error) {
	var warranty *models.Warranty

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		existing, err := getWarrantyByOrderDetail(ctx, tx, req.OrderDetailID)
		if err == nil {
			warranty = existing
			return nil
		}
		if !errors.Is(err, database.ErrWarrantyNotFound) {
			return err
		}

		var productID int64
		var productMonths sql.NullInt64
		var terms *string
		err = tx.QueryRowContext(ctx,
			`SELECT pc.product_id, p.warranty_period_months, p.warranty_terms
			 FROM order_details od
			 JOIN product_colors pc ON pc.id = od.product_color_id
			 JOIN products p ON p.id = pc.product_id
			 WHERE od.id = $1`,
			req.OrderDetailID).Scan(&productID, &productMonths, &terms)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderDetailNotFound
			}
			return fmt.Errorf("get order detail: %w", err)
		}

		months := 0
		switch {
		case req.OverrideMonths != nil:
			months = *req.OverrideMonths
		case productMonths.Valid:
			months = int(productMonths.Int64)
		default:
			return database.ErrWarrantyNotEligible
		}
		if months <= 0 {
			return database.ErrWarrantyNotEligible
		}

		warrantyType := req.WarrantyType
		if warrantyType == "" {
			warrantyType = "manufacturer"
		}

		startDate := req.StartDate
		if startDate.IsZero() {
			startDate = time.Now().UTC()
		}
		endDate := startDate.AddDate(0, months, 0)

		row := tx.QueryRowContext(ctx,
			`INSERT INTO warranties (order_detail_id, product_id, period_months, warranty_type,
			                         description, start_date, end_date, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			 ON CONFLICT (order_detail_id) DO NOTHING
			 RETURNING `+warrantyColumns,
			req.OrderDetailID, productID, months, warrantyType, terms,
			startDate, endDate, models.WarrantyStatusActive)

		warranty, err = scanWarranty(row)
		if err == sql.ErrNoRows {
			// Lost a race with a concurrent issuance; hand back theirs.
			warranty, err = getWarrantyByOrderDetail(ctx, tx, req.OrderDetailID)
		}
		if err != nil {
			return fmt.Errorf("create warranty: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return warranty, nil
}

// CreateWarrantiesForOrder fans warranty issuance out over every line of an
// order. Best-effort: a line whose product carries no warranty period
// simply produces nothing, unlike the all-or-nothing checkout.
func CreateWarrantiesForOrder(ctx context.Context, db *sql.DB, orderID int64, startDate time.Time) ([]models.Warranty, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, database.ErrOrderNotFound
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id FROM order_details WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	defer rows.Close()

	var detailIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order detail id: %w", err)
		}
		detailIDs = append(detailIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	var warranties []models.Warranty
	for _, detailID := range detailIDs {
		w, err := CreateWarrantyForOrderDetail(ctx, db, CreateWarrantyRequest{
			OrderDetailID: detailID,
			StartDate:     startDate,
		})
		if err != nil {
			if errors.Is(err, database.ErrWarrantyNotEligible) {
				continue
			}
			return warranties, err
		}
		warranties = append(warranties, *w)
	}

	return warranties, nil
}

func getWarrantyByOrderDetail(ctx context.Context, q querier, orderDetailID int64) (*models.Warranty, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+warrantyColumns+` FROM warranties WHERE order_detail_id = $1`,
		orderDetailID)

	w, err := scanWarranty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrWarrantyNotFound
		}
		return nil, fmt.Errorf("get warranty by order detail: %w", err)
	}

	return w, nil
}

func GetWarranty(ctx context.Context, db *sql.DB, id int64) (*models.Warranty, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+warrantyColumns+` FROM warranties WHERE id = $1`, id)

	w, err := scanWarranty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrWarrantyNotFound
		}
		return nil, fmt.Errorf("get warranty: %w", err)
	}

	return w, nil
}

func ListWarrantiesByUser(ctx context.Context, db *sql.DB, userID int64) ([]models.Warranty, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT w.id, w.order_detail_id, w.product_id, w.period_months, w.warranty_type,
		        w.description, w.start_date, w.end_date, w.status, w.created_at
		 FROM warranties w
		 JOIN order_details od ON od.id = w.order_detail_id
		 JOIN orders o ON o.id = od.order_id
		 WHERE o.user_id = $1
		 ORDER BY w.created_at DESC, w.id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list warranties: %w", err)
	}
	defer rows.Close()

	var warranties []models.Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warranty: %w", err)
		}
		warranties = append(warranties, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return warranties, nil
}

// UpdateWarrantyStatus sets the stored status directly. There is no sweep
// flipping warranties to expired; readers compute validity from the dates
// via Warranty.ValidAt and must not trust the stored status alone.
func UpdateWarrantyStatus(ctx context.Context, db *sql.DB, id int64, status string) (*models.Warranty, error) {
	if !models.ValidWarrantyStatus(status) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}

	row := db.QueryRowContext(ctx,
		`UPDATE warranties
		 SET status = $1
		 WHERE id = $2
		 RETURNING `+warrantyColumns,
		status, id)

	w, err := scanWarranty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrWarrantyNotFound
		}
		return nil, fmt.Errorf("update warranty status: %w", err)
	}

	return w, nil
}
