package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx so promotion lookups can
// run inside the checkout transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type CreatePromotionRequest struct {
	Code               string
	Description        string
	DiscountPercentage decimal.Decimal
	StartsAt           time.Time
	EndsAt             time.Time
	ProductIDs         []int64
}

func CreatePromotion(ctx context.Context, db *sql.DB, req CreatePromotionRequest) (*models.Promotion, error) {
	var promo *models.Promotion

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		p := &models.Promotion{}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO promotions (code, description, discount_percentage, starts_at, ends_at, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			 RETURNING id, code, description, discount_percentage, starts_at, ends_at, status, created_at, updated_at`,
			req.Code, req.Description, req.DiscountPercentage, req.StartsAt, req.EndsAt,
			promotionLabel(req.StartsAt, req.EndsAt, time.Now())).Scan(
			&p.ID,
			&p.Code,
			&p.Description,
			&p.DiscountPercentage,
			&p.StartsAt,
			&p.EndsAt,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create promotion: %w", err)
		}

		for _, productID := range req.ProductIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO promotion_products (promotion_id, product_id)
				 VALUES ($1, $2)`,
				p.ID, productID)
			if err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("scope promotion to product %d: %w", productID, err)
			}
		}
		p.ProductIDs = req.ProductIDs

		promo = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return promo, nil
}

func GetPromotionByCode(ctx context.Context, q querier, code string) (*models.Promotion, error) {
	p := &models.Promotion{}

	query := `
		SELECT p.id, p.code, p.description, p.discount_percentage, p.starts_at, p.ends_at,
		       p.status, p.created_at, p.updated_at,
		       COALESCE((SELECT array_agg(pp.product_id ORDER BY pp.product_id)
		                 FROM promotion_products pp
		                 WHERE pp.promotion_id = p.id), '{}')
		FROM promotions p
		WHERE p.code = $1`

	err := q.QueryRowContext(ctx, query, code).Scan(
		&p.ID,
		&p.Code,
		&p.Description,
		&p.DiscountPercentage,
		&p.StartsAt,
		&p.EndsAt,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		pq.Array(&p.ProductIDs),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}

	return p, nil
}

// ResolvePromotion validates a code for a checkout happening at now against
// the product ids in the cart. Activity is computed from the validity
// window; the stored status label is never consulted. A scoped promotion
// must cover at least one cart product, and then discounts the whole order
// subtotal (apply-to-all-or-nothing).
func ResolvePromotion(ctx context.Context, q querier, code string, now time.Time, cartProductIDs []int64) (*models.Promotion, error) {
	p, err := GetPromotionByCode(ctx, q, code)
	if err != nil {
		return nil, err
	}

	if now.Before(p.StartsAt) {
		return nil, &database.PromotionError{Code: code, Reason: database.PromotionFailNotStarted}
	}
	if !now.Before(p.EndsAt) {
		return nil, &database.PromotionError{Code: code, Reason: database.PromotionFailExpired}
	}

	if p.Scoped() {
		covered := false
		scope := make(map[int64]bool, len(p.ProductIDs))
		for _, id := range p.ProductIDs {
			scope[id] = true
		}
		for _, id := range cartProductIDs {
			if scope[id] {
				covered = true
				break
			}
		}
		if !covered {
			return nil, &database.PromotionError{Code: code, Reason: database.PromotionFailOutOfScope}
		}
	}

	return p, nil
}

// RefreshPromotionStatus recomputes the advisory status label from the
// window. Display-only; checkout never trusts the label.
func RefreshPromotionStatus(ctx context.Context, db *sql.DB, id int64) (*models.Promotion, error) {
	p := &models.Promotion{}

	query := `
		UPDATE promotions
		SET status = CASE
			WHEN NOW() < starts_at THEN 'scheduled'
			WHEN NOW() >= ends_at THEN 'expired'
			ELSE 'active'
		END,
		updated_at = NOW()
		WHERE id = $1
		RETURNING id, code, description, discount_percentage, starts_at, ends_at, status, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Code,
		&p.Description,
		&p.DiscountPercentage,
		&p.StartsAt,
		&p.EndsAt,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("refresh promotion status: %w", err)
	}

	return p, nil
}

func ListPromotions(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promotions`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count promotions: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, code, description, discount_percentage, starts_at, ends_at, status, created_at, updated_at
		 FROM promotions
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promos []models.Promotion
	for rows.Next() {
		var p models.Promotion
		err := rows.Scan(
			&p.ID,
			&p.Code,
			&p.Description,
			&p.DiscountPercentage,
			&p.StartsAt,
			&p.EndsAt,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promos = append(promos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      promos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func promotionLabel(startsAt, endsAt, now time.Time) string {
	switch {
	case now.Before(startsAt):
		return "scheduled"
	case !now.Before(endsAt):
		return "expired"
	default:
		return "active"
	}
}
