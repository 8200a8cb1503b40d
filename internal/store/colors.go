package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

func CreateProductColor(ctx context.Context, db *sql.DB, productID int64, color string, stock int) (*models.ProductColor, error) {
	pc := &models.ProductColor{}

	query := `
		INSERT INTO product_colors (product_id, color, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING id, product_id, color, stock_quantity, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, productID, color, stock).Scan(
		&pc.ID,
		&pc.ProductID,
		&pc.Color,
		&pc.StockQuantity,
		&pc.CreatedAt,
		&pc.UpdatedAt,
		&pc.Version,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("create product color: %w", err)
	}

	return pc, nil
}

func GetProductColor(ctx context.Context, db *sql.DB, id int64) (*models.ProductColor, error) {
	pc := &models.ProductColor{}

	query := `
		SELECT id, product_id, color, stock_quantity, created_at, updated_at, version
		FROM product_colors
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&pc.ID,
		&pc.ProductID,
		&pc.Color,
		&pc.StockQuantity,
		&pc.CreatedAt,
		&pc.UpdatedAt,
		&pc.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductColorNotFound
		}
		return nil, fmt.Errorf("get product color: %w", err)
	}

	return pc, nil
}

func ListProductColors(ctx context.Context, db *sql.DB, productID int64) ([]models.ProductColor, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, color, stock_quantity, created_at, updated_at, version
		 FROM product_colors
		 WHERE product_id = $1
		 ORDER BY id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list product colors: %w", err)
	}
	defer rows.Close()

	var colors []models.ProductColor
	for rows.Next() {
		var pc models.ProductColor
		err := rows.Scan(
			&pc.ID,
			&pc.ProductID,
			&pc.Color,
			&pc.StockQuantity,
			&pc.CreatedAt,
			&pc.UpdatedAt,
			&pc.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product color: %w", err)
		}
		colors = append(colors, pc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return colors, nil
}

// ReserveColorStock locks a variant row and verifies it can cover quantity.
// The caller must decrement within the same transaction.
func ReserveColorStock(ctx context.Context, tx *sql.Tx, colorID int64, quantity int) (*models.ProductColor, error) {
	pc := &models.ProductColor{}

	query := `
		SELECT id, product_id, color, stock_quantity, created_at, updated_at, version
		FROM product_colors
		WHERE id = $1
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, colorID).Scan(
		&pc.ID,
		&pc.ProductID,
		&pc.Color,
		&pc.StockQuantity,
		&pc.CreatedAt,
		&pc.UpdatedAt,
		&pc.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductColorNotFound
		}
		return nil, fmt.Errorf("lock product color: %w", err)
	}

	if pc.StockQuantity < quantity {
		return nil, &database.StockError{
			ProductColorID: colorID,
			Requested:      quantity,
			Available:      pc.StockQuantity,
		}
	}

	return pc, nil
}

func ReserveColorStockNoWait(ctx context.Context, tx *sql.Tx, colorID int64, quantity int) (*models.ProductColor, error) {
	pc := &models.ProductColor{}

	query := `
		SELECT id, product_id, color, stock_quantity, created_at, updated_at, version
		FROM product_colors
		WHERE id = $1
		FOR UPDATE NOWAIT`

	err := tx.QueryRowContext(ctx, query, colorID).Scan(
		&pc.ID,
		&pc.ProductID,
		&pc.Color,
		&pc.StockQuantity,
		&pc.CreatedAt,
		&pc.UpdatedAt,
		&pc.Version,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if err == sql.ErrNoRows {
			return nil, database.ErrProductColorNotFound
		}
		return nil, fmt.Errorf("lock product color (nowait): %w", err)
	}

	if pc.StockQuantity < quantity {
		return nil, &database.StockError{
			ProductColorID: colorID,
			Requested:      quantity,
			Available:      pc.StockQuantity,
		}
	}

	return pc, nil
}

// DecrementColorStock is guarded by the stock condition in the WHERE clause,
// so an oversell slipping past the earlier check still cannot commit.
func DecrementColorStock(ctx context.Context, tx *sql.Tx, colorID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE product_colors
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, colorID)
	if err != nil {
		return fmt.Errorf("decrement color stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func UpdateColorStockOptimistic(ctx context.Context, db *sql.DB, colorID int64, newStock int, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE product_colors
		 SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		newStock, colorID, version)
	if err != nil {
		return fmt.Errorf("update color stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}
