package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

// GetOrCreateCart returns the user's cart, creating it lazily on first use.
// One cart per user, enforced by a unique index on user_id.
func GetOrCreateCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}

	query := `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
		RETURNING id, user_id, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	items, err := listCartItems(ctx, db, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func GetCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items, err := listCartItems(ctx, db, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func listCartItems(ctx context.Context, q querier, cartID int64) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, cart_id, product_color_id, quantity, created_at, updated_at
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY id`,
		cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductColorID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// AddCartItem adds quantity of a variant to the user's cart, creating the
// cart if needed. Adding a variant already in the cart bumps its quantity.
func AddCartItem(ctx context.Context, db *sql.DB, userID, productColorID int64, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", database.ErrInvalidStatus)
	}

	cart, err := GetOrCreateCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_color_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (cart_id, product_color_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		cart.ID, productColorID, quantity)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return nil, database.ErrProductColorNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return GetCart(ctx, db, userID)
}

// UpdateCartItemQuantity sets the quantity of a cart line. Zero removes it.
func UpdateCartItemQuantity(ctx context.Context, db *sql.DB, userID, productColorID int64, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", database.ErrInvalidStatus)
	}

	if quantity == 0 {
		return RemoveCartItem(ctx, db, userID, productColorID)
	}

	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE cart_items
		 SET quantity = $1, updated_at = NOW()
		 WHERE cart_id = $2 AND product_color_id = $3`,
		quantity, cart.ID, productColorID)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrCartItemNotFound
	}

	return GetCart(ctx, db, userID)
}

func RemoveCartItem(ctx context.Context, db *sql.DB, userID, productColorID int64) (*models.Cart, error) {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_color_id = $2`,
		cart.ID, productColorID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrCartItemNotFound
	}

	return GetCart(ctx, db, userID)
}

func ClearCart(ctx context.Context, db *sql.DB, userID int64) error {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return nil
}
