package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

type PlaceOrderRequest struct {
	UserID          int64
	PromotionCode   string
	FullName        string
	Phone           string
	ShippingAddress string
	PaymentMethod   string
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s", uuid.NewString())
}

var hundred = decimal.NewFromInt(100)

// PlaceOrder converts the user's cart into an order in one serializable
// transaction: lock every variant row, verify stock, resolve the promotion,
// snapshot unit prices and discount into immutable order details, decrement
// stock, create the order and clear the cart. Any failure rolls the whole
// thing back; a failed placement leaves stock and cart untouched.
//
// A promotion scoped to specific products applies when it covers at least
// one cart line, and then discounts the entire order subtotal.
func PlaceOrder(ctx context.Context, db *sql.DB, req PlaceOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		var cartID int64
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM carts WHERE user_id = $1",
			req.UserID).Scan(&cartID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartEmpty
			}
			return fmt.Errorf("get cart: %w", err)
		}

		type line struct {
			productColorID int64
			quantity       int
			productID      int64
			stock          int
			unitPrice      decimal.Decimal
		}

		// Variant rows are locked in id order so two overlapping
		// checkouts cannot deadlock on each other.
		rows, err := tx.QueryContext(ctx,
			`SELECT ci.product_color_id, ci.quantity, pc.product_id, pc.stock_quantity, p.price
			 FROM cart_items ci
			 JOIN product_colors pc ON pc.id = ci.product_color_id
			 JOIN products p ON p.id = pc.product_id
			 WHERE ci.cart_id = $1
			 ORDER BY ci.product_color_id
			 FOR UPDATE OF pc`,
			cartID)
		if err != nil {
			return fmt.Errorf("lock cart lines: %w", err)
		}

		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.productColorID, &l.quantity, &l.productID, &l.stock, &l.unitPrice); err != nil {
				rows.Close()
				return fmt.Errorf("scan cart line: %w", err)
			}
			lines = append(lines, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("rows error: %w", err)
		}
		rows.Close()

		if len(lines) == 0 {
			return database.ErrCartEmpty
		}

		for _, l := range lines {
			if l.stock < l.quantity {
				return &database.StockError{
					ProductColorID: l.productColorID,
					Requested:      l.quantity,
					Available:      l.stock,
				}
			}
		}

		discount := decimal.Zero
		var promotionID *int64
		if req.PromotionCode != "" {
			productIDs := make([]int64, 0, len(lines))
			for _, l := range lines {
				productIDs = append(productIDs, l.productID)
			}

			promo, err := ResolvePromotion(ctx, tx, req.PromotionCode, time.Now(), productIDs)
			if err != nil {
				return err
			}

			discount = promo.DiscountPercentage
			promotionID = &promo.ID
		}

		subtotal := decimal.Zero
		for _, l := range lines {
			subtotal = subtotal.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
		}
		totalAmount := subtotal.Mul(hundred.Sub(discount)).Div(hundred)

		var orderID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, user_id, promotion_id, status, full_name, phone,
			                     shipping_address, payment_method, total_amount,
			                     created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
			 RETURNING id`,
			generateOrderNumber(), req.UserID, promotionID, models.OrderStatusPending,
			req.FullName, req.Phone, req.ShippingAddress, req.PaymentMethod,
			totalAmount).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, l := range lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_details (order_id, product_color_id, quantity, unit_price, discount_percentage, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				orderID, l.productColorID, l.quantity, l.unitPrice, discount)
			if err != nil {
				return fmt.Errorf("create order detail: %w", err)
			}
		}

		for _, l := range lines {
			if err := DecrementColorStock(ctx, tx, l.productColorID, l.quantity); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		order, err = getOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func getOrder(ctx context.Context, q querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, order_number, user_id, promotion_id, status, full_name, phone,
		       shipping_address, payment_method, total_amount, created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.PromotionID,
		&order.Status,
		&order.FullName,
		&order.Phone,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_color_id, quantity, unit_price, discount_percentage, created_at
		 FROM order_details
		 WHERE order_id = $1
		 ORDER BY id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	defer rows.Close()

	var details []models.OrderDetail
	for rows.Next() {
		var d models.OrderDetail
		err := rows.Scan(
			&d.ID,
			&d.OrderID,
			&d.ProductColorID,
			&d.Quantity,
			&d.UnitPrice,
			&d.DiscountPercentage,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order.Details = details

	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id)
}

// UpdateOrderStatus moves an order through the forward-only lifecycle
// (pending, processing, shipped, delivered; cancelled from any non-terminal
// state). Anything else is refused with a TransitionError.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderID int64, newStatus string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, newStatus)
	}

	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
			orderID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if !models.ValidOrderTransition(current, newStatus) {
			return &database.TransitionError{Entity: "order", From: current, To: newStatus}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, updated_at = NOW(), version = version + 1
			 WHERE id = $2`,
			newStatus, orderID)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrders is the admin view over all orders, optionally filtered by
// status, offset paged.
func ListOrders(ctx context.Context, db *sql.DB, status string, page, pageSize int) (*OffsetPage, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`,
		status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_number, user_id, promotion_id, status, full_name, phone,
		        shipping_address, payment_method, total_amount, created_at, updated_at, version
		 FROM orders
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.PromotionID,
			&order.Status,
			&order.FullName,
			&order.Phone,
			&order.ShippingAddress,
			&order.PaymentMethod,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      orders,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, order_number, user_id, promotion_id, status, full_name, phone,
		       shipping_address, payment_method, total_amount, created_at, updated_at, version
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.PromotionID,
			&order.Status,
			&order.FullName,
			&order.Phone,
			&order.ShippingAddress,
			&order.PaymentMethod,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
