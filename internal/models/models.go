package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Brand struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID                   int64           `json:"id"`
	SKU                  string          `json:"sku"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price"`
	BrandID              *int64          `json:"brand_id,omitempty"`
	CategoryID           *int64          `json:"category_id,omitempty"`
	WarrantyPeriodMonths *int            `json:"warranty_period_months,omitempty"`
	WarrantyTerms        *string         `json:"warranty_terms,omitempty"`
	ImageURLs            []string        `json:"image_urls,omitempty"`
	StockQuantity        int             `json:"stock_quantity"` // derived: sum of color variant stocks
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
	Colors               []ProductColor  `json:"colors,omitempty"`
}

// ProductColor is the unit actually reserved and decremented by orders.
type ProductColor struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	Color         string    `json:"color"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

type Promotion struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	Description        string          `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartsAt           time.Time       `json:"starts_at"`
	EndsAt             time.Time       `json:"ends_at"`
	Status             string          `json:"status"`
	ProductIDs         []int64         `json:"product_ids,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ActiveAt reports whether now falls inside the validity window
// [StartsAt, EndsAt). The stored Status label is advisory only and is
// never consulted here.
func (p *Promotion) ActiveAt(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// Scoped reports whether the promotion is restricted to specific products.
func (p *Promotion) Scoped() bool {
	return len(p.ProductIDs) > 0
}

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []CartItem `json:"items"`
}

type CartItem struct {
	ID             int64     `json:"id"`
	CartID         int64     `json:"cart_id"`
	ProductColorID int64     `json:"product_color_id"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          int64           `json:"user_id"`
	PromotionID     *int64          `json:"promotion_id,omitempty"`
	Status          string          `json:"status"`
	FullName        string          `json:"full_name"`
	Phone           string          `json:"phone"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
	Details         []OrderDetail   `json:"details,omitempty"`
}

// OrderDetail is an immutable snapshot taken at checkout. UnitPrice and
// DiscountPercentage are never re-derived from the catalog afterwards.
type OrderDetail struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"order_id"`
	ProductColorID     int64           `json:"product_color_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Warranty struct {
	ID            int64      `json:"id"`
	OrderDetailID int64      `json:"order_detail_id"`
	ProductID     *int64     `json:"product_id,omitempty"`
	PeriodMonths  int        `json:"period_months"`
	WarrantyType  string     `json:"warranty_type"`
	Description   *string    `json:"description,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ValidAt reports whether the warranty covers a claim filed at now.
// Expiry is computed from the dates every time; the stored status alone
// is not trusted (no background sweep flips it).
func (w *Warranty) ValidAt(now time.Time) bool {
	return w.Status == WarrantyStatusActive &&
		!now.Before(w.StartDate) && !now.After(w.EndDate)
}

type WarrantyClaim struct {
	ID               int64      `json:"id"`
	WarrantyID       int64      `json:"warranty_id"`
	UserID           *int64     `json:"user_id,omitempty"`
	IssueDescription string     `json:"issue_description"`
	IssueImages      []string   `json:"issue_images,omitempty"`
	Status           string     `json:"status"`
	AdminNotes       *string    `json:"admin_notes,omitempty"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}
