package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/models"
)

func CreateBrand(ctx context.Context, db *sql.DB, name string) (*models.Brand, error) {
	brand := &models.Brand{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO brands (name, created_at)
		 VALUES ($1, NOW())
		 RETURNING id, name, created_at`,
		name).Scan(&brand.ID, &brand.Name, &brand.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}

	return brand, nil
}

func ListBrands(ctx context.Context, db *sql.DB) ([]models.Brand, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var brand models.Brand
		if err := rows.Scan(&brand.ID, &brand.Name, &brand.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return brands, nil
}

func CreateCategory(ctx context.Context, db *sql.DB, name string) (*models.Category, error) {
	category := &models.Category{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO categories (name, created_at)
		 VALUES ($1, NOW())
		 RETURNING id, name, created_at`,
		name).Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

type CreateProductRequest struct {
	SKU                  string
	Name                 string
	Description          string
	Price                decimal.Decimal
	BrandID              *int64
	CategoryID           *int64
	WarrantyPeriodMonths *int
	WarrantyTerms        *string
	ImageURLs            []string
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, name, description, price, brand_id, category_id,
		                      warranty_period_months, warranty_terms, image_urls,
		                      created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING id, sku, name, description, price, brand_id, category_id,
		          warranty_period_months, warranty_terms, image_urls,
		          created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query,
		req.SKU, req.Name, req.Description, req.Price, req.BrandID, req.CategoryID,
		req.WarrantyPeriodMonths, req.WarrantyTerms, pq.Array(req.ImageURLs)).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.BrandID,
		&product.CategoryID,
		&product.WarrantyPeriodMonths,
		&product.WarrantyTerms,
		pq.Array(&product.ImageURLs),
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// productColumns selects every product field plus the aggregate stock,
// which is always derived as the sum of the color variant stocks.
const productColumns = `
	p.id, p.sku, p.name, p.description, p.price, p.brand_id, p.category_id,
	p.warranty_period_months, p.warranty_terms, p.image_urls,
	COALESCE((SELECT SUM(pc.stock_quantity) FROM product_colors pc WHERE pc.product_id = p.id), 0),
	p.created_at, p.updated_at, p.version`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.BrandID,
		&product.CategoryID,
		&product.WarrantyPeriodMonths,
		&product.WarrantyTerms,
		pq.Array(&product.ImageURLs),
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	colors, err := ListProductColors(ctx, db, id)
	if err != nil {
		return nil, err
	}
	product.Colors = colors

	return product, nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products p
		 ORDER BY p.created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

type UpdateProductRequest struct {
	Name                 string
	Description          string
	Price                decimal.Decimal
	BrandID              *int64
	CategoryID           *int64
	WarrantyPeriodMonths *int
	WarrantyTerms        *string
	ImageURLs            []string
}

func UpdateProduct(ctx context.Context, db *sql.DB, id int64, req UpdateProductRequest) (*models.Product, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, brand_id = $4, category_id = $5,
		     warranty_period_months = $6, warranty_terms = $7, image_urls = $8,
		     updated_at = NOW(), version = version + 1
		 WHERE id = $9`,
		req.Name, req.Description, req.Price, req.BrandID, req.CategoryID,
		req.WarrantyPeriodMonths, req.WarrantyTerms, pq.Array(req.ImageURLs), id)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrProductNotFound
	}

	return GetProduct(ctx, db, id)
}

func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
