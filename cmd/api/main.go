package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/techzone/commerce/internal/config"
	"github.com/techzone/commerce/internal/database"
	"github.com/techzone/commerce/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database")

	mux := http.NewServeMux()

	mux.HandleFunc("/users", handleUsers(db))
	mux.HandleFunc("/users/", handleUserByID(db))
	mux.HandleFunc("/brands", handleBrands(db))
	mux.HandleFunc("/categories", handleCategories(db))
	mux.HandleFunc("/products", handleProducts(db))
	mux.HandleFunc("/products/", handleProductByID(db))
	mux.HandleFunc("/colors", handleColors(db))
	mux.HandleFunc("/colors/", handleColorByID(db))
	mux.HandleFunc("/promotions", handlePromotions(db))
	mux.HandleFunc("/promotions/", handlePromotionByCode(db))
	mux.HandleFunc("/cart", handleCart(db))
	mux.HandleFunc("/cart/items", handleCartItems(db))
	mux.HandleFunc("/orders", handleOrders(db))
	mux.HandleFunc("/orders/", handleOrderByID(db))
	mux.HandleFunc("/warranties", handleWarranties(db))
	mux.HandleFunc("/warranties/", handleWarrantyByID(db))
	mux.HandleFunc("/claims", handleClaims(db))
	mux.HandleFunc("/claims/", handleClaimByID(db))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func requestLogger(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func handleUsers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Email string `json:"email"`
				Name  string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			user, err := store.CreateUser(ctx, db, req.Email, req.Name)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, user)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListUsers(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleUserByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r.URL.Path, "/users/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := store.GetUser(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, user)
	}
}

func handleBrands(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			brand, err := store.CreateBrand(ctx, db, req.Name)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, brand)

		case http.MethodGet:
			brands, err := store.ListBrands(ctx, db)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, brands)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCategories(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			category, err := store.CreateCategory(ctx, db, req.Name)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, category)

		case http.MethodGet:
			categories, err := store.ListCategories(ctx, db)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, categories)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

type productPayload struct {
	SKU                  string   `json:"sku"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Price                float64  `json:"price"`
	BrandID              *int64   `json:"brand_id"`
	CategoryID           *int64   `json:"category_id"`
	WarrantyPeriodMonths *int     `json:"warranty_period_months"`
	WarrantyTerms        *string  `json:"warranty_terms"`
	ImageURLs            []string `json:"image_urls"`
}

func handleProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req productPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
				SKU:                  req.SKU,
				Name:                 req.Name,
				Description:          req.Description,
				Price:                decimal.NewFromFloat(req.Price),
				BrandID:              req.BrandID,
				CategoryID:           req.CategoryID,
				WarrantyPeriodMonths: req.WarrantyPeriodMonths,
				WarrantyTerms:        req.WarrantyTerms,
				ImageURLs:            req.ImageURLs,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListProducts(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProductByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathID(r.URL.Path, "/products/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			product, err := store.GetProduct(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, product)

		case http.MethodPut:
			var req productPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.UpdateProduct(ctx, db, id, store.UpdateProductRequest{
				Name:                 req.Name,
				Description:          req.Description,
				Price:                decimal.NewFromFloat(req.Price),
				BrandID:              req.BrandID,
				CategoryID:           req.CategoryID,
				WarrantyPeriodMonths: req.WarrantyPeriodMonths,
				WarrantyTerms:        req.WarrantyTerms,
				ImageURLs:            req.ImageURLs,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, product)

		case http.MethodDelete:
			if err := store.DeleteProduct(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleColors(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			ProductID int64  `json:"product_id"`
			Color     string `json:"color"`
			Stock     int    `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		color, err := store.CreateProductColor(r.Context(), db, req.ProductID, req.Color, req.Stock)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, color)
	}
}

func handleColorByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathID(r.URL.Path, "/colors/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid color ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			color, err := store.GetProductColor(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, color)

		case http.MethodPut:
			var req struct {
				Stock   int `json:"stock"`
				Version int `json:"version"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if err := store.UpdateColorStockOptimistic(ctx, db, id, req.Stock, req.Version); err != nil {
				respondStoreError(w, err)
				return
			}

			color, err := store.GetProductColor(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, color)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handlePromotions(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Code               string    `json:"code"`
				Description        string    `json:"description"`
				DiscountPercentage float64   `json:"discount_percentage"`
				StartsAt           time.Time `json:"starts_at"`
				EndsAt             time.Time `json:"ends_at"`
				ProductIDs         []int64   `json:"product_ids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			promo, err := store.CreatePromotion(ctx, db, store.CreatePromotionRequest{
				Code:               req.Code,
				Description:        req.Description,
				DiscountPercentage: decimal.NewFromFloat(req.DiscountPercentage),
				StartsAt:           req.StartsAt,
				EndsAt:             req.EndsAt,
				ProductIDs:         req.ProductIDs,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, promo)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListPromotions(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// GET /promotions/{code} and POST /promotions/{id}/refresh.
func handlePromotionByCode(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := strings.TrimPrefix(r.URL.Path, "/promotions/")

		if idStr, ok := strings.CutSuffix(rest, "/refresh"); ok {
			if r.Method != http.MethodPost {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid promotion ID")
				return
			}

			promo, err := store.RefreshPromotionStatus(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, promo)
			return
		}

		promo, err := store.GetPromotionByCode(ctx, db, rest)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, promo)
	}
}

func handleCart(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodGet:
			userID, err := queryID(r, "user_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user_id")
				return
			}

			cart, err := store.GetOrCreateCart(ctx, db, userID)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, cart)

		case http.MethodPost:
			var req struct {
				UserID         int64 `json:"user_id"`
				ProductColorID int64 `json:"product_color_id"`
				Quantity       int   `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			cart, err := store.AddCartItem(ctx, db, req.UserID, req.ProductColorID, req.Quantity)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, cart)

		case http.MethodDelete:
			userID, err := queryID(r, "user_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user_id")
				return
			}

			if err := store.ClearCart(ctx, db, userID); err != nil {
				respondStoreError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCartItems(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPut:
			var req struct {
				UserID         int64 `json:"user_id"`
				ProductColorID int64 `json:"product_color_id"`
				Quantity       int   `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			cart, err := store.UpdateCartItemQuantity(ctx, db, req.UserID, req.ProductColorID, req.Quantity)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, cart)

		case http.MethodDelete:
			userID, err := queryID(r, "user_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user_id")
				return
			}
			colorID, err := queryID(r, "product_color_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid product_color_id")
				return
			}

			cart, err := store.RemoveCartItem(ctx, db, userID, colorID)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, cart)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrders(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				UserID          int64  `json:"user_id"`
				PromotionCode   string `json:"promotion_code"`
				FullName        string `json:"full_name"`
				Phone           string `json:"phone"`
				ShippingAddress string `json:"shipping_address"`
				PaymentMethod   string `json:"payment_method"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			order, err := store.PlaceOrder(ctx, db, store.PlaceOrderRequest{
				UserID:          req.UserID,
				PromotionCode:   req.PromotionCode,
				FullName:        req.FullName,
				Phone:           req.Phone,
				ShippingAddress: req.ShippingAddress,
				PaymentMethod:   req.PaymentMethod,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, order)

		case http.MethodGet:
			// With a user_id this is the customer's cursor-paged order
			// history; without one it is the admin listing.
			if r.URL.Query().Get("user_id") == "" {
				page, pageSize := pageParams(r)
				result, err := store.ListOrders(ctx, db, r.URL.Query().Get("status"), page, pageSize)
				if err != nil {
					respondStoreError(w, err)
					return
				}

				respondJSON(w, http.StatusOK, result)
				return
			}

			userID, err := queryID(r, "user_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user_id")
				return
			}

			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit < 1 || limit > 100 {
				limit = 20
			}

			result, err := store.ListOrdersCursor(ctx, db, userID, r.URL.Query().Get("cursor"), limit)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// GET /orders/{id}, PUT /orders/{id}/status, POST /orders/{id}/warranties.
func handleOrderByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := strings.TrimPrefix(r.URL.Path, "/orders/")

		if idStr, ok := strings.CutSuffix(rest, "/status"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid order ID")
				return
			}
			if r.Method != http.MethodPut {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}

			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			order, err := store.UpdateOrderStatus(ctx, db, id, req.Status)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, order)
			return
		}

		if idStr, ok := strings.CutSuffix(rest, "/warranties"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid order ID")
				return
			}
			if r.Method != http.MethodPost {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}

			var req struct {
				StartDate time.Time `json:"start_date"`
			}
			// Empty body means "issue now".
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			warranties, err := store.CreateWarrantiesForOrder(ctx, db, id, req.StartDate)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, warranties)
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		order, err := store.GetOrder(ctx, db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleWarranties(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				OrderDetailID  int64     `json:"order_detail_id"`
				OverrideMonths *int      `json:"override_months"`
				WarrantyType   string    `json:"warranty_type"`
				StartDate      time.Time `json:"start_date"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			warranty, err := store.CreateWarrantyForOrderDetail(ctx, db, store.CreateWarrantyRequest{
				OrderDetailID:  req.OrderDetailID,
				OverrideMonths: req.OverrideMonths,
				WarrantyType:   req.WarrantyType,
				StartDate:      req.StartDate,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, warranty)

		case http.MethodGet:
			userID, err := queryID(r, "user_id")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid user_id")
				return
			}

			warranties, err := store.ListWarrantiesByUser(ctx, db, userID)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, warranties)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// GET /warranties/{id}, PUT /warranties/{id}/status,
// POST|GET /warranties/{id}/claims.
func handleWarrantyByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := strings.TrimPrefix(r.URL.Path, "/warranties/")

		if idStr, ok := strings.CutSuffix(rest, "/status"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid warranty ID")
				return
			}
			if r.Method != http.MethodPut {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}

			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			warranty, err := store.UpdateWarrantyStatus(ctx, db, id, req.Status)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, warranty)
			return
		}

		if idStr, ok := strings.CutSuffix(rest, "/claims"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid warranty ID")
				return
			}

			switch r.Method {
			case http.MethodPost:
				var req struct {
					UserID           int64    `json:"user_id"`
					IssueDescription string   `json:"issue_description"`
					IssueImages      []string `json:"issue_images"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					respondError(w, http.StatusBadRequest, "Invalid request body")
					return
				}

				claim, err := store.SubmitClaim(ctx, db, store.SubmitClaimRequest{
					WarrantyID:       id,
					UserID:           req.UserID,
					IssueDescription: req.IssueDescription,
					IssueImageURLs:   req.IssueImages,
				})
				if err != nil {
					respondStoreError(w, err)
					return
				}

				respondJSON(w, http.StatusCreated, claim)

			case http.MethodGet:
				claims, err := store.ListClaimsByWarranty(ctx, db, id)
				if err != nil {
					respondStoreError(w, err)
					return
				}

				respondJSON(w, http.StatusOK, claims)

			default:
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid warranty ID")
			return
		}

		warranty, err := store.GetWarranty(ctx, db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, warranty)
	}
}

func handleClaims(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		page, pageSize := pageParams(r)
		result, err := store.ListClaims(r.Context(), db, r.URL.Query().Get("status"), page, pageSize)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// GET /claims/{id}, PUT /claims/{id}/status.
func handleClaimByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rest := strings.TrimPrefix(r.URL.Path, "/claims/")

		if idStr, ok := strings.CutSuffix(rest, "/status"); ok {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid claim ID")
				return
			}
			if r.Method != http.MethodPut {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}

			var req struct {
				Status     string  `json:"status"`
				AdminNotes *string `json:"admin_notes"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			claim, err := store.UpdateClaimStatus(ctx, db, id, req.Status, req.AdminNotes)
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, claim)
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid claim ID")
			return
		}

		claim, err := store.GetClaim(ctx, db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, claim)
	}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func pathID(path, prefix string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(path, prefix), 10, 64)
}

func queryID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrBrandNotFound),
		errors.Is(err, database.ErrCategoryNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrProductColorNotFound),
		errors.Is(err, database.ErrPromotionNotFound),
		errors.Is(err, database.ErrCartNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrOrderDetailNotFound),
		errors.Is(err, database.ErrWarrantyNotFound),
		errors.Is(err, database.ErrClaimNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrCartEmpty),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrPromotionNotActive),
		errors.Is(err, database.ErrWarrantyNotEligible),
		errors.Is(err, database.ErrWarrantyNotValid),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, database.ErrInvalidTransition):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrOptimisticLockFailed),
		errors.Is(err, database.ErrLockTimeout):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
