package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrBrandNotFound        = errors.New("brand not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductColorNotFound = errors.New("product color not found")
	ErrPromotionNotFound    = errors.New("promotion not found")
	ErrCartNotFound         = errors.New("cart not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderDetailNotFound  = errors.New("order detail not found")
	ErrWarrantyNotFound     = errors.New("warranty not found")
	ErrClaimNotFound        = errors.New("warranty claim not found")

	ErrCartEmpty            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPromotionNotActive   = errors.New("promotion not active")
	ErrWarrantyNotEligible  = errors.New("product carries no warranty")
	ErrWarrantyNotValid     = errors.New("warranty not valid")
	ErrInvalidStatus        = errors.New("invalid status value")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("lock timeout")
)

// StockError reports which variant blocked an order and by how much.
type StockError struct {
	ProductColorID int64
	Requested      int
	Available      int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product color %d: requested %d, available %d",
		e.ProductColorID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type PromotionFailReason string

const (
	PromotionFailNotStarted PromotionFailReason = "not_started"
	PromotionFailExpired    PromotionFailReason = "expired"
	PromotionFailOutOfScope PromotionFailReason = "out_of_scope"
)

// PromotionError distinguishes why a code was refused at checkout so the
// caller can render something better than "invalid code".
type PromotionError struct {
	Code   string
	Reason PromotionFailReason
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promotion %q rejected: %s", e.Code, e.Reason)
}

func (e *PromotionError) Unwrap() error { return ErrPromotionNotActive }

// TransitionError carries the attempted status transition that was refused.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s status cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// WarrantyValidityError reports the computed validity of a warranty that a
// claim was filed against.
type WarrantyValidityError struct {
	WarrantyID int64
	Status     string
	StartDate  time.Time
	EndDate    time.Time
	CheckedAt  time.Time
}

func (e *WarrantyValidityError) Error() string {
	return fmt.Sprintf("warranty %d not valid at %s (status %q, coverage %s to %s)",
		e.WarrantyID, e.CheckedAt.Format(time.RFC3339), e.Status,
		e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"))
}

func (e *WarrantyValidityError) Unwrap() error { return ErrWarrantyNotValid }
