package models

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	WarrantyStatusActive  = "active"
	WarrantyStatusExpired = "expired"
	WarrantyStatusVoided  = "voided"
)

const (
	ClaimStatusPending    = "pending"
	ClaimStatusApproved   = "approved"
	ClaimStatusRejected   = "rejected"
	ClaimStatusInProgress = "in_progress"
	ClaimStatusCompleted  = "completed"
)

// Orders move forward only; cancellation is reachable from any
// non-terminal state.
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

var claimTransitions = map[string][]string{
	ClaimStatusPending:    {ClaimStatusApproved, ClaimStatusRejected, ClaimStatusInProgress},
	ClaimStatusApproved:   {ClaimStatusInProgress, ClaimStatusCompleted},
	ClaimStatusInProgress: {ClaimStatusCompleted},
	ClaimStatusRejected:   {},
	ClaimStatusCompleted:  {},
}

func ValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

func ValidOrderTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidWarrantyStatus(s string) bool {
	switch s {
	case WarrantyStatusActive, WarrantyStatusExpired, WarrantyStatusVoided:
		return true
	}
	return false
}

func ValidClaimStatus(s string) bool {
	_, ok := claimTransitions[s]
	return ok
}

func ValidClaimTransition(from, to string) bool {
	for _, next := range claimTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ClaimStatusTerminal reports whether a claim status closes the claim.
// Terminal claims carry a ResolvedAt timestamp; open ones never do.
func ClaimStatusTerminal(s string) bool {
	return s == ClaimStatusRejected || s == ClaimStatusCompleted
}
