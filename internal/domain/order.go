package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid order status
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a member of the closed status set
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order represents a placed order. TotalAmount is the sum of its items'
// UnitPrice x Quantity, frozen at creation time; later product price
// changes never alter it.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      OrderStatus     `json:"status" db:"status"`
	PaymentRef  string          `json:"payment_ref,omitempty" db:"payment_ref"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem is a line item within an order, immutable after creation.
// UnitPrice is the product price snapshot taken when the order was placed.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Product   *ProductSummary `json:"product,omitempty"`
}

// OwnedBy is the ownership guard shared by every per-user resource check
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// CanTransition is the single authorization predicate for status changes.
// Admins may set any order to any status. Non-admin owners may only cancel
// their own order while it is still PENDING.
func (o *Order) CanTransition(actorID uuid.UUID, role Role, target OrderStatus) bool {
	if role.IsAdmin() {
		return target.Valid()
	}
	if !o.OwnedBy(actorID) {
		return false
	}
	return target == OrderStatusCancelled && o.Status == OrderStatusPending
}
