package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order, for filters.
var Statuses = []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}

// Label is the French label shown in the shop.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusPaid:
		return "Payée"
	case StatusShipped:
		return "Expédiée"
	case StatusDelivered:
		return "Livrée"
	case StatusCancelled:
		return "Annulée"
	}
	return string(s)
}

// ParseStatus accepts any casing. ok is false for unknown values.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// ShippingAddress is stored as JSON on the order.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order is a customer's placed order. Money fields are frozen at checkout.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	OrderNumber     string          `json:"order_number"`
	Status          Status          `json:"status"`
	Subtotal        float64         `json:"subtotal"`
	Savings         float64         `json:"savings"`
	PromoCode       string          `json:"promo_code,omitempty"`
	PromoDiscount   float64         `json:"promo_discount"`
	ShippingFee     float64         `json:"shipping_fee"`
	Total           float64         `json:"total"`
	Currency        string          `json:"currency"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Items           []*OrderItem    `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool { return canTransition(o.Status, StatusCancelled) }

// NextStatuses lists the statuses the order may move to.
func (o *Order) NextStatuses() []Status { return validTransitions[o.Status] }

// ItemCount sums the quantities of all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderItem is a single line of an order. The jewel name is copied so the
// order still reads correctly after the catalog changes.
type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	JewelID   uuid.UUID `json:"jewel_id"`
	JewelName string    `json:"jewel_name"`
	Size      string    `json:"size,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckoutRequest is the payload for placing an order from the cart.
type CheckoutRequest struct {
	PromoCode       string          `json:"promo_code,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Stats summarises orders for the back-office dashboard.
type Stats struct {
	ByStatus     map[Status]int `json:"by_status"`
	Revenue      float64        `json:"revenue"`
	OrdersToday  int            `json:"orders_today"`
	RevenueToday float64        `json:"revenue_today"`
}
