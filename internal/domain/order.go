package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the fixed set of order states. Any status may follow any
// other; the storefront drives transitions through the admin endpoint only.
type PaymentStatus string

const (
	StatusCashOnDelivery PaymentStatus = "CASH_ON_DELIVERY"
	StatusPaid           PaymentStatus = "PAID"
	StatusPending        PaymentStatus = "PENDING"
	StatusDelivered      PaymentStatus = "DELIVERED"
	StatusCompleted      PaymentStatus = "COMPLETED"
	StatusCancelled      PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusCashOnDelivery, StatusPaid, StatusPending, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ProductDetails struct {
	Name  string   `json:"name"`
	Image []string `json:"image"`
}

// OrderLine is one persisted row: one product within one checkout. Every line
// of a checkout shares the same orderId, owner and delivery address.
type OrderLine struct {
	OrderID        string         `json:"orderId"`
	UserID         uuid.UUID      `json:"userId"`
	ProductID      string         `json:"productId"`
	ProductDetails ProductDetails `json:"product_details"`
	Quantity       int            `json:"quantity"`
	Price          float64        `json:"price"`
	PaymentID      string         `json:"paymentId"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	AddressID      uuid.UUID      `json:"delivery_address"`
	SubTotal       float64        `json:"subTotalAmt"`
	Total          float64        `json:"totalAmt"`
	CreatedAt      time.Time      `json:"createdAt"`

	// Expanded by the listing queries, empty elsewhere.
	Address  *Address  `json:"address,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}

// Checkout is one logical order as submitted to storage: the shared
// order-level fields plus one line per cart entry. The whole thing is
// persisted in a single transaction or not at all.
type Checkout struct {
	OrderUID        string
	UserID          uuid.UUID
	AddressID       uuid.UUID
	PaymentID       string
	ProviderOrderID string
	Status          PaymentStatus
	CreatedAt       time.Time
	Lines           []CheckoutLine
}

type CheckoutLine struct {
	ProductID string
	Details   ProductDetails
	Quantity  int
	Price     float64
	SubTotal  float64
	Total     float64
}

// OrderLines expands the checkout into the per-line records the API returns.
func (c *Checkout) OrderLines() []OrderLine {
	out := make([]OrderLine, 0, len(c.Lines))
	for _, ln := range c.Lines {
		out = append(out, OrderLine{
			OrderID:        c.OrderUID,
			UserID:         c.UserID,
			ProductID:      ln.ProductID,
			ProductDetails: ln.Details,
			Quantity:       ln.Quantity,
			Price:          ln.Price,
			PaymentID:      c.PaymentID,
			PaymentStatus:  c.Status,
			AddressID:      c.AddressID,
			SubTotal:       ln.SubTotal,
			Total:          ln.Total,
			CreatedAt:      c.CreatedAt,
		})
	}
	return out
}

type Address struct {
	ID          uuid.UUID `json:"_id"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	Pincode     string    `json:"pincode"`
	Mobile      string    `json:"mobile"`
}

type Customer struct {
	ID     uuid.UUID `json:"_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Mobile string    `json:"mobile"`
}

type Product struct {
	ID    string   `json:"_id"`
	Name  string   `json:"name"`
	Image []string `json:"image"`
	Price float64  `json:"price"`
}

// CartItem is one cart entry, both as stored and as submitted at checkout.
// Price is the unit price; when the client omits it the service derives it
// from Total / Quantity.
type CartItem struct {
	ProductID      string         `json:"productId"`
	ProductDetails ProductDetails `json:"product_details"`
	Quantity       int            `json:"quantity"`
	Price          float64        `json:"price"`
	Total          float64        `json:"totalAmt"`
}

type CartSummary struct {
	Items int     `json:"items"`
	Total float64 `json:"total"`
}

const (
	EventOrderPlaced   = "order.placed"
	EventStatusChanged = "order.status_changed"
)

// OrderEvent is published to the order event stream after a successful write.
type OrderEvent struct {
	Type     string        `json:"type"`
	OrderUID string        `json:"orderId"`
	UserID   uuid.UUID     `json:"userId,omitempty"`
	Status   PaymentStatus `json:"status"`
	Total    float64       `json:"totalAmt,omitempty"`
	At       time.Time     `json:"at"`
}
