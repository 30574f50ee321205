package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses over the payment/fulfilment lifecycle
	OrderStatusPendingPayment OrderStatus = "pending_payment" // Created, awaiting gateway outcome
	OrderStatusConfirmed      OrderStatus = "confirmed"       // Payment confirmed by webhook
	OrderStatusShipped        OrderStatus = "shipped"         // Out for delivery
	OrderStatusDelivered      OrderStatus = "delivered"       // Customer received the item
	OrderStatusCancelled      OrderStatus = "cancelled"       // Cancelled before fulfilment
	OrderStatusFailed         OrderStatus = "failed"          // Payment failed

	// Payment statuses
	PaymentStatusPending   PaymentStatus = "pending"   // Awaiting gateway notification
	PaymentStatusPaid      PaymentStatus = "paid"      // Payment completed successfully
	PaymentStatusCancelled PaymentStatus = "cancelled" // Buyer cancelled on the payment page
	PaymentStatusFailed    PaymentStatus = "failed"    // Payment attempt failed
)

// ShippingAddress is snapshotted onto the order at checkout time so later
// profile edits never change where a placed order ships to.
type ShippingAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          string          `gorm:"index;not null" json:"user_id"`
	OrderRef        string          `gorm:"uniqueIndex" json:"order_ref"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount     float64         `json:"total_amount"`
	ShippingAddress ShippingAddress `gorm:"serializer:json" json:"shipping_address"`
	Status          OrderStatus     `gorm:"type:VARCHAR(20);default:'pending_payment'" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"` // e.g. "payfast"
	// The gateway's own payment identifier, recorded by the webhook for
	// reconciliation audit. Empty until a notification arrives.
	PayfastPaymentID string    `json:"payfast_payment_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OrderItem freezes unit_price at order-creation time; never mutated after.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `json:"product_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	SizeVariant string  `json:"size_variant"`
}
