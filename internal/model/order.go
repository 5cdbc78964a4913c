package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderLine struct {
	ProductID string          `json:"pr_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail"`
}

type Order struct {
	Receipt     string          `json:"receipt"`
	Products    []OrderLine     `json:"products"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderIntent is the gateway order created ahead of payment. Amount is in minor units.
type OrderIntent struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt"`
	Key     string `json:"key"`
}

type CreateIntentRequest struct {
	Amount int64 `json:"amount"`
}

// Verification is what the payment gateway hands back after a successful charge,
// plus the cart snapshot the order is recorded with.
type Verification struct {
	UserID         string          `json:"user_id"`
	Receipt        string          `json:"receipt"`
	PaymentID      string          `json:"razorpay_payment_id"`
	GatewayOrderID string          `json:"razorpay_order_id"`
	Signature      string          `json:"razorpay_signature"`
	Products       []OrderLine     `json:"products"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	BackendOrderID string          `json:"backend_order_id"`
}
