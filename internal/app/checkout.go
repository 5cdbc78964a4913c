package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
)

var (
	ErrEmptyCart      = errors.New("nothing purchasable in the cart")
	ErrCartNotCleared = errors.New("order recorded but the cart was not cleared")
)

// Checkout is a gateway order waiting for the customer to pay.
type Checkout struct {
	Intent model.OrderIntent
	Lines  []model.OrderLine
	Total  decimal.Decimal
}

// PaymentConfirmation is what the payment gateway returns after a successful charge.
type PaymentConfirmation struct {
	PaymentID      string
	GatewayOrderID string
	Signature      string
}

// BeginCheckout prices the cart and opens a gateway order for its total.
// Lines whose product left the catalog are neither charged nor recorded.
func (a *App) BeginCheckout(ctx context.Context) (Checkout, error) {
	if _, err := a.Session.Guard(ctx); err != nil {
		return Checkout{}, err
	}
	priced := a.PricedCart()
	lines := priced.OrderLines()
	if len(lines) == 0 {
		return Checkout{}, ErrEmptyCart
	}

	intent, err := a.Orders.CreatePendingOrder(ctx, priced.Total)
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{Intent: intent, Lines: lines, Total: priced.Total}, nil
}

// CompleteCheckout records the confirmed order, then empties the cart on the server.
func (a *App) CompleteCheckout(ctx context.Context, co Checkout, pc PaymentConfirmation) (model.Order, error) {
	gatewayOrderID := pc.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = co.Intent.OrderID
	}
	o, err := a.Orders.RecordConfirmedOrder(ctx, model.Verification{
		Receipt:        co.Intent.Receipt,
		PaymentID:      pc.PaymentID,
		GatewayOrderID: gatewayOrderID,
		Signature:      pc.Signature,
		Products:       co.Lines,
		TotalAmount:    co.Total,
		BackendOrderID: co.Intent.OrderID,
	})
	if err != nil {
		return model.Order{}, err
	}

	if _, err := a.Cart.Empty(ctx); err != nil {
		a.Log.Warn("cart clear after checkout failed", zap.String("receipt", o.Receipt), zap.Error(err))
		return o, fmt.Errorf("%w: %w", ErrCartNotCleared, err)
	}
	return o, nil
}
