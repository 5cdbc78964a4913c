package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/session"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

var (
	ErrGatewayDeclined    = errors.New("payment gateway declined the order")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrInvalidAmount      = errors.New("order amount must be positive")
	ErrBusy               = errors.New("an order operation is already in flight")
)

type API interface {
	CreateOrderIntent(ctx context.Context, amount int64) (model.OrderIntent, error)
	FetchOrders(ctx context.Context, userID string) ([]model.Order, error)
	VerifyAndSaveOrder(ctx context.Context, v model.Verification) (model.Order, error)
}

type Guard interface {
	Guard(ctx context.Context) (session.Session, error)
}

type State struct {
	Orders  []model.Order
	Loading bool
	Err     error
}

type action interface{ orderAction() }

type (
	hydrated struct{ orders []model.Order }
	appended struct{ order model.Order }
	reset    struct{}
)

func (hydrated) orderAction() {}
func (appended) orderAction() {}
func (reset) orderAction()    {}

// apply never edits or drops a recorded order except on reset.
func apply(orders []model.Order, a action) []model.Order {
	switch a := a.(type) {
	case hydrated:
		return slices.Clone(a.orders)
	case appended:
		if a.order.Receipt != "" && slices.ContainsFunc(orders, func(o model.Order) bool { return o.Receipt == a.order.Receipt }) {
			return slices.Clone(orders)
		}
		return append(slices.Clone(orders), a.order)
	case reset:
		return nil
	default:
		panic("order: unhandled action")
	}
}

// MinorUnits converts a major-unit amount to the gateway's integer minor units.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type History struct {
	api   API
	guard Guard
	gw    *persist.Gateway
	log   *zap.Logger

	mu     sync.Mutex
	orders []model.Order
	busy   bool
	err    error
	gen    uint64
}

func NewHistory(api API, guard Guard, gw *persist.Gateway, log *zap.Logger) *History {
	return &History{api: api, guard: guard, gw: gw, log: kit.OrNop(log)}
}

func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return State{Orders: slices.Clone(h.orders), Loading: h.busy, Err: h.err}
}

func (h *History) List() []model.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.orders)
}

func (h *History) Hydrate(ctx context.Context, userID string) ([]model.Order, error) {
	sess, err := h.guard.Guard(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = sess.UserID()
	}
	gen, err := h.begin()
	if err != nil {
		return nil, err
	}
	orders, err := h.api.FetchOrders(ctx, userID)
	return h.commit(ctx, gen, hydrated{orders: orders}, err)
}

// CreatePendingOrder asks the server for a gateway order of amount (major units).
// Nothing is recorded locally until the payment is confirmed.
func (h *History) CreatePendingOrder(ctx context.Context, amount decimal.Decimal) (model.OrderIntent, error) {
	if _, err := h.guard.Guard(ctx); err != nil {
		return model.OrderIntent{}, err
	}
	minor := MinorUnits(amount)
	if minor <= 0 {
		return model.OrderIntent{}, h.fail(fmt.Errorf("%w: %s", ErrInvalidAmount, amount))
	}

	intent, err := h.api.CreateOrderIntent(ctx, minor)
	if err != nil {
		h.log.Warn("create order intent failed", zap.Int64("amount", minor), zap.Error(err))
		return model.OrderIntent{}, h.fail(fmt.Errorf("%w: %w", ErrGatewayDeclined, err))
	}
	if intent.OrderID == "" {
		return model.OrderIntent{}, h.fail(fmt.Errorf("%w: empty gateway order id", ErrGatewayDeclined))
	}
	return intent, nil
}

// RecordConfirmedOrder verifies the gateway's signed confirmation with the server and appends the saved order.
func (h *History) RecordConfirmedOrder(ctx context.Context, v model.Verification) (model.Order, error) {
	sess, err := h.guard.Guard(ctx)
	if err != nil {
		return model.Order{}, err
	}
	if v.UserID == "" {
		v.UserID = sess.UserID()
	}
	if v.PaymentID == "" || v.GatewayOrderID == "" || v.Signature == "" {
		return model.Order{}, h.fail(fmt.Errorf("%w: incomplete gateway confirmation", ErrVerificationFailed))
	}
	if len(v.Products) == 0 {
		return model.Order{}, h.fail(fmt.Errorf("%w: no products", ErrVerificationFailed))
	}

	gen, err := h.begin()
	if err != nil {
		return model.Order{}, err
	}
	saved, err := h.api.VerifyAndSaveOrder(ctx, v)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if _, err := h.commit(ctx, gen, appended{order: saved}, err); err != nil {
		return model.Order{}, err
	}
	return saved, nil
}

// Clear drops the local history. Recorded orders stay on the server.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.busy = false
	h.err = nil
	h.orders = apply(h.orders, reset{})
}

func (h *History) Restore(ctx context.Context) error {
	var orders []model.Order
	ok, err := h.gw.Load(ctx, persist.KeyOrders, &orders)
	if err != nil || !ok {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = apply(nil, hydrated{orders: orders})
	return nil
}

func (h *History) begin() (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		return 0, ErrBusy
	}
	h.busy = true
	h.err = nil
	return h.gen, nil
}

func (h *History) commit(ctx context.Context, gen uint64, a action, err error) ([]model.Order, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return nil, session.ErrSessionEnded
	}
	h.busy = false
	if err != nil {
		h.err = err
		h.log.Warn("order history update failed", zap.Error(err))
		return slices.Clone(h.orders), err
	}
	h.orders = apply(h.orders, a)
	if err := h.gw.Save(ctx, persist.KeyOrders, h.orders); err != nil {
		h.log.Warn("persist orders failed", zap.Error(err))
	}
	return slices.Clone(h.orders), nil
}

func (h *History) fail(err error) error {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	return err
}
