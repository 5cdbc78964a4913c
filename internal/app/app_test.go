package app_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/app"
	"github.com/Illuminatus66/byqr/internal/backend"
	"github.com/Illuminatus66/byqr/internal/cart"
	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/session"
	"github.com/Illuminatus66/byqr/internal/wishlist"
)

const paymentSecret = "pay-secret"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	ts    *httptest.Server
	store persist.Store
	clk   *clock
	reg   *prometheus.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := &backend.Server{
		Log:           zap.NewNop(),
		Store:         backend.NewMemStore(backend.DemoCatalog()),
		JWT:           backend.NewTokenMaker("jwt-secret", 48*time.Hour),
		PaymentKeyID:  "rzp_test",
		PaymentSecret: paymentSecret,
	}
	ts := httptest.NewServer(backend.NewHandler(s, backend.HTTPDeps{Log: zap.NewNop(), Service: "backend"}))
	t.Cleanup(ts.Close)

	return &env{
		ts:    ts,
		store: persist.NewMemStore(),
		clk:   &clock{t: time.Now()},
		reg:   prometheus.NewRegistry(),
	}
}

func (e *env) app() *app.App {
	return app.New(app.Options{
		BaseURL:        e.ts.URL,
		Timeout:        5 * time.Second,
		Store:          e.store,
		Clock:          e.clk.Now,
		SagaRetryDelay: time.Millisecond,
		SagaRetries:    2,
	})
}

var reg = model.Registration{Name: "Asha", Email: "asha@example.com", Password: "password123", Phone: "9876543210"}

func signedIn(t *testing.T, e *env) *app.App {
	t.Helper()
	ctx := context.Background()
	a := e.app()
	_, err := a.Signup(ctx, reg)
	require.NoError(t, err)
	_, err = a.Catalog.Refresh(ctx)
	require.NoError(t, err)
	return a
}

func TestApp_ShoppingFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := signedIn(t, e)

	_, err := a.Cart.AddLine(ctx, "bk-road-aero", 2)
	require.NoError(t, err)
	_, err = a.Cart.AddLine(ctx, "bk-road-aero", 1)
	require.ErrorIs(t, err, cart.ErrInsufficientStock)

	_, err = a.Wishlist.Add(ctx, "bk-city-700")
	require.NoError(t, err)
	out, err := a.MoveToCart(ctx, "bk-city-700")
	require.NoError(t, err)
	assert.Equal(t, wishlist.Moved, out)
	assert.Empty(t, a.Wishlist.IDs())
	assert.Equal(t, 1, a.Cart.Cart().Quantity("bk-city-700"))

	// a second client sees what the server confirmed
	b := e.app()
	_, err = b.Login(ctx, model.Credentials{Email: reg.Email, Password: reg.Password})
	require.NoError(t, err)
	assert.Equal(t, a.Cart.Cart(), b.Cart.Cart())
}

func TestApp_Checkout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := signedIn(t, e)

	_, err := a.Cart.AddLine(ctx, "bk-kids-20", 2)
	require.NoError(t, err)

	co, err := a.BeginCheckout(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(17999).Equal(co.Total), co.Total.String())
	assert.Equal(t, int64(1799900), co.Intent.Amount)

	o, err := a.CompleteCheckout(ctx, co, app.PaymentConfirmation{
		PaymentID: "pay_1",
		Signature: backend.SignPayment(paymentSecret, co.Intent.OrderID, "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, co.Intent.Receipt, o.Receipt)

	assert.Zero(t, a.Cart.Cart().Len())
	require.Len(t, a.Orders.List(), 1)

	_, err = a.BeginCheckout(ctx)
	assert.ErrorIs(t, err, app.ErrEmptyCart)
}

func TestApp_LogoutCascadeKeepsComparison(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := signedIn(t, e)

	_, err := a.Cart.AddLine(ctx, "bk-trail-29", 1)
	require.NoError(t, err)
	_, err = a.Wishlist.Add(ctx, "bk-road-aero")
	require.NoError(t, err)
	a.Compare.Add(ctx, "bk-trail-29")
	a.Compare.Add(ctx, "bk-city-700")

	a.Logout(ctx)

	assert.Nil(t, a.Session.Status().Session)
	assert.Zero(t, a.Cart.Cart().Len())
	assert.Empty(t, a.Wishlist.IDs())
	assert.Empty(t, a.Orders.List())
	assert.Equal(t, []string{"bk-trail-29", "bk-city-700"}, a.Compare.IDs())
	assert.True(t, a.Compare.CanCompare())
}

func TestApp_ExpiryHappensBeforeTheOperation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := signedIn(t, e)

	_, err := a.Cart.AddLine(ctx, "bk-trail-29", 1)
	require.NoError(t, err)

	e.clk.Add(24*time.Hour + time.Millisecond)

	_, err = a.Cart.AddLine(ctx, "bk-city-700", 1)
	require.ErrorIs(t, err, session.ErrNoSession)
	assert.Zero(t, a.Cart.Cart().Len(), "the operation saw the cleared cart")
	assert.Equal(t, session.Expired, a.Session.Status().LastEnd)
}

func TestApp_RestoreAcrossRestart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := signedIn(t, e)
	_, err := a.Cart.AddLine(ctx, "bk-trail-29", 2)
	require.NoError(t, err)
	a.Compare.Add(ctx, "bk-trail-29")

	b := e.app()
	require.NoError(t, b.Restore(ctx))
	assert.NotNil(t, b.Session.Status().Session)
	assert.Equal(t, 2, b.Cart.Cart().Quantity("bk-trail-29"))
	assert.Equal(t, []string{"bk-trail-29"}, b.Compare.IDs())

	e.clk.Add(25 * time.Hour)
	c := e.app()
	require.NoError(t, c.Restore(ctx))
	assert.Nil(t, c.Session.Status().Session)
	assert.Zero(t, c.Cart.Cart().Len())
	assert.Equal(t, []string{"bk-trail-29"}, c.Compare.IDs())
}

func TestApp_CatalogRefreshPrunesComparison(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.app()

	a.Compare.Add(ctx, "bk-trail-29")
	a.Compare.Add(ctx, "discontinued")

	_, err := a.Catalog.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bk-trail-29"}, a.Compare.IDs())
}

func TestApp_BadLoginLeavesAnonymous(t *testing.T) {
	e := newEnv(t)
	a := signedIn(t, e)
	a.Logout(context.Background())

	_, err := a.Login(context.Background(), model.Credentials{Email: reg.Email, Password: "wrong-password"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.Anonymous, a.Session.Status().State)
}

func TestApp_RemoteMetrics(t *testing.T) {
	e := newEnv(t)
	a := app.New(app.Options{BaseURL: e.ts.URL, Registry: e.reg})

	_, err := a.Catalog.Refresh(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(e.reg, "remote_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
