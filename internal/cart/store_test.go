package cart

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/remote"
	"github.com/Illuminatus66/byqr/internal/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	payload model.CartPayload
	err     error
	calls   []string
	block   chan struct{}
}

func (f *fakeAPI) record(op string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.err
}

func (f *fakeAPI) FetchCart(_ context.Context, _ string) (model.CartPayload, error) {
	if err := f.record("fetch"); err != nil {
		return model.CartPayload{}, err
	}
	return f.payload, nil
}

func (f *fakeAPI) AddToCart(_ context.Context, _ model.CartMutation) error {
	return f.record("add")
}

func (f *fakeAPI) RemoveFromCart(_ context.Context, _ model.CartMutation) error {
	return f.record("remove")
}

func (f *fakeAPI) UpdateCartQty(_ context.Context, _ model.CartMutation) error {
	return f.record("updateqty")
}

func (f *fakeAPI) ClearCart(_ context.Context, _ string) error {
	return f.record("clearcart")
}

type okGuard struct{}

func (okGuard) Guard(context.Context) (session.Session, error) {
	return session.Session{Token: "t", Profile: &model.Profile{ID: "u1"}, CartNo: "C1"}, nil
}

type catalogMap map[string]model.Product

func (c catalogMap) Lookup(id string) (model.Product, bool) {
	p, ok := c[id]
	return p, ok
}

func newStore(t *testing.T, api *fakeAPI, cat catalogMap) (*Store, *persist.Gateway) {
	t.Helper()
	gw := persist.NewGateway(persist.NewMemStore(), nil)
	s := NewStore(api, okGuard{}, cat, gw, nil)
	if api.payload.CartNo == "" {
		api.payload = model.CartPayload{CartNo: "C1"}
	}
	_, err := s.Hydrate(context.Background(), "C1")
	require.NoError(t, err)
	return s, gw
}

func TestHydrate_RoundTrip(t *testing.T) {
	api := &fakeAPI{payload: model.CartPayload{
		CartNo:   "C1",
		Products: []model.CartItem{{ProductID: "A", Qty: 2}},
	}}
	s, _ := newStore(t, api, catalogMap{})

	assert.Equal(t, Cart{ID: "C1", Lines: []Line{{ProductID: "A", Quantity: 2}}}, s.Cart())
}

func TestAddLine_QuantityCap(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, _ := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 2}})

	_, err := s.AddLine(ctx, "A", 1)
	require.NoError(t, err)
	c, err := s.AddLine(ctx, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "A", Quantity: 2}}, c.Lines)

	_, err = s.AddLine(ctx, "A", 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, []Line{{ProductID: "A", Quantity: 2}}, s.Cart().Lines)
	assert.ErrorIs(t, s.State().Err, ErrInsufficientStock)

	assert.Equal(t, []string{"fetch", "add", "updateqty"}, api.calls, "the rejected add never reaches the server")
}

func TestMutation_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, gw := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 5}})
	_, err := s.AddLine(ctx, "A", 2)
	require.NoError(t, err)

	api.err = &remote.StatusError{Op: "updateqty", Status: 500}
	_, err = s.SetQuantity(ctx, "A", 4)
	require.ErrorIs(t, err, remote.ErrBadStatus)

	st := s.State()
	assert.Equal(t, 2, st.Cart.Quantity("A"))
	assert.False(t, st.Loading)
	assert.ErrorIs(t, st.Err, remote.ErrBadStatus)

	var persisted Cart
	ok, err := gw.Load(ctx, persist.KeyCart, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, persisted.Quantity("A"))
}

func TestServerStockConflictIsInsufficientStock(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, _ := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 5}})

	api.err = &remote.StatusError{Op: "POST /cart/add", Status: 409, Message: "insufficient stock"}
	_, err := s.AddLine(ctx, "A", 2)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, remote.ErrRejected)
	assert.Empty(t, s.Cart().Lines)

	api.err = nil
	_, err = s.AddLine(ctx, "A", 1)
	require.NoError(t, err)

	api.err = &remote.StatusError{Op: "PATCH /cart/updateqty", Status: 409}
	_, err = s.SetQuantity(ctx, "A", 4)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, s.Cart().Quantity("A"))
	assert.ErrorIs(t, s.State().Err, ErrInsufficientStock)
}

func TestSetQuantity_Bounds(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &fakeAPI{}, catalogMap{"A": {ID: "A", Stock: 3}, "B": {ID: "B", Stock: 3}})
	_, err := s.AddLine(ctx, "A", 1)
	require.NoError(t, err)

	_, err = s.SetQuantity(ctx, "A", 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	_, err = s.SetQuantity(ctx, "A", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.SetQuantity(ctx, "B", 1)
	assert.ErrorIs(t, err, ErrNotInCart)
	_, err = s.AddLine(ctx, "Z", 1)
	assert.ErrorIs(t, err, ErrUnknownProduct)

	c, err := s.SetQuantity(ctx, "A", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity("A"))
}

func TestStockBound_RandomSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"A", "B", "C", "D"}

	for round := 0; round < 50; round++ {
		cat := catalogMap{}
		for _, id := range ids {
			cat[id] = model.Product{ID: id, Stock: rng.Intn(5)}
		}
		s, _ := newStore(t, &fakeAPI{}, cat)

		for step := 0; step < 40; step++ {
			id := ids[rng.Intn(len(ids))]
			qty := rng.Intn(4)
			if rng.Intn(2) == 0 {
				_, _ = s.AddLine(ctx, id, qty)
			} else {
				_, _ = s.SetQuantity(ctx, id, qty)
			}
			for _, l := range s.Cart().Lines {
				require.GreaterOrEqual(t, l.Quantity, 1)
				require.LessOrEqual(t, l.Quantity, cat[l.ProductID].Stock, "round %d step %d", round, step)
			}
		}
	}
}

func TestSecondMutationWhileInFlightIsRejected(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, _ := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 5}, "B": {ID: "B", Stock: 5}})

	api.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.AddLine(ctx, "A", 1)
		done <- err
	}()

	require.Eventually(t, func() bool { return s.State().Loading }, time.Second, time.Millisecond)
	_, err := s.AddLine(ctx, "B", 1)
	assert.ErrorIs(t, err, ErrBusy)

	close(api.block)
	require.NoError(t, <-done)
	assert.Equal(t, []Line{{ProductID: "A", Quantity: 1}}, s.Cart().Lines)
}

func TestClearDiscardsInFlightResult(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, _ := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 5}})

	api.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.AddLine(ctx, "A", 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.State().Loading }, time.Second, time.Millisecond)

	s.Clear()
	close(api.block)

	assert.ErrorIs(t, <-done, session.ErrSessionEnded)
	assert.Equal(t, Cart{}, s.Cart())
}

func TestGuardErrorStopsOperation(t *testing.T) {
	api := &fakeAPI{}
	gw := persist.NewGateway(persist.NewMemStore(), nil)
	s := NewStore(api, denyGuard{}, catalogMap{}, gw, nil)

	_, err := s.Hydrate(context.Background(), "C1")
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.Empty(t, api.calls)
}

type denyGuard struct{}

func (denyGuard) Guard(context.Context) (session.Session, error) {
	return session.Session{}, session.ErrNoSession
}

func TestPrice_ExcludesMissingProducts(t *testing.T) {
	cat := catalogMap{"A": {ID: "A", Name: "Trail", Price: decimal.RequireFromString("199.50")}}
	c := Cart{ID: "C1", Lines: []Line{{ProductID: "A", Quantity: 2}, {ProductID: "gone", Quantity: 1}}}

	p := Price(c, cat)
	require.Len(t, p.Lines, 2)
	assert.True(t, p.Lines[0].Available)
	assert.False(t, p.Lines[1].Available)
	assert.True(t, decimal.RequireFromString("399").Equal(p.Total))
	assert.Equal(t, 2, p.Items)

	lines := p.OrderLines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Trail", lines[0].Name)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s, gw := newStore(t, api, catalogMap{"A": {ID: "A", Stock: 5}})
	_, err := s.AddLine(ctx, "A", 3)
	require.NoError(t, err)

	s2 := NewStore(api, okGuard{}, catalogMap{}, gw, nil)
	require.NoError(t, s2.Restore(ctx))
	assert.Equal(t, s.Cart(), s2.Cart())
}
