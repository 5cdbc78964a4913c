package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

func TestClient_FetchCart_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		kit.WriteJSON(w, http.StatusOK, model.CartPayload{
			CartNo:   "C1",
			Products: []model.CartItem{{ProductID: "A", Qty: 2}},
		})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL+"/", time.Second)
	c.SetTokenSource(func() string { return "tok" })

	cart, err := c.FetchCart(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/cart/fetch/C1", gotPath)
	assert.Equal(t, "C1", cart.CartNo)
	assert.Equal(t, []model.CartItem{{ProductID: "A", Qty: 2}}, cart.Products)
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrRejected},
		{http.StatusBadRequest, ErrRejected},
		{http.StatusBadGateway, ErrBadStatus},
	}

	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			kit.WriteMessage(w, tc.status, "nope")
		}))

		c := NewClient(ts.URL, time.Second)
		err := c.AddToCart(context.Background(), model.CartMutation{CartNo: "C1", ProductID: "A", Qty: 1})
		ts.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.Equal(t, tc.status, Status(err))
		assert.Contains(t, err.Error(), "nope")
	}
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(url, 200*time.Millisecond)
	_, err := c.FetchProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, 0, Status(err))
}

func TestClient_MetricsUseRouteLabel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, model.WishlistPayload{Wishlist: []string{"A"}})
	}))
	t.Cleanup(ts.Close)

	reg := prometheus.NewRegistry()
	m := kit.NewClientMetrics(reg)
	c := NewClient(ts.URL, time.Second, WithMetrics(m))

	ids, err := c.FetchWishlist(context.Background(), "u_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids)

	got := testutil.ToFloat64(m.Calls.WithLabelValues(http.MethodGet, "/wishlist/fetch/{id}", "200"))
	assert.Equal(t, 1.0, got)
}
