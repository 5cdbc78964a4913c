package backend

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin  = 5
	signupLimitPerMin = 3
	limitWindow       = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	metricsOn := deps.MetricsEnabled && deps.Registry != nil
	if deps.MetricsEnabled && deps.Registry == nil && deps.Log != nil {
		deps.Log.Warn("metrics enabled but Registry is nil")
	}

	setupMiddleware(r, deps, metricsOn)
	setupRoutes(r, s, deps, metricsOn)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps, metricsOn bool) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))

	if metricsOn {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.RouteLabel))
	}
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps, metricsOn bool) {
	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	signupLimiter := kit.NewIPRateLimiter(signupLimitPerMin, limitWindow)

	r.Get("/healthz", healthz)
	r.Get("/readyz", healthz)

	r.With(loginLimiter.Middleware).Post("/user/login", s.handleLogin)
	r.With(signupLimiter.Middleware).Post("/user/signup", s.handleSignup)
	r.Get("/products/fetchall", s.handleProducts)

	r.Group(func(pr chi.Router) {
		pr.Use(AuthJWT(s.JWT))

		pr.Patch("/user/update/{id}", s.handleUpdateUser)

		pr.Get("/cart/fetch/{cart_no}", s.handleFetchCart)
		pr.Post("/cart/add", s.handleAddToCart)
		pr.Post("/cart/remove", s.handleRemoveFromCart)
		pr.Patch("/cart/updateqty", s.handleUpdateQty)
		pr.Patch("/cart/clearcart/{cart_no}", s.handleClearCart)

		pr.Get("/wishlist/fetch/{id}", s.handleFetchWishlist)
		pr.Post("/wishlist/add", s.handleAddToWishlist)
		pr.Post("/wishlist/remove", s.handleRemoveFromWishlist)

		pr.Post("/orders/create-razorpay-order", s.handleCreateIntent)
		pr.Get("/orders/get-orders/{user_id}", s.handleGetOrders)
		pr.Post("/orders/verify-payment-and-save-order", s.handleVerifyAndSave)
	})

	if metricsOn {
		r.With(kit.MetricsAuth(deps.MetricsToken)).Handle(
			"/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
