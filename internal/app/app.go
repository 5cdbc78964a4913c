package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Illuminatus66/byqr/internal/cart"
	"github.com/Illuminatus66/byqr/internal/catalog"
	"github.com/Illuminatus66/byqr/internal/compare"
	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/order"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/remote"
	"github.com/Illuminatus66/byqr/internal/session"
	"github.com/Illuminatus66/byqr/internal/wishlist"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	TTL     time.Duration

	// Store backs the persistence gateway. Nil means an in-memory store.
	Store    persist.Store
	Log      *zap.Logger
	Registry prometheus.Registerer
	Clock    func() time.Time

	RemoteOptions  []remote.Option
	SagaRetries    int
	SagaRetryDelay time.Duration
}

// App owns every store. Build one per process (or per test) with New.
type App struct {
	Log      *zap.Logger
	Client   *remote.Client
	Persist  *persist.Gateway
	Session  *session.Manager
	Catalog  *catalog.Cache
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Compare  *compare.Set
	Orders   *order.History

	store persist.Store
}

func New(o Options) *App {
	log := kit.OrNop(o.Log)
	store := o.Store
	if store == nil {
		store = persist.NewMemStore()
	}

	ropts := append([]remote.Option(nil), o.RemoteOptions...)
	if o.Registry != nil {
		ropts = append(ropts, remote.WithMetrics(kit.NewClientMetrics(o.Registry)))
	}
	client := remote.NewClient(o.BaseURL, o.Timeout, ropts...)
	gw := persist.NewGateway(store, log)

	sopts := []session.Option{session.WithTTL(o.TTL)}
	if o.Clock != nil {
		sopts = append(sopts, session.WithClock(o.Clock))
	}
	sess := session.NewManager(client, gw, log.Named("session"), sopts...)
	client.SetTokenSource(sess.Token)

	cat := catalog.NewCache(client, log.Named("catalog"))

	wopts := []wishlist.Option{}
	if o.SagaRetries > 0 || o.SagaRetryDelay > 0 {
		wopts = append(wopts, wishlist.WithRetry(o.SagaRetries, o.SagaRetryDelay))
	}

	a := &App{
		Log:      log,
		Client:   client,
		Persist:  gw,
		Session:  sess,
		Catalog:  cat,
		Cart:     cart.NewStore(client, sess, cat, gw, log.Named("cart")),
		Wishlist: wishlist.NewStore(client, sess, gw, log.Named("wishlist"), wopts...),
		Compare:  compare.NewSet(gw, log.Named("compare")),
		Orders:   order.NewHistory(client, sess, gw, log.Named("orders")),
		store:    store,
	}

	sess.Own(a.Cart, a.Wishlist, a.Orders)
	cat.OnRefresh(func(s catalog.Snapshot) {
		a.Compare.Prune(context.Background(), s)
	})
	return a
}

// Restore reloads every persisted slice, then lets the session guard discard a stale session.
func (a *App) Restore(ctx context.Context) error {
	for name, restore := range map[string]func(context.Context) error{
		"compare":  a.Compare.Restore,
		"cart":     a.Cart.Restore,
		"wishlist": a.Wishlist.Restore,
		"orders":   a.Orders.Restore,
	} {
		if err := restore(ctx); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}
	if err := a.Session.Restore(ctx); err != nil {
		return err
	}
	if a.Session.Status().Session == nil {
		a.Cart.Clear()
		a.Wishlist.Clear()
		a.Orders.Clear()
	}
	return nil
}

func (a *App) Login(ctx context.Context, cr model.Credentials) (session.Session, error) {
	s, err := a.Session.Login(ctx, cr)
	if err != nil {
		return session.Session{}, err
	}
	return s, a.hydrate(ctx, s)
}

func (a *App) Signup(ctx context.Context, reg model.Registration) (session.Session, error) {
	s, err := a.Session.Signup(ctx, reg)
	if err != nil {
		return session.Session{}, err
	}
	return s, a.hydrate(ctx, s)
}

// hydrate loads the session-owned stores in parallel. The session stands even if one fails.
func (a *App) hydrate(ctx context.Context, s session.Session) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := a.Cart.Hydrate(gctx, s.CartNo)
		return err
	})
	g.Go(func() error {
		_, err := a.Wishlist.Hydrate(gctx, s.UserID())
		return err
	})
	g.Go(func() error {
		_, err := a.Orders.Hydrate(gctx, s.UserID())
		return err
	})
	if err := g.Wait(); err != nil {
		a.Log.Warn("hydrate after sign-in failed", zap.Error(err))
		return fmt.Errorf("hydrate after sign-in: %w", err)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
}

func (a *App) MoveToCart(ctx context.Context, productID string) (wishlist.MoveOutcome, error) {
	return a.Wishlist.MoveToCart(ctx, a.Cart, productID)
}

// PricedCart resolves the cart against the current catalog snapshot.
func (a *App) PricedCart() cart.Priced {
	return cart.Price(a.Cart.Cart(), a.Catalog)
}

func (a *App) Close() error {
	return a.store.Close()
}
