package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/remote"
	"github.com/Illuminatus66/byqr/internal/session"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrUnknownProduct    = errors.New("product not in catalog")
	ErrNotInCart         = errors.New("product not in cart")
	ErrNoCart            = errors.New("no cart number for this session")
	ErrBusy              = errors.New("a cart update is already in flight")
)

type API interface {
	FetchCart(ctx context.Context, cartNo string) (model.CartPayload, error)
	AddToCart(ctx context.Context, m model.CartMutation) error
	RemoveFromCart(ctx context.Context, m model.CartMutation) error
	UpdateCartQty(ctx context.Context, m model.CartMutation) error
	ClearCart(ctx context.Context, cartNo string) error
}

type Guard interface {
	Guard(ctx context.Context) (session.Session, error)
}

type Catalog interface {
	Lookup(id string) (model.Product, bool)
}

type State struct {
	Cart    Cart
	Loading bool
	Err     error
}

type Store struct {
	api     API
	guard   Guard
	catalog Catalog
	gw      *persist.Gateway
	log     *zap.Logger

	mu   sync.Mutex
	cart Cart
	busy bool
	err  error
	gen  uint64
}

func NewStore(api API, guard Guard, catalog Catalog, gw *persist.Gateway, log *zap.Logger) *Store {
	return &Store{api: api, guard: guard, catalog: catalog, gw: gw, log: kit.OrNop(log)}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Cart: s.cart.clone(), Loading: s.busy, Err: s.err}
}

func (s *Store) Cart() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.clone()
}

// Hydrate replaces the cart with the server's copy. An empty cartNo uses the session's cart.
func (s *Store) Hydrate(ctx context.Context, cartNo string) (Cart, error) {
	sess, err := s.guard.Guard(ctx)
	if err != nil {
		return Cart{}, err
	}
	if cartNo == "" {
		cartNo = sess.CartNo
	}
	if cartNo == "" {
		return Cart{}, s.reject(ErrNoCart)
	}

	gen, _, err := s.begin()
	if err != nil {
		return Cart{}, err
	}
	payload, err := s.api.FetchCart(ctx, cartNo)
	return s.commit(ctx, gen, hydrated{cart: fromPayload(cartNo, payload)}, err)
}

func fromPayload(cartNo string, p model.CartPayload) Cart {
	c := Cart{ID: cartNo}
	if p.CartNo != "" {
		c.ID = p.CartNo
	}
	for _, it := range p.Products {
		if it.ProductID == "" || it.Qty < 1 {
			continue
		}
		c = apply(c, lineAdded{productID: it.ProductID, qty: it.Qty})
	}
	return c
}

// AddLine adds qty of a product, merging into an existing line through updateqty.
func (s *Store) AddLine(ctx context.Context, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, s.reject(ErrInvalidQuantity)
	}
	if _, err := s.guard.Guard(ctx); err != nil {
		return Cart{}, err
	}
	p, ok := s.catalog.Lookup(productID)
	if !ok {
		return Cart{}, s.reject(fmt.Errorf("%w: %s", ErrUnknownProduct, productID))
	}

	gen, cur, err := s.begin()
	if err != nil {
		return Cart{}, err
	}
	if cur.ID == "" {
		return s.abort(gen, ErrNoCart)
	}
	existing := cur.Quantity(productID)
	if existing+qty > p.Stock {
		return s.abort(gen, fmt.Errorf("%w: %s has %d, cart would hold %d", ErrInsufficientStock, productID, p.Stock, existing+qty))
	}

	m := model.CartMutation{CartNo: cur.ID, ProductID: productID, Qty: existing + qty}
	if existing > 0 {
		err = stockError(s.api.UpdateCartQty(ctx, m))
		return s.commit(ctx, gen, quantitySet{productID: productID, qty: existing + qty}, err)
	}
	m.Qty = qty
	err = stockError(s.api.AddToCart(ctx, m))
	return s.commit(ctx, gen, lineAdded{productID: productID, qty: qty}, err)
}

func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, s.reject(ErrInvalidQuantity)
	}
	if _, err := s.guard.Guard(ctx); err != nil {
		return Cart{}, err
	}
	p, ok := s.catalog.Lookup(productID)
	if !ok {
		return Cart{}, s.reject(fmt.Errorf("%w: %s", ErrUnknownProduct, productID))
	}

	gen, cur, err := s.begin()
	if err != nil {
		return Cart{}, err
	}
	if !cur.Has(productID) {
		return s.abort(gen, fmt.Errorf("%w: %s", ErrNotInCart, productID))
	}
	if qty > p.Stock {
		return s.abort(gen, fmt.Errorf("%w: %s has %d, asked for %d", ErrInsufficientStock, productID, p.Stock, qty))
	}

	err = stockError(s.api.UpdateCartQty(ctx, model.CartMutation{CartNo: cur.ID, ProductID: productID, Qty: qty}))
	return s.commit(ctx, gen, quantitySet{productID: productID, qty: qty}, err)
}

// RemoveLine drops the product's line. Removing an absent product is a no-op.
func (s *Store) RemoveLine(ctx context.Context, productID string) (Cart, error) {
	if _, err := s.guard.Guard(ctx); err != nil {
		return Cart{}, err
	}
	gen, cur, err := s.begin()
	if err != nil {
		return Cart{}, err
	}
	if !cur.Has(productID) {
		s.finish(gen)
		return cur, nil
	}
	err = s.api.RemoveFromCart(ctx, model.CartMutation{CartNo: cur.ID, ProductID: productID})
	return s.commit(ctx, gen, lineRemoved{productID: productID}, err)
}

// Empty clears the cart on the server, keeping the cart number.
func (s *Store) Empty(ctx context.Context) (Cart, error) {
	if _, err := s.guard.Guard(ctx); err != nil {
		return Cart{}, err
	}
	gen, cur, err := s.begin()
	if err != nil {
		return Cart{}, err
	}
	if cur.ID == "" {
		return s.abort(gen, ErrNoCart)
	}
	err = s.api.ClearCart(ctx, cur.ID)
	return s.commit(ctx, gen, emptied{}, err)
}

// Clear drops the local cart without contacting the server. Any in-flight result is discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.busy = false
	s.err = nil
	s.cart = apply(s.cart, reset{})
}

func (s *Store) Restore(ctx context.Context) error {
	var c Cart
	ok, err := s.gw.Load(ctx, persist.KeyCart, &c)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = apply(Cart{}, hydrated{cart: c})
	return nil
}

func (s *Store) begin() (uint64, Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return 0, Cart{}, ErrBusy
	}
	s.busy = true
	s.err = nil
	return s.gen, s.cart.clone(), nil
}

func (s *Store) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.busy = false
	}
}

func (s *Store) abort(gen uint64, err error) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.busy = false
		s.err = err
	}
	return s.cart.clone(), err
}

func (s *Store) commit(ctx context.Context, gen uint64, a action, err error) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return Cart{}, session.ErrSessionEnded
	}
	s.busy = false
	if err != nil {
		s.err = err
		s.log.Warn("cart update failed", zap.Error(err))
		return s.cart.clone(), err
	}
	s.cart = apply(s.cart, a)
	if err := s.gw.Save(ctx, persist.KeyCart, s.cart); err != nil {
		s.log.Warn("persist cart failed", zap.Error(err))
	}
	return s.cart.clone(), nil
}

func (s *Store) reject(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

// stockError maps the server's 409 on add/updateqty to ErrInsufficientStock. The server
// holds the real inventory, so this fires whenever the catalog snapshot is stale.
func stockError(err error) error {
	if remote.Status(err) == http.StatusConflict {
		return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	}
	return err
}
