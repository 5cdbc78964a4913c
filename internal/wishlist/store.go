package wishlist

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/session"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

var (
	ErrBusy          = errors.New("a wishlist update is already in flight")
	ErrNotInWishlist = errors.New("product not in wishlist")
)

type API interface {
	FetchWishlist(ctx context.Context, userID string) ([]string, error)
	AddToWishlist(ctx context.Context, m model.WishlistMutation) error
	RemoveFromWishlist(ctx context.Context, m model.WishlistMutation) error
}

type Guard interface {
	Guard(ctx context.Context) (session.Session, error)
}

type State struct {
	IDs     []string
	Loading bool
	Err     error
	// Duplicates are products a failed move left in both cart and wishlist.
	Duplicates []string
}

type action interface{ wishlistAction() }

type (
	hydrated struct{ ids []string }
	added    struct{ id string }
	removed  struct{ id string }
	reset    struct{}
)

func (hydrated) wishlistAction() {}
func (added) wishlistAction()    {}
func (removed) wishlistAction()  {}
func (reset) wishlistAction()    {}

func apply(ids []string, a action) []string {
	switch a := a.(type) {
	case hydrated:
		out := make([]string, 0, len(a.ids))
		for _, id := range a.ids {
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
		return out
	case added:
		if slices.Contains(ids, a.id) {
			return slices.Clone(ids)
		}
		return append(slices.Clone(ids), a.id)
	case removed:
		return slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == a.id })
	case reset:
		return nil
	default:
		panic("wishlist: unhandled action")
	}
}

type Store struct {
	api   API
	guard Guard
	gw    *persist.Gateway
	log   *zap.Logger

	retries    int
	retryDelay time.Duration

	mu   sync.Mutex
	ids  []string
	dups []string
	busy bool
	err  error
	gen  uint64
}

type Option func(*Store)

// WithRetry sets how many extra attempts the saga makes at the wishlist removal step.
func WithRetry(n int, delay time.Duration) Option {
	return func(s *Store) {
		s.retries = n
		s.retryDelay = delay
	}
}

func NewStore(api API, guard Guard, gw *persist.Gateway, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		api:        api,
		guard:      guard,
		gw:         gw,
		log:        kit.OrNop(log),
		retries:    2,
		retryDelay: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{IDs: slices.Clone(s.ids), Loading: s.busy, Err: s.err, Duplicates: slices.Clone(s.dups)}
}

func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *Store) Has(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, productID)
}

func (s *Store) Duplicates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.dups)
}

// Hydrate loads the user's wishlist. An empty userID uses the session's user.
func (s *Store) Hydrate(ctx context.Context, userID string) ([]string, error) {
	sess, err := s.guard.Guard(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = sess.UserID()
	}
	gen, _, err := s.begin()
	if err != nil {
		return nil, err
	}
	ids, err := s.api.FetchWishlist(ctx, userID)
	return s.commit(ctx, gen, hydrated{ids: ids}, err)
}

// Add is a no-op for a product already present.
func (s *Store) Add(ctx context.Context, productID string) ([]string, error) {
	sess, err := s.guard.Guard(ctx)
	if err != nil {
		return nil, err
	}
	gen, cur, err := s.begin()
	if err != nil {
		return nil, err
	}
	if slices.Contains(cur, productID) {
		s.finish(gen)
		return cur, nil
	}
	err = s.api.AddToWishlist(ctx, model.WishlistMutation{UserID: sess.UserID(), ProductID: productID})
	return s.commit(ctx, gen, added{id: productID}, err)
}

func (s *Store) Remove(ctx context.Context, productID string) ([]string, error) {
	sess, err := s.guard.Guard(ctx)
	if err != nil {
		return nil, err
	}
	gen, cur, err := s.begin()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cur, productID) {
		s.finish(gen)
		return cur, nil
	}
	err = s.api.RemoveFromWishlist(ctx, model.WishlistMutation{UserID: sess.UserID(), ProductID: productID})
	return s.commit(ctx, gen, removed{id: productID}, err)
}

// Clear drops the local wishlist without contacting the server.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.busy = false
	s.err = nil
	s.ids = apply(s.ids, reset{})
	s.dups = nil
}

func (s *Store) Restore(ctx context.Context) error {
	var ids []string
	ok, err := s.gw.Load(ctx, persist.KeyWishlist, &ids)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = apply(nil, hydrated{ids: ids})
	return nil
}

func (s *Store) begin() (uint64, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return 0, nil, ErrBusy
	}
	s.busy = true
	s.err = nil
	return s.gen, slices.Clone(s.ids), nil
}

func (s *Store) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.busy = false
	}
}

func (s *Store) commit(ctx context.Context, gen uint64, a action, err error) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, session.ErrSessionEnded
	}
	s.busy = false
	if err != nil {
		s.err = err
		s.log.Warn("wishlist update failed", zap.Error(err))
		return slices.Clone(s.ids), err
	}
	s.ids = apply(s.ids, a)
	s.dups = slices.DeleteFunc(s.dups, func(id string) bool { return !slices.Contains(s.ids, id) })
	if err := s.gw.Save(ctx, persist.KeyWishlist, s.ids); err != nil {
		s.log.Warn("persist wishlist failed", zap.Error(err))
	}
	return slices.Clone(s.ids), nil
}

func (s *Store) markDuplicate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.dups, id) {
		s.dups = append(s.dups, id)
	}
}

// Resolve returns the wishlisted products still in the catalog.
func Resolve(ids []string, catalog interface {
	Lookup(id string) (model.Product, bool)
}) []model.Product {
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := catalog.Lookup(id); ok {
			out = append(out, p)
		}
	}
	return out
}
