package backend

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/Illuminatus66/byqr/internal/model"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrOutOfStock         = errors.New("insufficient stock")
)

type account struct {
	profile  model.Profile
	hash     []byte
	cartNo   string
	wishlist []string
}

type intent struct {
	userID  string
	amount  int64
	receipt string
}

// MemStore holds every backend collection in memory.
type MemStore struct {
	mu       sync.RWMutex
	byEmail  map[string]string
	accounts map[string]*account
	carts    map[string][]model.CartItem
	products []model.Product
	intents  map[string]intent
	orders   map[string][]model.Order
}

func NewMemStore(products []model.Product) *MemStore {
	return &MemStore{
		byEmail:  make(map[string]string),
		accounts: make(map[string]*account),
		carts:    make(map[string][]model.CartItem),
		products: slices.Clone(products),
		intents:  make(map[string]intent),
		orders:   make(map[string][]model.Order),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemStore) CreateUser(reg model.Registration, id, cartNo string) (model.Profile, error) {
	email := normalizeEmail(reg.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return model.Profile{}, ErrEmailExists
	}
	a := &account{
		profile: model.Profile{ID: id, Name: strings.TrimSpace(reg.Name), Email: email, Phone: reg.Phone},
		hash:    hash,
		cartNo:  cartNo,
	}
	s.byEmail[email] = id
	s.accounts[id] = a
	s.carts[cartNo] = nil
	return a.profile, nil
}

func (s *MemStore) Verify(email, password string) (model.Profile, string, error) {
	s.mu.RLock()
	id, ok := s.byEmail[normalizeEmail(email)]
	var a account
	if ok {
		a = *s.accounts[id]
	}
	s.mu.RUnlock()

	if !ok {
		return model.Profile{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return model.Profile{}, "", ErrInvalidCredentials
	}
	return a.profile, a.cartNo, nil
}

// UpdateUser applies patch and reports whether the email changed.
func (s *MemStore) UpdateUser(id string, patch model.ProfilePatch) (model.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Profile{}, false, ErrNotFound
	}
	if patch.Email != nil {
		e := normalizeEmail(*patch.Email)
		patch.Email = &e
		if owner, taken := s.byEmail[e]; taken && owner != id {
			return model.Profile{}, false, ErrEmailExists
		}
	}
	old := a.profile.Email
	next, changed := patch.Apply(a.profile)
	if changed {
		delete(s.byEmail, old)
		s.byEmail[next.Email] = id
	}
	a.profile = next
	return next, changed, nil
}

func (s *MemStore) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

func (s *MemStore) product(id string) (model.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *MemStore) CartOwner(cartNo string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, a := range s.accounts {
		if a.cartNo == cartNo {
			return id, true
		}
	}
	return "", false
}

func (s *MemStore) Cart(cartNo string) (model.CartPayload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.carts[cartNo]
	if !ok {
		return model.CartPayload{}, ErrNotFound
	}
	return model.CartPayload{CartNo: cartNo, Products: slices.Clone(items)}, nil
}

// AddToCart adds qty, merging into an existing line.
func (s *MemStore) AddToCart(cartNo, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[cartNo]
	if !ok {
		return ErrNotFound
	}
	i := slices.IndexFunc(items, func(it model.CartItem) bool { return it.ProductID == productID })
	next := qty
	if i >= 0 {
		next += items[i].Qty
	}
	if err := s.checkStock(productID, next); err != nil {
		return err
	}
	if i >= 0 {
		items[i].Qty = next
	} else {
		items = append(items, model.CartItem{ProductID: productID, Qty: qty})
	}
	s.carts[cartNo] = items
	return nil
}

func (s *MemStore) SetCartQty(cartNo, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[cartNo]
	if !ok {
		return ErrNotFound
	}
	i := slices.IndexFunc(items, func(it model.CartItem) bool { return it.ProductID == productID })
	if i < 0 {
		return ErrNotFound
	}
	if err := s.checkStock(productID, qty); err != nil {
		return err
	}
	items[i].Qty = qty
	return nil
}

func (s *MemStore) checkStock(productID string, qty int) error {
	p, ok := s.product(productID)
	if !ok {
		return ErrNotFound
	}
	if qty > p.Stock {
		return ErrOutOfStock
	}
	return nil
}

func (s *MemStore) RemoveFromCart(cartNo, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[cartNo]
	if !ok {
		return ErrNotFound
	}
	s.carts[cartNo] = slices.DeleteFunc(items, func(it model.CartItem) bool { return it.ProductID == productID })
	return nil
}

func (s *MemStore) ClearCart(cartNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cartNo]; !ok {
		return ErrNotFound
	}
	s.carts[cartNo] = nil
	return nil
}

func (s *MemStore) Wishlist(userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(a.wishlist), nil
}

func (s *MemStore) AddToWishlist(userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.product(productID); !ok {
		return ErrNotFound
	}
	if !slices.Contains(a.wishlist, productID) {
		a.wishlist = append(a.wishlist, productID)
	}
	return nil
}

func (s *MemStore) RemoveFromWishlist(userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	a.wishlist = slices.DeleteFunc(a.wishlist, func(id string) bool { return id == productID })
	return nil
}

func (s *MemStore) SaveIntent(orderID string, in intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[orderID] = in
}

// TakeIntent removes and returns the pending intent, so each can be redeemed once.
func (s *MemStore) TakeIntent(orderID string) (intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[orderID]
	delete(s.intents, orderID)
	return in, ok
}

func (s *MemStore) AppendOrder(userID string, o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = append(s.orders[userID], o)
}

func (s *MemStore) Orders(userID string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders[userID])
}
