package backend

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Log   *zap.Logger
	Store *MemStore
	JWT   *TokenMaker

	// PaymentKeyID is handed to clients with each intent; PaymentSecret signs gateway confirmations.
	PaymentKeyID  string
	PaymentSecret string

	Now func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *Server) log() *zap.Logger {
	return kit.OrNop(s.Log)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// decode and decodeValid write the 400 themselves and report whether the handler may go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := kit.DecodeJSON(w, r, v, maxBodyBytes); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	return true
}

func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if !s.decode(w, r, v) {
		return false
	}
	if err := validate.Struct(v); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", map[string]any{"cause": err.Error()})
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	case errors.Is(err, ErrOutOfStock):
		kit.WriteError(w, r, http.StatusConflict, "insufficient stock", nil)
	case errors.Is(err, ErrEmailExists):
		kit.WriteError(w, r, http.StatusConflict, "email already exists", nil)
	default:
		s.log().Error("store error", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.Registration
	if !s.decodeValid(w, r, &req) {
		return
	}

	cartNo := "c_" + uuid.NewString()
	profile, err := s.Store.CreateUser(req, "u_"+uuid.NewString(), cartNo)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeAuth(w, r, http.StatusCreated, profile, cartNo)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if !s.decodeValid(w, r, &req) {
		return
	}

	profile, cartNo, err := s.Store.Verify(req.Email, req.Password)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	s.writeAuth(w, r, http.StatusOK, profile, cartNo)
}

func (s *Server) writeAuth(w http.ResponseWriter, r *http.Request, status int, p model.Profile, cartNo string) {
	tok, err := s.JWT.New(Identity{UserID: p.ID, Email: p.Email, CartNo: cartNo})
	if err != nil {
		s.log().Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	cart, err := s.Store.Cart(cartNo)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteJSON(w, status, model.AuthResponse{Result: p, Cart: cart, Token: tok})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, _ := IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}

	var patch model.ProfilePatch
	if !s.decodeValid(w, r, &patch) {
		return
	}

	p, emailChanged, err := s.Store.UpdateUser(id, patch)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := model.UpdateUserResponse{Result: p}
	if emailChanged {
		tok, err := s.JWT.New(Identity{UserID: p.ID, Email: p.Email, CartNo: u.CartNo})
		if err != nil {
			s.log().Error("token issue", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}
		resp.Token = &tok
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProducts(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Products())
}

// ownsCart writes a 403/404 when the caller may not touch cartNo.
func (s *Server) ownsCart(w http.ResponseWriter, r *http.Request, cartNo string) bool {
	u, _ := IdentityFromContext(r.Context())
	if cartNo != "" && cartNo == u.CartNo {
		return true
	}
	owner, ok := s.Store.CartOwner(cartNo)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "cart not found", map[string]any{"cart_no": cartNo})
		return false
	}
	if owner != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return false
	}
	return true
}

func (s *Server) handleFetchCart(w http.ResponseWriter, r *http.Request) {
	cartNo := chi.URLParam(r, "cart_no")
	if !s.ownsCart(w, r, cartNo) {
		return
	}
	c, err := s.Store.Cart(cartNo)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) decodeCartMutation(w http.ResponseWriter, r *http.Request, needQty bool) (model.CartMutation, bool) {
	var m model.CartMutation
	if !s.decode(w, r, &m) {
		return m, false
	}
	if m.CartNo == "" || m.ProductID == "" || (needQty && m.Qty < 1) {
		kit.WriteError(w, r, http.StatusBadRequest, "cart_no, pr_id and qty >= 1 required", nil)
		return m, false
	}
	return m, s.ownsCart(w, r, m.CartNo)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeCartMutation(w, r, true)
	if !ok {
		return
	}
	if err := s.Store.AddToCart(m.CartNo, m.ProductID, m.Qty); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "added to cart")
}

func (s *Server) handleUpdateQty(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeCartMutation(w, r, true)
	if !ok {
		return
	}
	if err := s.Store.SetCartQty(m.CartNo, m.ProductID, m.Qty); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "quantity updated")
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeCartMutation(w, r, false)
	if !ok {
		return
	}
	if err := s.Store.RemoveFromCart(m.CartNo, m.ProductID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "removed from cart")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	cartNo := chi.URLParam(r, "cart_no")
	if !s.ownsCart(w, r, cartNo) {
		return
	}
	if err := s.Store.ClearCart(cartNo); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "cart cleared")
}

func (s *Server) handleFetchWishlist(w http.ResponseWriter, r *http.Request) {
	u, _ := IdentityFromContext(r.Context())
	if chi.URLParam(r, "id") != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}
	ids, err := s.Store.Wishlist(u.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	kit.WriteJSON(w, http.StatusOK, model.WishlistPayload{Wishlist: ids})
}

func (s *Server) decodeWishlistMutation(w http.ResponseWriter, r *http.Request) (model.WishlistMutation, bool) {
	u, _ := IdentityFromContext(r.Context())
	var m model.WishlistMutation
	if !s.decode(w, r, &m) {
		return m, false
	}
	if m.ProductID == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "pr_id required", nil)
		return m, false
	}
	if m.UserID != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return m, false
	}
	return m, true
}

func (s *Server) handleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeWishlistMutation(w, r)
	if !ok {
		return
	}
	if err := s.Store.AddToWishlist(m.UserID, m.ProductID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "added to wishlist")
}

func (s *Server) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeWishlistMutation(w, r)
	if !ok {
		return
	}
	if err := s.Store.RemoveFromWishlist(m.UserID, m.ProductID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "removed from wishlist")
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	u, _ := IdentityFromContext(r.Context())
	var req model.CreateIntentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "amount must be positive", nil)
		return
	}

	in := model.OrderIntent{
		OrderID: "order_" + uuid.NewString(),
		Amount:  req.Amount,
		Receipt: "rcpt_" + uuid.NewString(),
		Key:     s.PaymentKeyID,
	}
	s.Store.SaveIntent(in.OrderID, intent{userID: u.UserID, amount: in.Amount, receipt: in.Receipt})
	kit.WriteJSON(w, http.StatusOK, in)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := IdentityFromContext(r.Context())
	if chi.URLParam(r, "user_id") != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}
	orders := s.Store.Orders(u.UserID)
	if orders == nil {
		orders = []model.Order{}
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

func (s *Server) handleVerifyAndSave(w http.ResponseWriter, r *http.Request) {
	u, _ := IdentityFromContext(r.Context())
	var v model.Verification
	if !s.decode(w, r, &v) {
		return
	}
	if v.UserID != u.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}
	if !validSignature(s.PaymentSecret, v.GatewayOrderID, v.PaymentID, v.Signature) {
		kit.WriteError(w, r, http.StatusBadRequest, "signature mismatch", nil)
		return
	}

	in, ok := s.Store.TakeIntent(v.GatewayOrderID)
	if !ok || in.userID != u.UserID {
		kit.WriteError(w, r, http.StatusBadRequest, "unknown gateway order", nil)
		return
	}
	if got := v.TotalAmount.Shift(2).Round(0).IntPart(); got != in.amount {
		s.Store.SaveIntent(v.GatewayOrderID, in)
		kit.WriteError(w, r, http.StatusBadRequest, "amount mismatch",
			map[string]any{"paid": decimal.New(in.amount, -2).String(), "claimed": v.TotalAmount.String()})
		return
	}

	o := model.Order{
		Receipt:     in.receipt,
		Products:    v.Products,
		TotalAmount: v.TotalAmount,
		CreatedAt:   s.now().UTC(),
	}
	s.Store.AppendOrder(u.UserID, o)
	s.log().Info("order saved", zap.String("user_id", u.UserID), zap.String("receipt", o.Receipt))
	kit.WriteJSON(w, http.StatusCreated, o)
}
