package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Illuminatus66/byqr/internal/model"
)

func (c *Client) Login(ctx context.Context, cr model.Credentials) (model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/user/login", "/user/login", cr, &out)
	return out, err
}

func (c *Client) Signup(ctx context.Context, reg model.Registration) (model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.do(ctx, http.MethodPost, "/user/signup", "/user/signup", reg, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, userID string, patch model.ProfilePatch) (model.UpdateUserResponse, error) {
	var out model.UpdateUserResponse
	err := c.do(ctx, http.MethodPatch, "/user/update/{id}", "/user/update/"+url.PathEscape(userID), patch, &out)
	return out, err
}

func (c *Client) FetchProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := c.do(ctx, http.MethodGet, "/products/fetchall", "/products/fetchall", nil, &out)
	return out, err
}

func (c *Client) FetchCart(ctx context.Context, cartNo string) (model.CartPayload, error) {
	var out model.CartPayload
	err := c.do(ctx, http.MethodGet, "/cart/fetch/{cart_no}", "/cart/fetch/"+url.PathEscape(cartNo), nil, &out)
	return out, err
}

func (c *Client) AddToCart(ctx context.Context, m model.CartMutation) error {
	return c.do(ctx, http.MethodPost, "/cart/add", "/cart/add", m, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, m model.CartMutation) error {
	return c.do(ctx, http.MethodPost, "/cart/remove", "/cart/remove", m, nil)
}

func (c *Client) UpdateCartQty(ctx context.Context, m model.CartMutation) error {
	return c.do(ctx, http.MethodPatch, "/cart/updateqty", "/cart/updateqty", m, nil)
}

func (c *Client) ClearCart(ctx context.Context, cartNo string) error {
	return c.do(ctx, http.MethodPatch, "/cart/clearcart/{cart_no}", "/cart/clearcart/"+url.PathEscape(cartNo), nil, nil)
}

func (c *Client) FetchWishlist(ctx context.Context, userID string) ([]string, error) {
	var out model.WishlistPayload
	err := c.do(ctx, http.MethodGet, "/wishlist/fetch/{id}", "/wishlist/fetch/"+url.PathEscape(userID), nil, &out)
	return out.Wishlist, err
}

func (c *Client) AddToWishlist(ctx context.Context, m model.WishlistMutation) error {
	return c.do(ctx, http.MethodPost, "/wishlist/add", "/wishlist/add", m, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, m model.WishlistMutation) error {
	return c.do(ctx, http.MethodPost, "/wishlist/remove", "/wishlist/remove", m, nil)
}

func (c *Client) CreateOrderIntent(ctx context.Context, amount int64) (model.OrderIntent, error) {
	var out model.OrderIntent
	err := c.do(ctx, http.MethodPost, "/orders/create-razorpay-order", "/orders/create-razorpay-order",
		model.CreateIntentRequest{Amount: amount}, &out)
	return out, err
}

func (c *Client) FetchOrders(ctx context.Context, userID string) ([]model.Order, error) {
	var out []model.Order
	err := c.do(ctx, http.MethodGet, "/orders/get-orders/{user_id}", "/orders/get-orders/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) VerifyAndSaveOrder(ctx context.Context, v model.Verification) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, http.MethodPost, "/orders/verify-payment-and-save-order", "/orders/verify-payment-and-save-order", v, &out)
	return out, err
}
