package model

type CartItem struct {
	ProductID string `json:"pr_id"`
	Qty       int    `json:"qty"`
}

// CartPayload is the server's view of a cart.
type CartPayload struct {
	CartNo   string     `json:"cart_no"`
	Products []CartItem `json:"products"`
}

type CartMutation struct {
	CartNo    string `json:"cart_no"`
	ProductID string `json:"pr_id"`
	Qty       int    `json:"qty,omitempty"`
}

type WishlistPayload struct {
	Wishlist []string `json:"wishlist"`
}

type WishlistMutation struct {
	UserID    string `json:"_id"`
	ProductID string `json:"pr_id"`
}
