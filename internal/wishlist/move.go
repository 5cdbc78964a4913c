package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/cart"
	"github.com/Illuminatus66/byqr/internal/session"
)

var ErrPartiallyMoved = errors.New("product left in both cart and wishlist")

type MoveOutcome int

const (
	NotMoved MoveOutcome = iota
	Moved
	RolledBack
	Duplicated
)

func (o MoveOutcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case RolledBack:
		return "rolled_back"
	case Duplicated:
		return "duplicated"
	default:
		return "not_moved"
	}
}

// MoveError reports a move whose wishlist step failed. A Duplicated outcome also matches ErrPartiallyMoved.
type MoveError struct {
	ProductID string
	Outcome   MoveOutcome
	Err       error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s to cart: %s: %v", e.ProductID, e.Outcome, e.Err)
}

func (e *MoveError) Unwrap() []error {
	if e.Outcome == Duplicated {
		return []error{ErrPartiallyMoved, e.Err}
	}
	return []error{e.Err}
}

type Cart interface {
	AddLine(ctx context.Context, productID string, qty int) (cart.Cart, error)
	SetQuantity(ctx context.Context, productID string, qty int) (cart.Cart, error)
	RemoveLine(ctx context.Context, productID string) (cart.Cart, error)
}

// MoveToCart adds one unit of the product to the cart, then removes it from the wishlist.
// The removal is retried; if it still fails the cart step is undone. When the undo fails
// too, the product stays in both and is listed by Duplicates.
func (s *Store) MoveToCart(ctx context.Context, c Cart, productID string) (MoveOutcome, error) {
	if _, err := s.guard.Guard(ctx); err != nil {
		return NotMoved, err
	}
	if !s.Has(productID) {
		return NotMoved, fmt.Errorf("%w: %s", ErrNotInWishlist, productID)
	}

	after, err := c.AddLine(ctx, productID, 1)
	if err != nil {
		return NotMoved, err
	}

	var removeErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 && s.retryDelay > 0 {
			select {
			case <-ctx.Done():
				removeErr = ctx.Err()
			case <-time.After(s.retryDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}
		if _, removeErr = s.Remove(ctx, productID); removeErr == nil {
			return Moved, nil
		}
		if errors.Is(removeErr, session.ErrSessionEnded) || errors.Is(removeErr, session.ErrNoSession) {
			return NotMoved, removeErr
		}
	}

	s.log.Warn("wishlist step of move failed, undoing cart step",
		zap.String("product_id", productID), zap.Error(removeErr))

	var undoErr error
	if q := after.Quantity(productID); q <= 1 {
		_, undoErr = c.RemoveLine(context.WithoutCancel(ctx), productID)
	} else {
		_, undoErr = c.SetQuantity(context.WithoutCancel(ctx), productID, q-1)
	}
	if undoErr == nil {
		return RolledBack, &MoveError{ProductID: productID, Outcome: RolledBack, Err: removeErr}
	}

	s.markDuplicate(productID)
	s.log.Error("move left product in cart and wishlist",
		zap.String("product_id", productID), zap.Error(undoErr))
	return Duplicated, &MoveError{ProductID: productID, Outcome: Duplicated, Err: errors.Join(removeErr, undoErr)}
}
