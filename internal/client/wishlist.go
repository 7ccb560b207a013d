package client

import (
	"context"
	"errors"

	"campusnest/market/internal/notice"
	"campusnest/market/internal/optimistic"
)

// WishlistToggler flips wishlist membership optimistically: the new state is
// visible immediately and reverted if the server call fails.
type WishlistToggler struct {
	c       *Client
	state   *optimistic.Set
	notices *notice.Notifier
}

func NewWishlistToggler(c *Client, notices *notice.Notifier) *WishlistToggler {
	return &WishlistToggler{c: c, state: optimistic.NewSet(), notices: notices}
}

// Load seeds membership from the server.
func (w *WishlistToggler) Load(ctx context.Context) error {
	props, err := w.c.GetWishlist(ctx)
	if err != nil {
		w.notices.Error(UserMessage(err, "Failed to fetch wishlist"))
		return err
	}
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID.Hex())
	}
	w.state.Seed(ids)
	return nil
}

// Has is the displayed membership of propertyID.
func (w *WishlistToggler) Has(propertyID string) bool {
	return w.state.Has(propertyID)
}

// Toggle adds or removes propertyID depending on its current displayed state.
// A toggle while the previous one is in flight returns optimistic.ErrPending
// without showing a notice.
func (w *WishlistToggler) Toggle(ctx context.Context, propertyID string) error {
	t := w.state.Get(propertyID)
	add := !t.Value()
	err := t.Run(ctx, add, func(ctx context.Context) error {
		if add {
			return w.c.AddToWishlist(ctx, propertyID)
		}
		return w.c.RemoveFromWishlist(ctx, propertyID)
	})
	switch {
	case errors.Is(err, optimistic.ErrPending):
	case err != nil:
		w.notices.Error(UserMessage(err, "Failed to update wishlist"))
	case add:
		w.notices.Success("Added to wishlist")
	default:
		w.notices.Success("Removed from wishlist")
	}
	return err
}
