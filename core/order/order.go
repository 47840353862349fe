package order

import (
	"context"
	"errors"

	"github.com/artacademy/storefront/core/cart"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
)

var ErrEmptyCart = errors.New("no items to checkout")

// Union appends the ids of add missing from existing, keeping the order of
// both and dropping duplicates.
func Union(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	seen := make(map[string]bool, cap(out))

	for _, list := range [][]string{existing, add} {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Purchase grants the user access to every course in c and returns the
// resulting purchase list. The record is never created here: a missing
// user fails with user.ErrNotFound. The read and the write are separate
// calls, so two concurrent checkouts of the same user can lose one side.
func Purchase(ctx context.Context, store docstore.Store, email string, c cart.Cart) ([]string, error) {
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	u, err := user.Fetch(ctx, store, email)
	if err != nil {
		return nil, err
	}

	purchased := Union(u.PurchasedCourses, c.CourseIDs())

	if err := user.SetPurchased(ctx, store, email, purchased); err != nil {
		return nil, err
	}
	return purchased, nil
}
