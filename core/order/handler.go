package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/cart"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/session"
)

type Receipt struct {
	PurchasedCourses []string `json:"purchasedCourses"`
}

// HandleCheckout turns the cart into purchases, refreshes the session
// snapshot and empties the cart, in that order.
func HandleCheckout(store docstore.Store, carts *cart.Manager, storage session.Storage) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := carts.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}

		fields := weberr.WithFields(map[string]interface{}{
			"email":   clm.Email,
			"courses": c.CourseIDs(),
		})

		purchased, err := Purchase(ctx, store, clm.Email, c)
		switch {
		case errors.Is(err, ErrEmptyCart):
			return weberr.Unprocessable(err, fields)
		case errors.Is(err, user.ErrNotFound):
			return weberr.NewError(err, "user not found", http.StatusNotFound, fields)
		case err != nil:
			return weberr.Wrap(fmt.Errorf("checking out: %w", err), fields)
		}

		clm.PurchasedCourses = purchased
		if err := claims.Save(ctx, storage, clm); err != nil {
			return fmt.Errorf("refreshing session user: %w", err)
		}

		if err := carts.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		return web.Respond(ctx, w, Receipt{purchased}, http.StatusOK)
	}
}
