package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/docstore"
)

// Current is the record of the logged in user without credentials.
type Current struct {
	Email            string   `json:"email"`
	PurchasedCourses []string `json:"purchasedCourses"`
	Currency         string   `json:"currency,omitempty"`
}

func HandleShowCurrent(store docstore.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		u, err := Fetch(ctx, store, clm.Email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"email": clm.Email}))
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.Email, err)
		}

		cur := Current{
			Email:            u.Email,
			PurchasedCourses: u.PurchasedCourses,
			Currency:         u.Currency,
		}
		if cur.PurchasedCourses == nil {
			cur.PurchasedCourses = []string{}
		}

		return web.Respond(ctx, w, cur, http.StatusOK)
	}
}
