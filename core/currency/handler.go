package currency

import (
	"context"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/validate"
)

type Choice struct {
	Currency string `json:"currency" validate:"required"`
}

type view struct {
	Currency  Code   `json:"currency"`
	Supported []Code `json:"supported"`
}

func HandleShow(pref *Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, view{pref.Get(ctx), Codes()}, http.StatusOK)
	}
}

func HandleUpdate(pref *Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ch Choice
		if err := web.Decode(w, r, &ch); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ch); err != nil {
			return weberr.Invalid(err)
		}

		c, ok := Lookup(ch.Currency)
		if !ok {
			return weberr.Invalid(fmt.Errorf("%w: %s", ErrUnsupported, ch.Currency))
		}

		if err := pref.Set(ctx, c, claims.Email(ctx)); err != nil {
			return weberr.Invalid(err)
		}

		return web.Respond(ctx, w, view{c, Codes()}, http.StatusOK)
	}
}
