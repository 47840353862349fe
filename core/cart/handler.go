package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/access"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/validate"
)

type View struct {
	Items        []Item        `json:"items"`
	Count        int           `json:"count"`
	Total        string        `json:"total"`
	Currency     currency.Code `json:"currency"`
	DisplayTotal string        `json:"displayTotal"`
}

func view(c Cart, cur currency.Code) View {
	tot := c.Total()
	return View{
		Items:        c.Items,
		Count:        c.Count(),
		Total:        tot.StringFixed(2),
		Currency:     cur,
		DisplayTotal: currency.Convert(tot, cur),
	}
}

func HandleShow(mgr *Manager, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := mgr.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading cart: %w", err)
		}

		return web.Respond(ctx, w, view(c, pref.Get(ctx)), http.StatusOK)
	}
}

func HandleDelete(mgr *Manager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := mgr.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleCreateItem adds a course to the cart. Buying needs an account, and
// a course cannot be bought twice.
func HandleCreateItem(mgr *Manager, store docstore.Store, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("login required"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Invalid(err)
		}

		fields := weberr.WithFields(map[string]interface{}{
			"course_id": in.CourseID,
			"email":     clm.Email,
		})

		crs, err := course.Fetch(ctx, store, in.CourseID)
		if err != nil {
			if errors.Is(err, course.ErrNotFound) {
				return weberr.NotFound(err, fields)
			}
			return fmt.Errorf("fetching course[%s]: %w", in.CourseID, err)
		}

		if access.HasAccess(clm.PurchasedCourses, crs.ID) {
			return weberr.Conflict(errors.New("course already purchased"), fields)
		}

		c, err := mgr.Add(ctx, crs)
		if err != nil {
			return fmt.Errorf("adding course[%s] to cart: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, view(c, pref.Get(ctx)), http.StatusOK)
	}
}

func HandleDeleteItem(mgr *Manager, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "course_id")

		c, err := mgr.Remove(ctx, id)
		if err != nil {
			return fmt.Errorf("removing course[%s] from cart: %w", id, err)
		}

		return web.Respond(ctx, w, view(c, pref.Get(ctx)), http.StatusOK)
	}
}
