package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/access"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
)

// Listing is a course as shown to the current client.
type Listing struct {
	Course
	Currency     currency.Code `json:"currency"`
	DisplayPrice string        `json:"displayPrice"`
	Purchased    bool          `json:"purchased"`
}

func listing(ctx context.Context, c Course, cur currency.Code) Listing {
	clm, _ := claims.Get(ctx)
	return Listing{
		Course:       c,
		Currency:     cur,
		DisplayPrice: currency.Convert(c.Price, cur),
		Purchased:    access.HasAccess(clm.PurchasedCourses, c.ID),
	}
}

func HandleList(cat *Catalog, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := ParseFilter(r.URL.Query())
		cur := pref.Get(ctx)

		courses := cat.List(f)
		out := make([]Listing, 0, len(courses))
		for _, c := range courses {
			out = append(out, listing(ctx, c, cur))
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleCategories(cat *Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, cat.Categories(), http.StatusOK)
	}
}

func HandleShow(store docstore.Store, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		c, err := Fetch(ctx, store, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": id}))
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, listing(ctx, c, pref.Get(ctx)), http.StatusOK)
	}
}

// HandleListOwned lists the courses the remote user record grants access
// to. Ids that no longer name a course are skipped.
func HandleListOwned(store docstore.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := user.Fetch(ctx, store, clm.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"email": clm.Email}))
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.Email, err)
		}

		owned := make([]Course, 0, len(usr.PurchasedCourses))
		for _, id := range usr.PurchasedCourses {
			c, err := Fetch(ctx, store, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("fetching owned course[%s]: %w", id, err)
			}
			owned = append(owned, c)
		}

		return web.Respond(ctx, w, owned, http.StatusOK)
	}
}

func HandleLike(store docstore.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		likes, err := Like(ctx, store, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": id}))
			}
			return fmt.Errorf("liking course[%s]: %w", id, err)
		}

		resp := struct {
			Likes int `json:"likes"`
		}{likes}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
