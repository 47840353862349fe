// Package access decides whether the client may see the content of a
// course.
package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
)

type Decision int

const (
	Granted Decision = iota
	LoginRequired
	PurchaseRequired
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case LoginRequired:
		return "login required"
	case PurchaseRequired:
		return "purchase required"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

func HasAccess(purchased []string, courseID string) bool {
	for _, id := range purchased {
		if id == courseID {
			return true
		}
	}
	return false
}

// Check reads the purchases from the remote record, not the session
// snapshot, so a purchase made in another session counts at once.
func Check(ctx context.Context, store docstore.Store, courseID string) (Decision, error) {
	clm, err := claims.Get(ctx)
	if err != nil || clm.Email == "" {
		return LoginRequired, nil
	}

	u, err := user.Fetch(ctx, store, clm.Email)
	if errors.Is(err, user.ErrNotFound) {
		return PurchaseRequired, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checking access of user[%s] to course[%s]: %w", clm.Email, courseID, err)
	}

	if HasAccess(u.PurchasedCourses, courseID) {
		return Granted, nil
	}
	return PurchaseRequired, nil
}

// Require guards routes carrying the course id in the "id" parameter.
func Require(store docstore.Store) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := web.Param(r, "id")

			d, err := Check(ctx, store, id)
			if err != nil {
				return err
			}

			fields := weberr.WithFields(map[string]interface{}{
				"course_id": id,
				"email":     claims.Email(ctx),
			})

			switch d {
			case LoginRequired:
				err := errors.New(d.String())
				return weberr.NewError(err, err.Error(), http.StatusUnauthorized, fields)
			case PurchaseRequired:
				err := errors.New(d.String())
				return weberr.NewError(err, err.Error(), http.StatusForbidden, fields)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
