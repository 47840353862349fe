package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/session"
	"github.com/sirupsen/logrus"
)

// LoadAndSave runs the rest of the chain inside the scs session handler, so
// the session is loaded from the cookie before and committed after it.
func LoadAndSave(sessions *session.Manager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})

			sessions.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// LoadClaims puts the session snapshot in the context when someone is
// logged in. A snapshot that cannot be read is dropped.
func LoadClaims(storage session.Storage, log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok, err := claims.Load(ctx, storage)
			if err != nil {
				log.WithError(err).Warn("dropping unreadable session user")
				claims.Clear(ctx, storage)
			}
			if ok {
				ctx = claims.Set(ctx, clm)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
