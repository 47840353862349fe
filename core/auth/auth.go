package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/session"
	"github.com/artacademy/storefront/validate"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleSignup(store docstore.Store, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(un); err != nil {
			return weberr.Invalid(err)
		}

		hash, err := user.HashPassword(un.Password)
		if err != nil {
			return err
		}

		u := user.User{
			Email:        un.Email,
			PasswordHash: hash,
			Currency:     string(pref.Get(ctx)),
		}

		fields := weberr.WithFields(map[string]interface{}{"email": un.Email})

		if err := user.Create(ctx, store, u); err != nil {
			switch {
			case errors.Is(err, user.ErrExists):
				return weberr.Conflict(user.ErrExists, fields)
			case errors.Is(err, user.ErrInvalidEmail):
				return weberr.Invalid(user.ErrInvalidEmail, fields)
			}
			return fmt.Errorf("creating user[%s]: %w", un.Email, err)
		}

		out := user.Current{
			Email:            u.Email,
			PurchasedCourses: []string{},
			Currency:         u.Currency,
		}
		return web.Respond(ctx, w, out, http.StatusCreated)
	}
}

func HandleLogin(store docstore.Store, sessions *session.Manager, pref *currency.Preference) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cred); err != nil {
			return weberr.Invalid(err)
		}

		u, err := user.Authenticate(ctx, store, cred.Email, cred.Password)
		if err != nil {
			if errors.Is(err, user.ErrInvalidCredentials) {
				return weberr.NewError(err, "invalid email or password", http.StatusUnauthorized,
					weberr.WithFields(map[string]interface{}{"email": cred.Email}))
			}
			return fmt.Errorf("authenticating user[%s]: %w", cred.Email, err)
		}

		clm, err := login(ctx, sessions, pref, u)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, clm, http.StatusOK)
	}
}

// login starts a fresh session for u. The user's currency replaces the one
// chosen while logged out.
func login(ctx context.Context, sessions *session.Manager, pref *currency.Preference, u user.User) (claims.Claims, error) {
	if err := sessions.RenewToken(ctx); err != nil {
		return claims.Claims{}, fmt.Errorf("renewing session token: %w", err)
	}

	cur := currency.Parse(u.Currency)
	clm := claims.Claims{
		Email:            u.Email,
		PurchasedCourses: u.PurchasedCourses,
		Currency:         string(cur),
	}
	if clm.PurchasedCourses == nil {
		clm.PurchasedCourses = []string{}
	}

	if err := claims.Save(ctx, sessions, clm); err != nil {
		return claims.Claims{}, err
	}
	pref.Apply(ctx, cur)

	return clm, nil
}

// HandleLogout forgets the session user under a fresh token. The cart and
// the currency preference stay with the client.
func HandleLogout(sessions *session.Manager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sessions.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		claims.Clear(ctx, sessions)

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
