package api

import (
	"context"
	"net/http"

	"github.com/artacademy/storefront/api/background"
	"github.com/artacademy/storefront/api/middleware"
	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/core/access"
	"github.com/artacademy/storefront/core/auth"
	"github.com/artacademy/storefront/core/cart"
	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/core/order"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/core/video"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/rate"
	"github.com/artacademy/storefront/session"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	Store            docstore.Store
	Catalog          *course.Catalog
	Session          *session.Manager
	Background       *background.Background
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	LoginLimiter     *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())
	a.mw = append(a.mw, auth.LoadClaims(cfg.Session, cfg.Log))

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	mirror := func(ctx context.Context, email string, c currency.Code) error {
		return user.SetCurrency(ctx, cfg.Store, email, string(c))
	}
	pref := currency.NewPreference(cfg.Session, mirror, cfg.Background, cfg.Log)
	carts := cart.NewManager(cfg.Session)

	authen := auth.Authenticate()
	gate := access.Require(cfg.Store)

	var limit web.Middleware
	if cfg.LoginLimiter != nil {
		limit = middleware.RateLimit(cfg.LoginLimiter)
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.Store, pref), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.Store, cfg.Session, pref), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.Store, cfg.Session, cfg.Providers, pref, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.Store), authen)

	a.Handle(http.MethodGet, "/courses/categories", course.HandleCategories(cfg.Catalog))
	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.Store), authen)
	a.Handle(http.MethodGet, "/courses/{id}/video", video.HandleShow(cfg.Store), gate)
	a.Handle(http.MethodPost, "/courses/{id}/likes", course.HandleLike(cfg.Store), gate)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.Store, pref))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.Catalog, pref))

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(carts, pref))
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(carts))
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(carts, cfg.Store, pref))
	a.Handle(http.MethodDelete, "/cart/items/{course_id}", cart.HandleDeleteItem(carts, pref))

	a.Handle(http.MethodPost, "/orders/checkout", order.HandleCheckout(cfg.Store, carts, cfg.Session), authen)

	a.Handle(http.MethodGet, "/currency", currency.HandleShow(pref))
	a.Handle(http.MethodPut, "/currency", currency.HandleUpdate(pref))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
