package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/rate"
)

// RateLimit rejects requests once the remote address has used up its quota
// in lim.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			client := remoteHost(r)
			if !lim.Check(client) {
				err := errors.New("rate limit exceeded")
				return weberr.TooManyRequests(err, weberr.WithFields(map[string]interface{}{
					"client": client,
				}))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
