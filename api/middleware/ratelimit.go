package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/rate"
)

// RateLimit rejects requests exceeding the per-client budget of the passed
// limiter. Clients are told apart by remote IP.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
