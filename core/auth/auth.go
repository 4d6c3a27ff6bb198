package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/claims"
	"github.com/RaiseHigh-Tech/topgrade-api/core/user"
	"github.com/alexedwards/scs/v2"
)

// Session keys holding the authenticated user.
const (
	userKey = "user_id"
	roleKey = "role"
)

// LoadAndSave adapts the scs middleware to the web.Handler chain. It must
// run before any middleware touching the session.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			hf := func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}
			session.LoadAndSave(http.HandlerFunc(hf)).ServeHTTP(w, r.WithContext(ctx))

			return err
		}
		return h
	}
	return m
}

// StartSession renews the session token and binds the user to it. Every
// handler that logs a user in goes through here so the session keys
// cannot drift.
func StartSession(ctx context.Context, session *scs.SessionManager, usr user.User) error {
	if err := session.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	session.Put(ctx, userKey, usr.ID)
	session.Put(ctx, roleKey, usr.Role)
	return nil
}

func sessionClaims(ctx context.Context, session *scs.SessionManager) (claims.Claims, bool) {
	userID := session.GetString(ctx, userKey)
	if userID == "" {
		return claims.Claims{}, false
	}

	clm := claims.Claims{
		UserID: userID,
		Role:   session.GetString(ctx, roleKey),
	}
	return clm, true
}

// Authenticate rejects requests without a logged-in session and stores the
// session user as claims in the context.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, session)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// LoadClaims stores the session user as claims when one is logged in and
// lets anonymous callers through. Public catalog routes chain it so
// logged-in users get ownership-aware responses without requiring auth.
func LoadClaims(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if clm, ok := sessionClaims(ctx, session); ok {
				ctx = claims.Set(ctx, clm)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin allows only authenticated admins through.
func Admin(session *scs.SessionManager) web.Middleware {
	authen := Authenticate(session)

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !claims.IsAdmin(ctx) {
				return weberr.Forbidden(errors.New("admin role required"))
			}
			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}
