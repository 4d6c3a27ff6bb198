package api

import (
	"context"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/background"
	"github.com/RaiseHigh-Tech/topgrade-api/api/middleware"
	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/config"
	"github.com/RaiseHigh-Tech/topgrade-api/core/auth"
	"github.com/RaiseHigh-Tech/topgrade-api/core/bookmark"
	"github.com/RaiseHigh-Tech/topgrade-api/core/cart"
	"github.com/RaiseHigh-Tech/topgrade-api/core/category"
	"github.com/RaiseHigh-Tech/topgrade-api/core/certificate"
	"github.com/RaiseHigh-Tech/topgrade-api/core/order"
	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/RaiseHigh-Tech/topgrade-api/core/progress"
	"github.com/RaiseHigh-Tech/topgrade-api/core/token"
	"github.com/RaiseHigh-Tech/topgrade-api/core/user"
	"github.com/RaiseHigh-Tech/topgrade-api/rate"
	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin         string
	Log                logrus.FieldLogger
	DB                 *sqlx.DB
	Session            *scs.SessionManager
	Mailer             token.Mailer
	CertMailer         certificate.Mailer
	TokenTimeout       time.Duration
	Background         *background.Background
	Limiter            *rate.Limiter
	Paypal             *paypal.Client
	Stripe             *stripecl.API
	StripeCfg          config.Stripe
	Providers          map[string]auth.Provider
	LoginRedirectURL   string
	ActivationRequired bool
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

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	limit := middleware.RateLimit(cfg.Limiter)
	optional := auth.LoadClaims(cfg.Session)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, cfg.ActivationRequired), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodPost, "/tokens", token.HandleToken(cfg.DB, cfg.Mailer, cfg.TokenTimeout, cfg.Background), limit)
	a.Handle(http.MethodPost, "/tokens/activate", token.HandleActivation(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/tokens/recover", token.HandleRecovery(cfg.DB))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/categories", category.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/programs/landing", program.HandleLanding(cfg.DB), optional)
	a.Handle(http.MethodGet, "/programs/owned", program.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/programs/{id}/progress", progress.HandleListByProgram(cfg.DB), authen)
	a.Handle(http.MethodGet, "/programs/{id}", program.HandleShow(cfg.DB), optional)
	a.Handle(http.MethodGet, "/programs", program.HandleList(cfg.DB), optional)
	a.Handle(http.MethodPost, "/programs", program.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/programs/{id}", program.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodPost, "/syllabuses", program.HandleCreateSyllabus(cfg.DB), admin)
	a.Handle(http.MethodPut, "/syllabuses/{id}", program.HandleUpdateSyllabus(cfg.DB), admin)
	a.Handle(http.MethodPost, "/topics", program.HandleCreateTopic(cfg.DB), admin)
	a.Handle(http.MethodPut, "/topics/{id}/progress", progress.HandleUpdateTopic(cfg.DB), authen)
	a.Handle(http.MethodPut, "/topics/{id}", program.HandleUpdateTopic(cfg.DB), admin)

	a.Handle(http.MethodGet, "/learnings", progress.HandleLearnings(cfg.DB), authen)

	a.Handle(http.MethodGet, "/bookmarks", bookmark.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPut, "/bookmarks", bookmark.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/bookmarks/{program_id}", bookmark.HandleDelete(cfg.DB), authen)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart/items/{program_id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodPost, "/orders/paypal", order.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/orders/paypal/{id}/capture", order.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/orders/stripe", order.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/orders/stripe/capture", order.HandleStripeCapture(cfg.DB, cfg.StripeCfg))

	a.Handle(http.MethodGet, "/certificates/pending", certificate.HandleListPending(cfg.DB), admin)
	a.Handle(http.MethodGet, "/certificates", certificate.HandleListOwn(cfg.DB), authen)
	a.Handle(http.MethodPost, "/certificates", certificate.HandleIssue(cfg.DB), admin)
	a.Handle(http.MethodPost, "/certificates/{id}/send", certificate.HandleSend(cfg.DB, cfg.CertMailer, cfg.Background), admin)

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
