package config

import "time"

// Config collects every knob of the service. Values are parsed from the
// environment with the TOPGRADE prefix; defaults suit local development.
type Config struct {
	Web    Web
	DB     DB
	Cors   Cors
	Auth   Auth
	Oauth  Oauth
	Email  Email
	Limit  Limit
	Stripe Stripe
	Paypal Paypal
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:topgrade"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Auth struct {
	ActivationRequired bool `conf:"default:false"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000/dashboard"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string `conf:"default:disabled"`
	Secret      string `conf:"default:disabled,mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Email struct {
	Host           string        `conf:"default:localhost"`
	Port           string        `conf:"default:25"`
	Address        string        `conf:"default:no-reply@topgrade.app"`
	Password       string        `conf:"default:,mask"`
	TokenTimeout   time.Duration `conf:"default:15m"`
	ActivationURL  string        `conf:"default:http://localhost:3000/activate"`
	RecoveryURL    string        `conf:"default:http://localhost:3000/recover"`
	CertificateURL string        `conf:"default:http://localhost:3000/certificates"`
}

// Limit shapes the rate limiter guarding the auth and token routes.
type Limit struct {
	Burst       int           `conf:"default:5"`
	Interval    time.Duration `conf:"default:1s"`
	ExpiryInMin int           `conf:"default:10"`
}

type Stripe struct {
	APISecret     string `conf:"default:,mask"`
	WebhookSecret string `conf:"default:,mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/payment/success"`
	CancelURL     string `conf:"default:http://localhost:3000/payment/canceled"`
}

type Paypal struct {
	ClientID string `conf:"default:disabled"`
	Secret   string `conf:"default:disabled,mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}
