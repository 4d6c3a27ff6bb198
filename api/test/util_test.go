package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api"
	"github.com/RaiseHigh-Tech/topgrade-api/api/background"
	"github.com/RaiseHigh-Tech/topgrade-api/config"
	"github.com/RaiseHigh-Tech/topgrade-api/core/auth"
	"github.com/RaiseHigh-Tech/topgrade-api/core/user"
	"github.com/RaiseHigh-Tech/topgrade-api/database"
	"github.com/RaiseHigh-Tech/topgrade-api/rate"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

// TestEnv spins up a throwaway postgres container, migrates it, seeds an
// admin and a student, points the payment clients at local mocks and
// serves the full API mux over httptest.
type TestEnv struct {
	DB     *sqlx.DB
	Server *httptest.Server
	URL    string

	Paypal *mockPaypal
	Stripe *mockStripe
	Mailer *mockMailer

	WebhookSecret string

	AdminEmail string
	AdminPass  string
	UserEmail  string
	UserPass   string
	UserID     string
}

const webhookSecret = "whsec_3ff0c3realfaketestsecret0000"

// A single cookie-aware client shared by Login, Logout and the tests, so
// the session survives across requests.
var (
	clientOnce sync.Once
	testClient *http.Client
)

func client() *http.Client {
	clientOnce.Do(func() {
		jar, err := cookiejar.New(nil)
		if err != nil {
			panic(err)
		}
		testClient = &http.Client{Jar: jar}
	})
	return testClient
}

func (te *TestEnv) Client() *http.Client {
	return client()
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	resource, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { pool.Purge(resource) })

	cfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       resource.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	err = pool.Retry(func() error {
		db, err = database.Open(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return database.StatusCheck(ctx, db)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		WebhookSecret: webhookSecret,
		AdminEmail:    "admin@test.com",
		AdminPass:     "admin-password",
		UserEmail:     "student@test.com",
		UserPass:      "student-password",
	}

	if _, err := seedUser(db, "Admin", env.AdminEmail, env.AdminPass, "ADMIN"); err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	student, err := seedUser(db, "Student", env.UserEmail, env.UserPass, "STUDENT")
	if err != nil {
		return nil, fmt.Errorf("seeding student: %w", err)
	}
	env.UserID = student.ID

	env.Paypal = &mockPaypal{}
	ppSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(ppSrv.Close)

	pp, err := paypal.NewClient("test", "test", ppSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}

	env.Stripe = &mockStripe{}
	strpSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(strpSrv.Close)

	strp := &stripecl.API{}
	strp.Init("sk_test_fake", &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(strpSrv.URL),
		}),
	})

	logger := logrus.New()

	session := scs.New()
	session.Lifetime = 24 * time.Hour

	env.Mailer = &mockMailer{}

	mux := api.APIMux(api.APIConfig{
		Log:          logger,
		DB:           db,
		Session:      session,
		Mailer:       env.Mailer,
		CertMailer:   env.Mailer,
		TokenTimeout: 15 * time.Minute,
		Background:   background.New(logger),
		Limiter:      rate.NewLimiter(1000, 10, 1000),
		Paypal:       pp,
		Stripe:       strp,
		StripeCfg: config.Stripe{
			WebhookSecret: webhookSecret,
			SuccessURL:    "http://localhost/success",
			CancelURL:     "http://localhost/cancel",
		},
		Providers: map[string]auth.Provider{},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env.Server = srv
	env.URL = srv.URL

	return env, nil
}

func seedUser(db *sqlx.DB, name string, email string, password string, role string) (user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		Role:         role,
		Active:       true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), db, usr); err != nil {
		return user.User{}, err
	}

	return usr, nil
}

func Login(srv *httptest.Server, email string, password string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}

	w, err := client().Post(srv.URL+"/auth/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status code %s", w.Status)
	}

	return nil
}

func Logout(srv *httptest.Server) error {
	w, err := client().Post(srv.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed: status code %s", w.Status)
	}

	return nil
}

// mockMailer swallows outgoing mail and records the last token so flows
// depending on it can be driven from tests.
type mockMailer struct {
	mu        sync.Mutex
	LastToken string
}

// Token polls for the token of the last background send.
func (m *mockMailer) Token() string {
	for i := 0; i < 50; i++ {
		m.mu.Lock()
		tok := m.LastToken
		m.mu.Unlock()
		if tok != "" {
			return tok
		}
		time.Sleep(100 * time.Millisecond)
	}
	return ""
}

func (m *mockMailer) SendActivationToken(token string, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastToken = token
	return nil
}

func (m *mockMailer) SendRecoveryToken(token string, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastToken = token
	return nil
}

func (m *mockMailer) SendCertificate(name string, program string, serial string, to string) error {
	return nil
}
