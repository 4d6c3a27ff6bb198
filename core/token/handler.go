package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/background"
	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/auth"
	"github.com/RaiseHigh-Tech/topgrade-api/core/user"
	"github.com/RaiseHigh-Tech/topgrade-api/database"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// HandleToken mints a token of the requested scope and emails it. The
// response does not reveal whether the email is registered.
func HandleToken(db *sqlx.DB, mailer Mailer, timeout time.Duration, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tn TokenNew
		if err := web.Decode(w, r, &tn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, tn.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return web.Respond(ctx, w, nil, http.StatusAccepted)
			}
			return fmt.Errorf("fetching user by email: %w", err)
		}

		if tn.Scope == ScopeActivation && usr.Active {
			err := errors.New("account is already activated")
			return weberr.NewError(err, err.Error(), http.StatusConflict)
		}

		plain, tok, err := generate(usr.ID, tn.Scope, timeout)
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}

		if err := Create(ctx, db, tok); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}

		bg.Add(func() error {
			switch tn.Scope {
			case ScopeActivation:
				return mailer.SendActivationToken(plain, usr.Email)
			case ScopeRecovery:
				return mailer.SendRecoveryToken(plain, usr.Email)
			}
			return nil
		})

		return web.Respond(ctx, w, nil, http.StatusAccepted)
	}
}

// HandleActivation consumes an activation token, marks the user active and
// opens a session.
func HandleActivation(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ta TokenActivate
		if err := web.Decode(w, r, &ta); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ta); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := consume(ctx, db, ta.Email, ta.Token, ScopeActivation)
		if err != nil {
			return err
		}

		usr.Active = true
		usr.UpdatedAt = time.Now().UTC()

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.Update(ctx, tx, usr); err != nil {
				return fmt.Errorf("activating user: %w", err)
			}
			if err := DeleteByUser(ctx, tx, usr.ID, ScopeActivation); err != nil {
				return fmt.Errorf("consuming tokens: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("activating user[%s]: %w", usr.ID, err)
		}

		if err := auth.StartSession(ctx, session, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

// HandleRecovery consumes a recovery token and replaces the password.
func HandleRecovery(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tr TokenRecover
		if err := web.Decode(w, r, &tr); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tr); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := consume(ctx, db, tr.Email, tr.Token, ScopeRecovery)
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(tr.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		usr.PasswordHash = string(hash)
		usr.UpdatedAt = time.Now().UTC()

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.Update(ctx, tx, usr); err != nil {
				return fmt.Errorf("updating password: %w", err)
			}
			if err := DeleteByUser(ctx, tx, usr.ID, ScopeRecovery); err != nil {
				return fmt.Errorf("consuming tokens: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("recovering user[%s]: %w", usr.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// consume validates the token against the user it was issued for.
func consume(ctx context.Context, db *sqlx.DB, email string, plain string, scope string) (user.User, error) {
	tok, err := FetchValid(ctx, db, plain, scope)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return user.User{}, weberr.NewError(err, "invalid or expired token", http.StatusUnprocessableEntity)
		}
		return user.User{}, fmt.Errorf("fetching token: %w", err)
	}

	usr, err := user.Fetch(ctx, db, tok.UserID)
	if err != nil {
		return user.User{}, fmt.Errorf("fetching token user: %w", err)
	}

	if usr.Email != email {
		err := errors.New("token does not belong to this user")
		return user.User{}, weberr.NewError(err, "invalid or expired token", http.StatusUnprocessableEntity)
	}

	return usr, nil
}
