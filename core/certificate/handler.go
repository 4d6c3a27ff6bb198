package certificate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/background"
	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/claims"
	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/RaiseHigh-Tech/topgrade-api/core/progress"
	"github.com/RaiseHigh-Tech/topgrade-api/core/user"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/jmoiron/sqlx"
)

// HandleIssue mints a certificate for a student who completed a course.
// Issuing twice for the same course returns the existing certificate.
func HandleIssue(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CertificateNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crt, err := FetchByCourse(ctx, db, cn.UserID, cn.ProgramID)
		if err == nil {
			return web.Respond(ctx, w, crt, http.StatusOK)
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("fetching certificate: %w", err)
		}

		cp, err := progress.FetchCourse(ctx, db, cn.UserID, cn.ProgramID)
		if err != nil {
			if errors.Is(err, progress.ErrNotFound) {
				return weberr.Unprocessable(errors.New("course not started"))
			}
			return fmt.Errorf("fetching course progress: %w", err)
		}
		if !cp.Completed {
			return weberr.Unprocessable(errors.New("course not completed"))
		}

		now := time.Now().UTC()
		crt = Certificate{
			ID:        validate.GenerateID(),
			UserID:    cn.UserID,
			ProgramID: cn.ProgramID,
			Serial:    NewSerial(),
			Status:    Pending,
			IssuedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, crt); err != nil {
			return fmt.Errorf("creating certificate: %w", err)
		}

		return web.Respond(ctx, w, crt, http.StatusCreated)
	}
}

// HandleSend emails a certificate to its owner and marks it sent. The
// send itself runs in the background, like the token mails.
func HandleSend(db *sqlx.DB, mailer Mailer, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		crt, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching certificate[%s]: %w", id, err)
		}

		usr, err := user.Fetch(ctx, db, crt.UserID)
		if err != nil {
			return fmt.Errorf("fetching user[%s]: %w", crt.UserID, err)
		}

		prg, err := program.Fetch(ctx, db, crt.ProgramID)
		if err != nil {
			return fmt.Errorf("fetching program[%s]: %w", crt.ProgramID, err)
		}

		now := time.Now().UTC()
		crt.Status = Sent
		crt.SentAt = &now
		crt.UpdatedAt = now

		if err := UpdateSent(ctx, db, crt); err != nil {
			return fmt.Errorf("updating certificate[%s]: %w", id, err)
		}

		bg.Add(func() error {
			return mailer.SendCertificate(usr.Name, prg.Title, crt.Serial, usr.Email)
		})

		return web.Respond(ctx, w, crt, http.StatusOK)
	}
}

// HandleListOwn serves the caller's certificates.
func HandleListOwn(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crts, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching certificates: %w", err)
		}

		return web.Respond(ctx, w, crts, http.StatusOK)
	}
}

// HandleListPending serves certificates awaiting delivery, for admins.
func HandleListPending(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crts, err := FetchPending(ctx, db)
		if err != nil {
			return fmt.Errorf("fetching pending certificates: %w", err)
		}

		return web.Respond(ctx, w, crts, http.StatusOK)
	}
}
