package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/claims"
	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crt, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching cart: %w", err)
		}

		return web.Respond(ctx, w, crt, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Delete(ctx, db, clm.UserID); err != nil {
			return fmt.Errorf("flushing cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleCreateItem puts a program in the cart. Programs the user already
// owns are rejected, which keeps purchases unique per user and program.
func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := program.Fetch(ctx, db, in.ProgramID); err != nil {
			if errors.Is(err, program.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching program[%s]: %w", in.ProgramID, err)
		}

		owned, err := program.Owns(ctx, db, clm.UserID, in.ProgramID)
		if err != nil {
			return fmt.Errorf("checking ownership: %w", err)
		}
		if owned {
			return weberr.Conflict(errors.New("program already purchased"))
		}

		now := time.Now().UTC()

		if err := Upsert(ctx, db, Cart{UserID: clm.UserID, CreatedAt: now, UpdatedAt: now}); err != nil {
			return fmt.Errorf("upserting cart: %w", err)
		}

		item := Item{
			UserID:    clm.UserID,
			ProgramID: in.ProgramID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := CreateItem(ctx, db, item); err != nil {
			return fmt.Errorf("creating cart item: %w", err)
		}

		return web.Respond(ctx, w, item, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		programID := web.Param(r, "program_id")
		if err := validate.CheckID(programID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := DeleteItem(ctx, db, clm.UserID, programID); err != nil {
			return fmt.Errorf("deleting cart item: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
