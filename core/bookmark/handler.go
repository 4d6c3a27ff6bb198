package bookmark

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

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		entries, err := FetchAll(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching bookmarks: %w", err)
		}

		return web.Respond(ctx, w, entries, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var bn BookmarkNew
		if err := web.Decode(w, r, &bn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(bn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := program.Fetch(ctx, db, bn.ProgramID); err != nil {
			if errors.Is(err, program.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching program[%s]: %w", bn.ProgramID, err)
		}

		exists, err := Exists(ctx, db, clm.UserID, bn.ProgramID)
		if err != nil {
			return fmt.Errorf("checking bookmark: %w", err)
		}
		if exists {
			return weberr.Conflict(errors.New("program already bookmarked"))
		}

		bk := Bookmark{
			UserID:    clm.UserID,
			ProgramID: bn.ProgramID,
			CreatedAt: time.Now().UTC(),
		}

		if err := Create(ctx, db, bk); err != nil {
			return fmt.Errorf("creating bookmark: %w", err)
		}

		return web.Respond(ctx, w, bk, http.StatusCreated)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		programID := web.Param(r, "program_id")
		if err := validate.CheckID(programID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		deleted, err := Delete(ctx, db, clm.UserID, programID)
		if err != nil {
			return fmt.Errorf("deleting bookmark: %w", err)
		}
		if !deleted {
			return weberr.NotFound(errors.New("program is not bookmarked"))
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
