package category

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := FetchAll(ctx, db)
		if err != nil {
			return fmt.Errorf("fetching categories: %w", err)
		}

		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CategoryNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		cat := Category{
			ID:        validate.GenerateID(),
			Name:      cn.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, cat); err != nil {
			return fmt.Errorf("creating category: %w", err)
		}

		return web.Respond(ctx, w, cat, http.StatusCreated)
	}
}
