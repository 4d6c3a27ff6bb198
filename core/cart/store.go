package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Upsert creates the user's cart on first touch and bumps its timestamps
// afterwards.
func Upsert(ctx context.Context, db sqlx.ExtContext, crt Cart) error {
	const q = `
	INSERT INTO carts
		(user_id, created_at, updated_at)
	VALUES
		(:user_id, :created_at, :updated_at)
	ON CONFLICT (user_id) DO UPDATE
	SET updated_at = :updated_at, version = carts.version + 1`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crt); err != nil {
		return fmt.Errorf("upserting cart: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1`

	var crt Cart
	if err := sqlx.GetContext(ctx, db, &crt, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{UserID: userID, Items: []Item{}}, nil
		}
		return Cart{}, fmt.Errorf("selecting cart: %w", err)
	}

	items, err := FetchItems(ctx, db, userID)
	if err != nil {
		return Cart{}, err
	}
	crt.Items = items

	return crt, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart items: %w", err)
	}

	return items, nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, item Item) error {
	const q = `
	INSERT INTO cart_items
		(user_id, program_id, created_at, updated_at)
	VALUES
		(:user_id, :program_id, :created_at, :updated_at)
	ON CONFLICT (user_id, program_id) DO UPDATE
	SET updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, item); err != nil {
		return fmt.Errorf("inserting cart item: %w", err)
	}

	return nil
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, programID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND program_id = $2`

	if _, err := db.ExecContext(ctx, q, userID, programID); err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}

	return nil
}

// Delete flushes the whole cart of a user.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("flushing cart: %w", err)
	}

	return nil
}
