package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("category not found")

func Create(ctx context.Context, db sqlx.ExtContext, cat Category) error {
	const q = `
	INSERT INTO categories
		(category_id, name, created_at, updated_at)
	VALUES
		(:category_id, :name, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, cat); err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Category, error) {
	const q = `SELECT * FROM categories WHERE category_id = $1`

	var cat Category
	if err := sqlx.GetContext(ctx, db, &cat, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("selecting category[%s]: %w", id, err)
	}

	return cat, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Category, error) {
	const q = `SELECT * FROM categories ORDER BY name`

	cats := []Category{}
	if err := sqlx.SelectContext(ctx, db, &cats, q); err != nil {
		return nil, fmt.Errorf("selecting categories: %w", err)
	}

	return cats, nil
}
