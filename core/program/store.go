package program

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("program not found")

// Filter narrows and orders the catalog listing. Nil fields are skipped.
type Filter struct {
	CategoryID *string
	BestSeller *bool
	MinPrice   *int
	MaxPrice   *int
	MinRating  *float64
	Search     string
	SortBy     string
	SortOrder  string
	Limit      int
}

func Create(ctx context.Context, db sqlx.ExtContext, prg Program) error {
	const q = `
	INSERT INTO programs
		(program_id, category_id, title, subtitle, description, image_url, icon,
		duration, price, discount_percentage, rating, best_seller, created_at, updated_at)
	VALUES
		(:program_id, :category_id, :title, :subtitle, :description, :image_url, :icon,
		:duration, :price, :discount_percentage, :rating, :best_seller, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prg); err != nil {
		return fmt.Errorf("inserting program: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, prg Program) error {
	const q = `
	UPDATE programs
	SET
		category_id = :category_id,
		title = :title,
		subtitle = :subtitle,
		description = :description,
		image_url = :image_url,
		icon = :icon,
		duration = :duration,
		price = :price,
		discount_percentage = :discount_percentage,
		rating = :rating,
		best_seller = :best_seller,
		updated_at = :updated_at,
		version = version + 1
	WHERE program_id = :program_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prg); err != nil {
		return fmt.Errorf("updating program[%s]: %w", prg.ID, err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Program, error) {
	const q = `SELECT * FROM programs WHERE program_id = $1`

	var prg Program
	if err := sqlx.GetContext(ctx, db, &prg, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, fmt.Errorf("selecting program[%s]: %w", id, err)
	}

	return prg, nil
}

// FetchAll lists the catalog according to the filter.
func FetchAll(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Program, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT * FROM programs`)

	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != nil {
		add(`category_id = $%d`, *f.CategoryID)
	}
	if f.BestSeller != nil {
		add(`best_seller = $%d`, *f.BestSeller)
	}
	if f.MinPrice != nil {
		add(`price >= $%d`, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(`price <= $%d`, *f.MaxPrice)
	}
	if f.MinRating != nil {
		add(`rating >= $%d`, *f.MinRating)
	}
	if f.Search != "" {
		add(`(title ILIKE '%%' || $%[1]d || '%%' OR subtitle ILIKE '%%' || $%[1]d || '%%' OR description ILIKE '%%' || $%[1]d || '%%')`, f.Search)
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	dir := "ASC"
	if f.SortOrder == "desc" {
		dir = "DESC"
	}

	switch f.SortBy {
	case "recent":
		sb.WriteString(` ORDER BY created_at DESC, program_id DESC`)
	case "rating":
		sb.WriteString(` ORDER BY rating DESC, program_id DESC`)
	case "title":
		sb.WriteString(` ORDER BY title ` + dir)
	case "price":
		sb.WriteString(` ORDER BY price ` + dir)
	default:
		sb.WriteString(` ORDER BY best_seller DESC, rating DESC, program_id DESC`)
	}

	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(fmt.Sprintf(` LIMIT $%d`, len(args)))
	}

	prgs := []Program{}
	if err := sqlx.SelectContext(ctx, db, &prgs, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("selecting programs: %w", err)
	}

	return prgs, nil
}

// FetchOwned lists the programs the user purchased, latest purchase first.
func FetchOwned(ctx context.Context, db sqlx.ExtContext, userID string) ([]Program, error) {
	const q = `
	SELECT p.* FROM programs AS p
	JOIN order_items AS i ON i.program_id = p.program_id
	JOIN orders AS o ON o.order_id = i.order_id
	WHERE o.user_id = $1 AND o.status = 'success'
	ORDER BY o.created_at DESC`

	prgs := []Program{}
	if err := sqlx.SelectContext(ctx, db, &prgs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting owned programs: %w", err)
	}

	return prgs, nil
}

// Owns reports whether the user purchased the program.
func Owns(ctx context.Context, db sqlx.ExtContext, userID string, programID string) (bool, error) {
	const q = `
	SELECT COUNT(*) FROM order_items AS i
	JOIN orders AS o ON o.order_id = i.order_id
	WHERE o.user_id = $1 AND i.program_id = $2 AND o.status = 'success'`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, userID, programID); err != nil {
		return false, fmt.Errorf("checking ownership: %w", err)
	}

	return n > 0, nil
}

// CountEnrolled counts distinct purchasers of a program.
func CountEnrolled(ctx context.Context, db sqlx.ExtContext, programID string) (int, error) {
	const q = `
	SELECT COUNT(DISTINCT o.user_id) FROM order_items AS i
	JOIN orders AS o ON o.order_id = i.order_id
	WHERE i.program_id = $1 AND o.status = 'success'`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, programID); err != nil {
		return 0, fmt.Errorf("counting enrolled students: %w", err)
	}

	return n, nil
}

// Watching is a program the user recently made progress on.
type Watching struct {
	Program
	Percentage    float64   `json:"percentage" db:"percentage"`
	Completed     bool      `json:"completed" db:"completed"`
	LastWatchedAt time.Time `json:"lastWatchedAt" db:"last_activity_at"`
}

// FetchContinueWatching lists programs with recent activity, most recent
// first.
func FetchContinueWatching(ctx context.Context, db sqlx.ExtContext, userID string, limit int) ([]Watching, error) {
	const q = `
	SELECT p.*, cp.percentage, cp.completed, cp.last_activity_at FROM programs AS p
	JOIN course_progress AS cp ON cp.program_id = p.program_id
	WHERE cp.user_id = $1 AND cp.percentage > 0
	ORDER BY cp.last_activity_at DESC
	LIMIT $2`

	ws := []Watching{}
	if err := sqlx.SelectContext(ctx, db, &ws, q, userID, limit); err != nil {
		return nil, fmt.Errorf("selecting continue watching: %w", err)
	}

	return ws, nil
}

// FetchBookmarkedIDs returns the set of program ids the user bookmarked.
// Catalog responses use it to flag cards; mutations live in core/bookmark.
func FetchBookmarkedIDs(ctx context.Context, db sqlx.ExtContext, userID string) (map[string]bool, error) {
	const q = `SELECT program_id FROM bookmarks WHERE user_id = $1`

	ids := []string{}
	if err := sqlx.SelectContext(ctx, db, &ids, q, userID); err != nil {
		return nil, fmt.Errorf("selecting bookmarked programs: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	return set, nil
}
