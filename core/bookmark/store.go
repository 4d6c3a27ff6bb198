package bookmark

import (
	"context"
	"fmt"

	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, bk Bookmark) error {
	const q = `
	INSERT INTO bookmarks
		(user_id, program_id, created_at)
	VALUES
		(:user_id, :program_id, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, bk); err != nil {
		return fmt.Errorf("inserting bookmark: %w", err)
	}

	return nil
}

// Delete removes a bookmark and reports whether it existed.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string, programID string) (bool, error) {
	const q = `DELETE FROM bookmarks WHERE user_id = $1 AND program_id = $2`

	res, err := db.ExecContext(ctx, q, userID, programID)
	if err != nil {
		return false, fmt.Errorf("deleting bookmark: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted bookmark: %w", err)
	}

	return n > 0, nil
}

func Exists(ctx context.Context, db sqlx.ExtContext, userID string, programID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM bookmarks WHERE user_id = $1 AND program_id = $2`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, userID, programID); err != nil {
		return false, fmt.Errorf("checking bookmark: %w", err)
	}

	return n > 0, nil
}

// FetchAll lists the user's bookmarks with their programs, latest first.
func FetchAll(ctx context.Context, db sqlx.ExtContext, userID string) ([]Entry, error) {
	const q = `
	SELECT b.user_id, b.program_id, b.created_at FROM bookmarks AS b
	WHERE b.user_id = $1
	ORDER BY b.created_at DESC`

	bks := []Bookmark{}
	if err := sqlx.SelectContext(ctx, db, &bks, q, userID); err != nil {
		return nil, fmt.Errorf("selecting bookmarks: %w", err)
	}

	entries := make([]Entry, 0, len(bks))
	for _, bk := range bks {
		prg, err := program.Fetch(ctx, db, bk.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("fetching program[%s]: %w", bk.ProgramID, err)
		}

		entries = append(entries, Entry{Bookmark: bk, Program: prg})
	}

	return entries, nil
}
