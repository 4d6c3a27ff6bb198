package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("token not found")

func Create(ctx context.Context, db sqlx.ExtContext, tok Token) error {
	const q = `
	INSERT INTO tokens
		(token_hash, user_id, scope, expiry)
	VALUES
		(:token_hash, :user_id, :scope, :expiry)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tok); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	return nil
}

// FetchValid returns the token matching the plaintext and scope if it has
// not expired yet.
func FetchValid(ctx context.Context, db sqlx.ExtContext, plain string, scope string) (Token, error) {
	const q = `SELECT * FROM tokens WHERE token_hash = $1 AND scope = $2 AND expiry > $3`

	var tok Token
	if err := sqlx.GetContext(ctx, db, &tok, q, hash(plain), scope, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, ErrNotFound
		}
		return Token{}, fmt.Errorf("selecting token: %w", err)
	}

	return tok, nil
}

// DeleteByUser drops every token of a scope still held by a user. Used
// after a token is consumed so it cannot be replayed.
func DeleteByUser(ctx context.Context, db sqlx.ExtContext, userID string, scope string) error {
	const q = `DELETE FROM tokens WHERE user_id = $1 AND scope = $2`

	if _, err := db.ExecContext(ctx, q, userID, scope); err != nil {
		return fmt.Errorf("deleting tokens of user[%s]: %w", userID, err)
	}

	return nil
}
