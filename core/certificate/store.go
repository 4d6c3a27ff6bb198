package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("certificate not found")

func Create(ctx context.Context, db sqlx.ExtContext, crt Certificate) error {
	const q = `
	INSERT INTO certificates
		(certificate_id, user_id, program_id, serial, status, issued_at, sent_at, created_at, updated_at)
	VALUES
		(:certificate_id, :user_id, :program_id, :serial, :status, :issued_at, :sent_at, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crt); err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Certificate, error) {
	const q = `SELECT * FROM certificates WHERE certificate_id = $1`

	var crt Certificate
	if err := sqlx.GetContext(ctx, db, &crt, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, fmt.Errorf("selecting certificate[%s]: %w", id, err)
	}

	return crt, nil
}

// FetchByCourse returns the certificate of a user-program pair if one was
// already issued.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, userID string, programID string) (Certificate, error) {
	const q = `SELECT * FROM certificates WHERE user_id = $1 AND program_id = $2`

	var crt Certificate
	if err := sqlx.GetContext(ctx, db, &crt, q, userID, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, fmt.Errorf("selecting certificate: %w", err)
	}

	return crt, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Certificate, error) {
	const q = `SELECT * FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`

	crts := []Certificate{}
	if err := sqlx.SelectContext(ctx, db, &crts, q, userID); err != nil {
		return nil, fmt.Errorf("selecting certificates: %w", err)
	}

	return crts, nil
}

func FetchPending(ctx context.Context, db sqlx.ExtContext) ([]Certificate, error) {
	const q = `SELECT * FROM certificates WHERE status = $1 ORDER BY issued_at ASC`

	crts := []Certificate{}
	if err := sqlx.SelectContext(ctx, db, &crts, q, Pending); err != nil {
		return nil, fmt.Errorf("selecting pending certificates: %w", err)
	}

	return crts, nil
}

// UpdateSent marks a certificate as delivered.
func UpdateSent(ctx context.Context, db sqlx.ExtContext, crt Certificate) error {
	const q = `
	UPDATE certificates
	SET status = :status, sent_at = :sent_at, updated_at = :updated_at
	WHERE certificate_id = :certificate_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crt); err != nil {
		return fmt.Errorf("updating certificate[%s]: %w", crt.ID, err)
	}

	return nil
}
