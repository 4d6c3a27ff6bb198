package program

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrTopicNotFound = errors.New("topic not found")

func CreateSyllabus(ctx context.Context, db sqlx.ExtContext, syl Syllabus) error {
	const q = `
	INSERT INTO syllabuses
		(syllabus_id, program_id, title, position, created_at, updated_at)
	VALUES
		(:syllabus_id, :program_id, :title, :position, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, syl); err != nil {
		return fmt.Errorf("inserting syllabus: %w", err)
	}

	return nil
}

func FetchSyllabus(ctx context.Context, db sqlx.ExtContext, id string) (Syllabus, error) {
	const q = `SELECT * FROM syllabuses WHERE syllabus_id = $1`

	var syl Syllabus
	if err := sqlx.GetContext(ctx, db, &syl, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Syllabus{}, ErrNotFound
		}
		return Syllabus{}, fmt.Errorf("selecting syllabus[%s]: %w", id, err)
	}

	return syl, nil
}

func FetchSyllabuses(ctx context.Context, db sqlx.ExtContext, programID string) ([]Syllabus, error) {
	const q = `SELECT * FROM syllabuses WHERE program_id = $1 ORDER BY position, syllabus_id`

	syls := []Syllabus{}
	if err := sqlx.SelectContext(ctx, db, &syls, q, programID); err != nil {
		return nil, fmt.Errorf("selecting syllabuses of program[%s]: %w", programID, err)
	}

	return syls, nil
}

func UpdateSyllabus(ctx context.Context, db sqlx.ExtContext, syl Syllabus) error {
	const q = `
	UPDATE syllabuses
	SET
		title = :title,
		position = :position,
		updated_at = :updated_at
	WHERE syllabus_id = :syllabus_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, syl); err != nil {
		return fmt.Errorf("updating syllabus[%s]: %w", syl.ID, err)
	}

	return nil
}

func CreateTopic(ctx context.Context, db sqlx.ExtContext, top Topic) error {
	const q = `
	INSERT INTO topics
		(topic_id, syllabus_id, program_id, title, description, video_url,
		duration_seconds, intro, free_trial, position, created_at, updated_at)
	VALUES
		(:topic_id, :syllabus_id, :program_id, :title, :description, :video_url,
		:duration_seconds, :intro, :free_trial, :position, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, top); err != nil {
		return fmt.Errorf("inserting topic: %w", err)
	}

	return nil
}

func UpdateTopic(ctx context.Context, db sqlx.ExtContext, top Topic) error {
	const q = `
	UPDATE topics
	SET
		title = :title,
		description = :description,
		video_url = :video_url,
		duration_seconds = :duration_seconds,
		intro = :intro,
		free_trial = :free_trial,
		position = :position,
		updated_at = :updated_at,
		version = version + 1
	WHERE topic_id = :topic_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, top); err != nil {
		return fmt.Errorf("updating topic[%s]: %w", top.ID, err)
	}

	return nil
}

func FetchTopic(ctx context.Context, db sqlx.ExtContext, id string) (Topic, error) {
	const q = `SELECT * FROM topics WHERE topic_id = $1`

	var top Topic
	if err := sqlx.GetContext(ctx, db, &top, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Topic{}, ErrTopicNotFound
		}
		return Topic{}, fmt.Errorf("selecting topic[%s]: %w", id, err)
	}

	return top, nil
}

func FetchTopics(ctx context.Context, db sqlx.ExtContext, programID string) ([]Topic, error) {
	const q = `SELECT * FROM topics WHERE program_id = $1 ORDER BY position, topic_id`

	tops := []Topic{}
	if err := sqlx.SelectContext(ctx, db, &tops, q, programID); err != nil {
		return nil, fmt.Errorf("selecting topics of program[%s]: %w", programID, err)
	}

	return tops, nil
}

// CountTopics counts the lessons of a program, the denominator of the
// course completion percentage.
func CountTopics(ctx context.Context, db sqlx.ExtContext, programID string) (int, error) {
	const q = `SELECT COUNT(*) FROM topics WHERE program_id = $1`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, programID); err != nil {
		return 0, fmt.Errorf("counting topics of program[%s]: %w", programID, err)
	}

	return n, nil
}
