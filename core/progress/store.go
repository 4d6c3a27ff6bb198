package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("progress not found")

func FetchTopic(ctx context.Context, db sqlx.ExtContext, userID string, topicID string) (TopicProgress, error) {
	const q = `SELECT * FROM topic_progress WHERE user_id = $1 AND topic_id = $2`

	var tp TopicProgress
	if err := sqlx.GetContext(ctx, db, &tp, q, userID, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TopicProgress{}, ErrNotFound
		}
		return TopicProgress{}, fmt.Errorf("selecting topic progress: %w", err)
	}

	return tp, nil
}

func FetchTopicsByProgram(ctx context.Context, db sqlx.ExtContext, userID string, programID string) ([]TopicProgress, error) {
	const q = `
	SELECT * FROM topic_progress
	WHERE user_id = $1 AND program_id = $2
	ORDER BY last_watched_at DESC`

	tps := []TopicProgress{}
	if err := sqlx.SelectContext(ctx, db, &tps, q, userID, programID); err != nil {
		return nil, fmt.Errorf("selecting topic progress of program[%s]: %w", programID, err)
	}

	return tps, nil
}

// UpsertTopic writes a topic record, keyed by user and topic.
func UpsertTopic(ctx context.Context, db sqlx.ExtContext, tp TopicProgress) error {
	const q = `
	INSERT INTO topic_progress
		(user_id, topic_id, program_id, watch_seconds, duration_seconds, percentage,
		status, last_watched_at, completed_at, created_at, updated_at)
	VALUES
		(:user_id, :topic_id, :program_id, :watch_seconds, :duration_seconds, :percentage,
		:status, :last_watched_at, :completed_at, :created_at, :updated_at)
	ON CONFLICT (user_id, topic_id) DO UPDATE
	SET
		watch_seconds = :watch_seconds,
		duration_seconds = :duration_seconds,
		percentage = :percentage,
		status = :status,
		last_watched_at = :last_watched_at,
		completed_at = :completed_at,
		updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tp); err != nil {
		return fmt.Errorf("upserting topic progress: %w", err)
	}

	return nil
}

func FetchCourse(ctx context.Context, db sqlx.ExtContext, userID string, programID string) (CourseProgress, error) {
	const q = `SELECT * FROM course_progress WHERE user_id = $1 AND program_id = $2`

	var cp CourseProgress
	if err := sqlx.GetContext(ctx, db, &cp, q, userID, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourseProgress{}, ErrNotFound
		}
		return CourseProgress{}, fmt.Errorf("selecting course progress: %w", err)
	}

	return cp, nil
}

func FetchCourses(ctx context.Context, db sqlx.ExtContext, userID string) ([]CourseProgress, error) {
	const q = `SELECT * FROM course_progress WHERE user_id = $1`

	cps := []CourseProgress{}
	if err := sqlx.SelectContext(ctx, db, &cps, q, userID); err != nil {
		return nil, fmt.Errorf("selecting course progress: %w", err)
	}

	return cps, nil
}

// UpsertCourse writes a course record, keyed by user and program.
func UpsertCourse(ctx context.Context, db sqlx.ExtContext, cp CourseProgress) error {
	const q = `
	INSERT INTO course_progress
		(user_id, program_id, total_topics, completed_topics, in_progress_topics,
		percentage, watch_seconds, completed, completed_at, last_activity_at,
		created_at, updated_at)
	VALUES
		(:user_id, :program_id, :total_topics, :completed_topics, :in_progress_topics,
		:percentage, :watch_seconds, :completed, :completed_at, :last_activity_at,
		:created_at, :updated_at)
	ON CONFLICT (user_id, program_id) DO UPDATE
	SET
		total_topics = :total_topics,
		completed_topics = :completed_topics,
		in_progress_topics = :in_progress_topics,
		percentage = :percentage,
		watch_seconds = :watch_seconds,
		completed = :completed,
		completed_at = :completed_at,
		last_activity_at = :last_activity_at,
		updated_at = :updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, cp); err != nil {
		return fmt.Errorf("upserting course progress: %w", err)
	}

	return nil
}

// Seed creates the course record of a fresh purchase so learnings can list
// the course before the first topic is watched. Existing rows are left
// untouched.
func Seed(ctx context.Context, db sqlx.ExtContext, userID string, programID string, totalTopics int) error {
	const q = `
	INSERT INTO course_progress
		(user_id, program_id, total_topics, last_activity_at, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $4, $4)
	ON CONFLICT (user_id, program_id) DO NOTHING`

	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, q, userID, programID, totalTopics, now); err != nil {
		return fmt.Errorf("seeding course progress: %w", err)
	}

	return nil
}
