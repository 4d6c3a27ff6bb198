// Package progress tracks how far a student is through purchased courses.
// Watch time is reported per topic; every report advances the topic record
// and recomputes the course-level rollup.
package progress

import "time"

// Topic progress states. Transitions only move forward:
// not_started -> in_progress -> completed.
const (
	NotStarted = "not_started"
	InProgress = "in_progress"
	Completed  = "completed"
)

// A topic counts as completed once 90% of its video was watched.
const CompletionThreshold = 90.0

// DefaultDuration stands in for topics with no recorded video duration.
const DefaultDuration = 1800

type TopicProgress struct {
	UserID          string     `json:"userId" db:"user_id"`
	TopicID         string     `json:"topicId" db:"topic_id"`
	ProgramID       string     `json:"programId" db:"program_id"`
	WatchSeconds    int        `json:"watchSeconds" db:"watch_seconds"`
	DurationSeconds int        `json:"durationSeconds" db:"duration_seconds"`
	Percentage      float64    `json:"percentage" db:"percentage"`
	Status          string     `json:"status" db:"status"`
	LastWatchedAt   time.Time  `json:"lastWatchedAt" db:"last_watched_at"`
	CompletedAt     *time.Time `json:"completedAt" db:"completed_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

type CourseProgress struct {
	UserID           string     `json:"userId" db:"user_id"`
	ProgramID        string     `json:"programId" db:"program_id"`
	TotalTopics      int        `json:"totalTopics" db:"total_topics"`
	CompletedTopics  int        `json:"completedTopics" db:"completed_topics"`
	InProgressTopics int        `json:"inProgressTopics" db:"in_progress_topics"`
	Percentage       float64    `json:"percentage" db:"percentage"`
	WatchSeconds     int        `json:"watchSeconds" db:"watch_seconds"`
	Completed        bool       `json:"completed" db:"completed"`
	CompletedAt      *time.Time `json:"completedAt" db:"completed_at"`
	LastActivityAt   time.Time  `json:"lastActivityAt" db:"last_activity_at"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

type ProgressUp struct {
	WatchSeconds int `json:"watchSeconds" validate:"gte=0"`
}

// Advance folds a watch-time report into a topic record. Watch seconds are
// monotonic: a report lower than what is stored cannot rewind the record,
// and the count never exceeds the video duration. The status only ever
// moves forward and completed_at is set on the first completion.
func Advance(tp TopicProgress, watchSeconds int, now time.Time) TopicProgress {
	duration := tp.DurationSeconds
	if duration <= 0 {
		duration = DefaultDuration
		tp.DurationSeconds = duration
	}

	if watchSeconds > tp.WatchSeconds {
		tp.WatchSeconds = watchSeconds
	}
	if tp.WatchSeconds > duration {
		tp.WatchSeconds = duration
	}

	tp.Percentage = float64(tp.WatchSeconds) / float64(duration) * 100

	switch {
	case tp.Percentage >= CompletionThreshold:
		if tp.Status != Completed {
			tp.Status = Completed
			tp.CompletedAt = &now
		}
	case tp.Percentage > 0 && tp.Status == NotStarted:
		tp.Status = InProgress
	}

	tp.LastWatchedAt = now
	tp.UpdatedAt = now

	return tp
}

// Rollup recomputes a course record from the topic rows of the course.
// totalTopics is the full lesson count of the program, not just the topics
// with progress. A course completes at 100% and stays completed.
func Rollup(cp CourseProgress, tps []TopicProgress, totalTopics int, now time.Time) CourseProgress {
	cp.TotalTopics = totalTopics
	cp.CompletedTopics = 0
	cp.InProgressTopics = 0
	cp.WatchSeconds = 0

	for _, tp := range tps {
		switch tp.Status {
		case Completed:
			cp.CompletedTopics++
		case InProgress:
			cp.InProgressTopics++
		}
		cp.WatchSeconds += tp.WatchSeconds
	}

	cp.Percentage = 0
	if totalTopics > 0 {
		cp.Percentage = float64(cp.CompletedTopics) / float64(totalTopics) * 100
	}

	if cp.Percentage >= 100 && !cp.Completed {
		cp.Completed = true
		cp.CompletedAt = &now
	}

	cp.LastActivityAt = now
	cp.UpdatedAt = now

	return cp
}
