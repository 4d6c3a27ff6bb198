package progress

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name  string
		tp    TopicProgress
		watch int
		want  TopicProgress
	}{
		{
			name:  "first report starts the topic",
			tp:    TopicProgress{DurationSeconds: 100, Status: NotStarted},
			watch: 40,
			want: TopicProgress{
				DurationSeconds: 100,
				WatchSeconds:    40,
				Percentage:      40,
				Status:          InProgress,
				LastWatchedAt:   now,
				UpdatedAt:       now,
			},
		},
		{
			name:  "lower report cannot rewind",
			tp:    TopicProgress{DurationSeconds: 100, WatchSeconds: 60, Percentage: 60, Status: InProgress},
			watch: 30,
			want: TopicProgress{
				DurationSeconds: 100,
				WatchSeconds:    60,
				Percentage:      60,
				Status:          InProgress,
				LastWatchedAt:   now,
				UpdatedAt:       now,
			},
		},
		{
			name:  "crossing the threshold completes",
			tp:    TopicProgress{DurationSeconds: 100, WatchSeconds: 60, Status: InProgress},
			watch: 90,
			want: TopicProgress{
				DurationSeconds: 100,
				WatchSeconds:    90,
				Percentage:      90,
				Status:          Completed,
				CompletedAt:     &now,
				LastWatchedAt:   now,
				UpdatedAt:       now,
			},
		},
		{
			name:  "watch time capped at the duration",
			tp:    TopicProgress{DurationSeconds: 100, Status: NotStarted},
			watch: 500,
			want: TopicProgress{
				DurationSeconds: 100,
				WatchSeconds:    100,
				Percentage:      100,
				Status:          Completed,
				CompletedAt:     &now,
				LastWatchedAt:   now,
				UpdatedAt:       now,
			},
		},
		{
			name:  "missing duration falls back to the default",
			tp:    TopicProgress{Status: NotStarted},
			watch: 900,
			want: TopicProgress{
				DurationSeconds: DefaultDuration,
				WatchSeconds:    900,
				Percentage:      50,
				Status:          InProgress,
				LastWatchedAt:   now,
				UpdatedAt:       now,
			},
		},
		{
			name: "completed topic stays completed",
			tp: func() TopicProgress {
				done := now.Add(-time.Hour)
				return TopicProgress{
					DurationSeconds: 100,
					WatchSeconds:    95,
					Percentage:      95,
					Status:          Completed,
					CompletedAt:     &done,
				}
			}(),
			watch: 100,
			want: func() TopicProgress {
				done := now.Add(-time.Hour)
				return TopicProgress{
					DurationSeconds: 100,
					WatchSeconds:    100,
					Percentage:      100,
					Status:          Completed,
					CompletedAt:     &done,
					LastWatchedAt:   now,
					UpdatedAt:       now,
				}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.tp, tt.watch, now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRollup(t *testing.T) {
	tests := []struct {
		name  string
		cp    CourseProgress
		tps   []TopicProgress
		total int
		want  CourseProgress
	}{
		{
			name:  "no progress yet",
			cp:    CourseProgress{},
			tps:   nil,
			total: 4,
			want: CourseProgress{
				TotalTopics:    4,
				LastActivityAt: now,
				UpdatedAt:      now,
			},
		},
		{
			name: "partial progress",
			cp:   CourseProgress{},
			tps: []TopicProgress{
				{Status: Completed, WatchSeconds: 100},
				{Status: InProgress, WatchSeconds: 40},
			},
			total: 4,
			want: CourseProgress{
				TotalTopics:      4,
				CompletedTopics:  1,
				InProgressTopics: 1,
				Percentage:       25,
				WatchSeconds:     140,
				LastActivityAt:   now,
				UpdatedAt:        now,
			},
		},
		{
			name: "all topics done completes the course",
			cp:   CourseProgress{},
			tps: []TopicProgress{
				{Status: Completed, WatchSeconds: 100},
				{Status: Completed, WatchSeconds: 200},
			},
			total: 2,
			want: CourseProgress{
				TotalTopics:     2,
				CompletedTopics: 2,
				Percentage:      100,
				WatchSeconds:    300,
				Completed:       true,
				CompletedAt:     &now,
				LastActivityAt:  now,
				UpdatedAt:       now,
			},
		},
		{
			name: "completion time survives later rollups",
			cp: func() CourseProgress {
				done := now.Add(-time.Hour)
				return CourseProgress{Completed: true, CompletedAt: &done}
			}(),
			tps: []TopicProgress{
				{Status: Completed, WatchSeconds: 100},
			},
			total: 1,
			want: func() CourseProgress {
				done := now.Add(-time.Hour)
				return CourseProgress{
					TotalTopics:     1,
					CompletedTopics: 1,
					Percentage:      100,
					WatchSeconds:    100,
					Completed:       true,
					CompletedAt:     &done,
					LastActivityAt:  now,
					UpdatedAt:       now,
				}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rollup(tt.cp, tt.tps, tt.total, now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
