package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/claims"
	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/RaiseHigh-Tech/topgrade-api/database"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/jmoiron/sqlx"
)

type updated struct {
	Topic  TopicProgress  `json:"topicProgress"`
	Course CourseProgress `json:"courseProgress"`
}

// HandleUpdateTopic folds a watch-time report into the caller's topic
// record and recomputes the course rollup, both in one transaction.
func HandleUpdateTopic(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		topicID := web.Param(r, "id")
		if err := validate.CheckID(topicID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		top, err := program.FetchTopic(ctx, db, topicID)
		if err != nil {
			if errors.Is(err, program.ErrTopicNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching topic[%s]: %w", topicID, err)
		}

		owned, err := program.Owns(ctx, db, clm.UserID, top.ProgramID)
		if err != nil {
			return fmt.Errorf("checking ownership: %w", err)
		}
		if !owned {
			return weberr.Forbidden(errors.New("program not purchased"))
		}

		now := time.Now().UTC()

		tp, err := FetchTopic(ctx, db, clm.UserID, topicID)
		if errors.Is(err, ErrNotFound) {
			tp = TopicProgress{
				UserID:          clm.UserID,
				TopicID:         topicID,
				ProgramID:       top.ProgramID,
				DurationSeconds: top.DurationSeconds,
				Status:          NotStarted,
				CreatedAt:       now,
			}
			err = nil
		}
		if err != nil {
			return fmt.Errorf("fetching topic progress: %w", err)
		}

		tp = Advance(tp, up.WatchSeconds, now)

		totalTopics, err := program.CountTopics(ctx, db, top.ProgramID)
		if err != nil {
			return fmt.Errorf("counting topics: %w", err)
		}

		cp, err := FetchCourse(ctx, db, clm.UserID, top.ProgramID)
		if errors.Is(err, ErrNotFound) {
			cp = CourseProgress{
				UserID:    clm.UserID,
				ProgramID: top.ProgramID,
				CreatedAt: now,
			}
			err = nil
		}
		if err != nil {
			return fmt.Errorf("fetching course progress: %w", err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := UpsertTopic(ctx, tx, tp); err != nil {
				return fmt.Errorf("storing topic progress: %w", err)
			}

			tps, err := FetchTopicsByProgram(ctx, tx, clm.UserID, top.ProgramID)
			if err != nil {
				return fmt.Errorf("fetching topic progress rows: %w", err)
			}

			cp = Rollup(cp, tps, totalTopics, now)

			if err := UpsertCourse(ctx, tx, cp); err != nil {
				return fmt.Errorf("storing course progress: %w", err)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("updating progress of topic[%s]: %w", topicID, err)
		}

		return web.Respond(ctx, w, updated{Topic: tp, Course: cp}, http.StatusOK)
	}
}

// HandleListByProgram serves the caller's per-topic progress of a program.
func HandleListByProgram(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		programID := web.Param(r, "id")
		if err := validate.CheckID(programID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		tps, err := FetchTopicsByProgram(ctx, db, clm.UserID, programID)
		if err != nil {
			return fmt.Errorf("fetching topic progress: %w", err)
		}

		return web.Respond(ctx, w, tps, http.StatusOK)
	}
}

type learning struct {
	Program program.Program `json:"program"`
	Pricing program.Pricing `json:"pricing"`
	Course  CourseProgress  `json:"progress"`
}

type statistics struct {
	TotalCourses      int     `json:"totalCourses"`
	CompletedCourses  int     `json:"completedCourses"`
	InProgressCourses int     `json:"inProgressCourses"`
	CompletionRate    float64 `json:"completionRate"`
	CompletedTopics   int     `json:"completedTopics"`
	TotalTopics       int     `json:"totalTopics"`
}

type learnings struct {
	Statistics statistics `json:"statistics"`
	Learnings  []learning `json:"learnings"`
}

// HandleLearnings serves the caller's purchased courses with their rollup
// records and aggregate statistics. An optional status query narrows to
// completed or onprogress courses.
func HandleLearnings(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		status := web.Query(r, "status")
		if status != "" && status != "completed" && status != "onprogress" {
			err := errors.New("status must be 'completed' or 'onprogress'")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		prgs, err := program.FetchOwned(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching owned programs: %w", err)
		}

		cps, err := FetchCourses(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching course progress: %w", err)
		}

		byProgram := make(map[string]CourseProgress, len(cps))
		for _, cp := range cps {
			byProgram[cp.ProgramID] = cp
		}

		res := learnings{Learnings: []learning{}}
		for _, prg := range prgs {
			cp := byProgram[prg.ID]
			cp.UserID = clm.UserID
			cp.ProgramID = prg.ID

			if status == "completed" && !cp.Completed {
				continue
			}
			if status == "onprogress" && cp.Completed {
				continue
			}

			res.Learnings = append(res.Learnings, learning{
				Program: prg,
				Pricing: prg.Pricing(),
				Course:  cp,
			})

			res.Statistics.TotalCourses++
			if cp.Completed {
				res.Statistics.CompletedCourses++
			} else {
				res.Statistics.InProgressCourses++
			}
			res.Statistics.CompletedTopics += cp.CompletedTopics
			res.Statistics.TotalTopics += cp.TotalTopics
		}

		if res.Statistics.TotalCourses > 0 {
			res.Statistics.CompletionRate = float64(res.Statistics.CompletedCourses) / float64(res.Statistics.TotalCourses) * 100
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}
