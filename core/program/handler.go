package program

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/api/web"
	"github.com/RaiseHigh-Tech/topgrade-api/api/weberr"
	"github.com/RaiseHigh-Tech/topgrade-api/core/claims"
	"github.com/RaiseHigh-Tech/topgrade-api/validate"
	"github.com/jmoiron/sqlx"
)

// Card is a program as shown in catalog listings.
type Card struct {
	Program
	Pricing    Pricing `json:"pricing"`
	Enrolled   int     `json:"enrolledStudents"`
	Bookmarked bool    `json:"isBookmarked"`
}

func makeCards(ctx context.Context, db *sqlx.DB, prgs []Program) ([]Card, error) {
	bookmarked := map[string]bool{}
	if clm, err := claims.Get(ctx); err == nil {
		bookmarked, err = FetchBookmarkedIDs(ctx, db, clm.UserID)
		if err != nil {
			return nil, err
		}
	}

	cards := make([]Card, 0, len(prgs))
	for _, p := range prgs {
		enrolled, err := CountEnrolled(ctx, db, p.ID)
		if err != nil {
			return nil, err
		}

		cards = append(cards, Card{
			Program:    p,
			Pricing:    p.Pricing(),
			Enrolled:   enrolled,
			Bookmarked: bookmarked[p.ID],
		})
	}

	return cards, nil
}

// HandleList serves the filtered catalog.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var f Filter

		if s := web.Query(r, "category_id"); s != "" {
			if err := validate.CheckID(s); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			f.CategoryID = &s
		}
		if b, ok := web.QueryBool(r, "best_seller"); ok {
			f.BestSeller = &b
		}
		if n, ok := web.QueryInt(r, "min_price"); ok {
			f.MinPrice = &n
		}
		if n, ok := web.QueryInt(r, "max_price"); ok {
			f.MaxPrice = &n
		}
		if fl, ok := web.QueryFloat(r, "min_rating"); ok {
			f.MinRating = &fl
		}
		f.Search = web.Query(r, "search")
		f.SortBy = web.Query(r, "sort_by")
		f.SortOrder = web.Query(r, "sort_order")

		prgs, err := FetchAll(ctx, db, f)
		if err != nil {
			return fmt.Errorf("fetching programs: %w", err)
		}

		cards, err := makeCards(ctx, db, prgs)
		if err != nil {
			return fmt.Errorf("building program cards: %w", err)
		}

		return web.Respond(ctx, w, cards, http.StatusOK)
	}
}

// Landing groups cap each section of the landing page.
const landingLimit = 5

type landing struct {
	TopRated         []Card      `json:"topRated"`
	RecentlyAdded    []Card      `json:"recentlyAdded"`
	Featured         []Card      `json:"featured"`
	ContinueWatching []Watching  `json:"continueWatching"`
}

// HandleLanding serves the landing page groups. The continue-watching
// group is filled only for authenticated callers.
func HandleLanding(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		minRating := 4.0
		topFilter := Filter{MinRating: &minRating, SortBy: "rating", Limit: landingLimit}
		top, err := FetchAll(ctx, db, topFilter)
		if err != nil {
			return fmt.Errorf("fetching top rated: %w", err)
		}

		recent, err := FetchAll(ctx, db, Filter{SortBy: "recent", Limit: landingLimit})
		if err != nil {
			return fmt.Errorf("fetching recently added: %w", err)
		}

		seller := true
		featured, err := FetchAll(ctx, db, Filter{BestSeller: &seller, SortBy: "rating", Limit: landingLimit})
		if err != nil {
			return fmt.Errorf("fetching featured: %w", err)
		}

		var lnd landing
		if lnd.TopRated, err = makeCards(ctx, db, top); err != nil {
			return fmt.Errorf("building top rated cards: %w", err)
		}
		if lnd.RecentlyAdded, err = makeCards(ctx, db, recent); err != nil {
			return fmt.Errorf("building recently added cards: %w", err)
		}
		if lnd.Featured, err = makeCards(ctx, db, featured); err != nil {
			return fmt.Errorf("building featured cards: %w", err)
		}

		lnd.ContinueWatching = []Watching{}
		if clm, err := claims.Get(ctx); err == nil {
			lnd.ContinueWatching, err = FetchContinueWatching(ctx, db, clm.UserID, landingLimit)
			if err != nil {
				return fmt.Errorf("fetching continue watching: %w", err)
			}
		}

		return web.Respond(ctx, w, lnd, http.StatusOK)
	}
}

type topicDetail struct {
	Topic
	VideoURL   string `json:"videoUrl"`
	Accessible bool   `json:"isAccessible"`
}

type syllabusDetail struct {
	Syllabus
	Topics []topicDetail `json:"topics"`
}

type programDetail struct {
	Card
	Purchased bool             `json:"hasPurchased"`
	Syllabus  []syllabusDetail `json:"syllabus"`
}

// HandleShow serves the full detail of a program. Topic video URLs are
// exposed only for intro/free-trial topics or to purchasers.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		programID := web.Param(r, "id")

		if err := validate.CheckID(programID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		prg, err := Fetch(ctx, db, programID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching program[%s]: %w", programID, err)
		}

		owned := false
		if clm, err := claims.Get(ctx); err == nil {
			owned, err = Owns(ctx, db, clm.UserID, programID)
			if err != nil {
				return fmt.Errorf("checking ownership: %w", err)
			}
		}

		cards, err := makeCards(ctx, db, []Program{prg})
		if err != nil {
			return fmt.Errorf("building program card: %w", err)
		}

		syls, err := FetchSyllabuses(ctx, db, programID)
		if err != nil {
			return fmt.Errorf("fetching syllabus: %w", err)
		}

		tops, err := FetchTopics(ctx, db, programID)
		if err != nil {
			return fmt.Errorf("fetching topics: %w", err)
		}

		detail := programDetail{
			Card:      cards[0],
			Purchased: owned,
			Syllabus:  make([]syllabusDetail, 0, len(syls)),
		}

		for _, syl := range syls {
			sd := syllabusDetail{Syllabus: syl, Topics: []topicDetail{}}

			for _, top := range tops {
				if top.SyllabusID != syl.ID {
					continue
				}

				td := topicDetail{Topic: top, Accessible: top.Watchable(owned)}
				if td.Accessible {
					td.VideoURL = top.VideoURL
				}
				sd.Topics = append(sd.Topics, td)
			}

			detail.Syllabus = append(detail.Syllabus, sd)
		}

		return web.Respond(ctx, w, detail, http.StatusOK)
	}
}

// HandleListOwned serves the programs the caller purchased.
func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		prgs, err := FetchOwned(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching owned programs: %w", err)
		}

		return web.Respond(ctx, w, prgs, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pn ProgramNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		prg := Program{
			ID:                 validate.GenerateID(),
			CategoryID:         pn.CategoryID,
			Title:              pn.Title,
			Subtitle:           pn.Subtitle,
			Description:        pn.Description,
			ImageURL:           pn.ImageURL,
			Icon:               pn.Icon,
			Duration:           pn.Duration,
			Price:              pn.Price,
			DiscountPercentage: pn.DiscountPercentage,
			Rating:             pn.Rating,
			BestSeller:         pn.BestSeller,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if err := Create(ctx, db, prg); err != nil {
			return fmt.Errorf("creating program: %w", err)
		}

		return web.Respond(ctx, w, prg, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		programID := web.Param(r, "id")

		if err := validate.CheckID(programID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var pu ProgramUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		prg, err := Fetch(ctx, db, programID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching program[%s]: %w", programID, err)
		}

		if pu.CategoryID != nil {
			prg.CategoryID = pu.CategoryID
		}
		if pu.Title != nil {
			prg.Title = *pu.Title
		}
		if pu.Subtitle != nil {
			prg.Subtitle = *pu.Subtitle
		}
		if pu.Description != nil {
			prg.Description = *pu.Description
		}
		if pu.ImageURL != nil {
			prg.ImageURL = *pu.ImageURL
		}
		if pu.Icon != nil {
			prg.Icon = *pu.Icon
		}
		if pu.Duration != nil {
			prg.Duration = *pu.Duration
		}
		if pu.Price != nil {
			prg.Price = *pu.Price
		}
		if pu.DiscountPercentage != nil {
			prg.DiscountPercentage = *pu.DiscountPercentage
		}
		if pu.Rating != nil {
			prg.Rating = *pu.Rating
		}
		if pu.BestSeller != nil {
			prg.BestSeller = *pu.BestSeller
		}
		prg.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, prg); err != nil {
			return fmt.Errorf("updating program[%s]: %w", programID, err)
		}

		return web.Respond(ctx, w, prg, http.StatusOK)
	}
}

func HandleCreateSyllabus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var sn SyllabusNew
		if err := web.Decode(w, r, &sn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(sn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := Fetch(ctx, db, sn.ProgramID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching program[%s]: %w", sn.ProgramID, err)
		}

		now := time.Now().UTC()
		syl := Syllabus{
			ID:        validate.GenerateID(),
			ProgramID: sn.ProgramID,
			Title:     sn.Title,
			Position:  sn.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := CreateSyllabus(ctx, db, syl); err != nil {
			return fmt.Errorf("creating syllabus: %w", err)
		}

		return web.Respond(ctx, w, syl, http.StatusCreated)
	}
}

func HandleUpdateSyllabus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		syllabusID := web.Param(r, "id")

		if err := validate.CheckID(syllabusID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var su SyllabusUp
		if err := web.Decode(w, r, &su); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(su); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		syl, err := FetchSyllabus(ctx, db, syllabusID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching syllabus[%s]: %w", syllabusID, err)
		}

		if su.Title != nil {
			syl.Title = *su.Title
		}
		if su.Position != nil {
			syl.Position = *su.Position
		}
		syl.UpdatedAt = time.Now().UTC()

		if err := UpdateSyllabus(ctx, db, syl); err != nil {
			return fmt.Errorf("updating syllabus[%s]: %w", syllabusID, err)
		}

		return web.Respond(ctx, w, syl, http.StatusOK)
	}
}

func HandleCreateTopic(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tn TopicNew
		if err := web.Decode(w, r, &tn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		syl, err := FetchSyllabus(ctx, db, tn.SyllabusID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching syllabus[%s]: %w", tn.SyllabusID, err)
		}

		now := time.Now().UTC()
		top := Topic{
			ID:              validate.GenerateID(),
			SyllabusID:      syl.ID,
			ProgramID:       syl.ProgramID,
			Title:           tn.Title,
			Description:     tn.Description,
			VideoURL:        tn.VideoURL,
			DurationSeconds: tn.DurationSeconds,
			Intro:           tn.Intro,
			FreeTrial:       tn.FreeTrial,
			Position:        tn.Position,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := CreateTopic(ctx, db, top); err != nil {
			return fmt.Errorf("creating topic: %w", err)
		}

		return web.Respond(ctx, w, top, http.StatusCreated)
	}
}

func HandleUpdateTopic(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		topicID := web.Param(r, "id")

		if err := validate.CheckID(topicID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var tu TopicUp
		if err := web.Decode(w, r, &tu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(tu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		top, err := FetchTopic(ctx, db, topicID)
		if err != nil {
			if errors.Is(err, ErrTopicNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching topic[%s]: %w", topicID, err)
		}

		if tu.Title != nil {
			top.Title = *tu.Title
		}
		if tu.Description != nil {
			top.Description = *tu.Description
		}
		if tu.VideoURL != nil {
			top.VideoURL = *tu.VideoURL
		}
		if tu.DurationSeconds != nil {
			top.DurationSeconds = *tu.DurationSeconds
		}
		if tu.Intro != nil {
			top.Intro = *tu.Intro
		}
		if tu.FreeTrial != nil {
			top.FreeTrial = *tu.FreeTrial
		}
		if tu.Position != nil {
			top.Position = *tu.Position
		}
		top.UpdatedAt = time.Now().UTC()

		if err := UpdateTopic(ctx, db, top); err != nil {
			return fmt.Errorf("updating topic[%s]: %w", topicID, err)
		}

		return web.Respond(ctx, w, top, http.StatusOK)
	}
}
