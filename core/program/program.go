package program

import "time"

// Program is a purchasable course. Its content is organized as ordered
// syllabus modules, each holding ordered video topics.
type Program struct {
	ID                 string    `json:"id" db:"program_id"`
	CategoryID         *string   `json:"categoryId" db:"category_id"`
	Title              string    `json:"title" db:"title"`
	Subtitle           string    `json:"subtitle" db:"subtitle"`
	Description        string    `json:"description" db:"description"`
	ImageURL           string    `json:"imageUrl" db:"image_url"`
	Icon               string    `json:"icon" db:"icon"`
	Duration           string    `json:"duration" db:"duration"`
	Price              int       `json:"price" db:"price"`
	DiscountPercentage int       `json:"discountPercentage" db:"discount_percentage"`
	Rating             float64   `json:"rating" db:"rating"`
	BestSeller         bool      `json:"isBestSeller" db:"best_seller"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
	Version            int       `json:"-" db:"version"`
}

type Pricing struct {
	OriginalPrice      int `json:"originalPrice"`
	DiscountPercentage int `json:"discountPercentage"`
	DiscountedPrice    int `json:"discountedPrice"`
	Savings            int `json:"savings"`
}

// Pricing derives the effective price from the discount percentage.
func (p Program) Pricing() Pricing {
	discounted := p.Price - p.Price*p.DiscountPercentage/100
	return Pricing{
		OriginalPrice:      p.Price,
		DiscountPercentage: p.DiscountPercentage,
		DiscountedPrice:    discounted,
		Savings:            p.Price - discounted,
	}
}

type ProgramNew struct {
	CategoryID         *string `json:"categoryId" validate:"omitempty,uuid"`
	Title              string  `json:"title" validate:"required"`
	Subtitle           string  `json:"subtitle"`
	Description        string  `json:"description" validate:"required"`
	ImageURL           string  `json:"imageUrl"`
	Icon               string  `json:"icon"`
	Duration           string  `json:"duration"`
	Price              int     `json:"price" validate:"required,gte=0,lte=1000000"`
	DiscountPercentage int     `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating             float64 `json:"rating" validate:"gte=0,lte=5"`
	BestSeller         bool    `json:"isBestSeller"`
}

type ProgramUp struct {
	CategoryID         *string  `json:"categoryId" validate:"omitempty,uuid"`
	Title              *string  `json:"title"`
	Subtitle           *string  `json:"subtitle"`
	Description        *string  `json:"description"`
	ImageURL           *string  `json:"imageUrl"`
	Icon               *string  `json:"icon"`
	Duration           *string  `json:"duration"`
	Price              *int     `json:"price" validate:"omitempty,gte=0,lte=1000000"`
	DiscountPercentage *int     `json:"discountPercentage" validate:"omitempty,gte=0,lte=100"`
	Rating             *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	BestSeller         *bool    `json:"isBestSeller"`
}

// Syllabus is one module of a program.
type Syllabus struct {
	ID        string    `json:"id" db:"syllabus_id"`
	ProgramID string    `json:"programId" db:"program_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type SyllabusNew struct {
	ProgramID string `json:"programId" validate:"required,uuid"`
	Title     string `json:"title" validate:"required"`
	Position  int    `json:"position" validate:"gte=0"`
}

// Topic is a single video lesson. The video URL is never serialized; the
// detail handler exposes it only when the caller may watch it.
type Topic struct {
	ID              string    `json:"id" db:"topic_id"`
	SyllabusID      string    `json:"syllabusId" db:"syllabus_id"`
	ProgramID       string    `json:"programId" db:"program_id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	VideoURL        string    `json:"-" db:"video_url"`
	DurationSeconds int       `json:"durationSeconds" db:"duration_seconds"`
	Intro           bool      `json:"isIntro" db:"intro"`
	FreeTrial       bool      `json:"isFreeTrial" db:"free_trial"`
	Position        int       `json:"position" db:"position"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	Version         int       `json:"-" db:"version"`
}

// Watchable reports whether a topic is open to users who did not purchase
// the program.
func (t Topic) Watchable(owned bool) bool {
	if t.VideoURL == "" {
		return false
	}
	return owned || t.Intro || t.FreeTrial
}

type SyllabusUp struct {
	Title    *string `json:"title"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}

type TopicNew struct {
	SyllabusID      string `json:"syllabusId" validate:"required,uuid"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	VideoURL        string `json:"videoUrl" validate:"omitempty,url"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
	Intro           bool   `json:"isIntro"`
	FreeTrial       bool   `json:"isFreeTrial"`
	Position        int    `json:"position" validate:"gte=0"`
}

type TopicUp struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	VideoURL        *string `json:"videoUrl" validate:"omitempty,url"`
	DurationSeconds *int    `json:"durationSeconds" validate:"omitempty,gte=0"`
	Intro           *bool   `json:"isIntro"`
	FreeTrial       *bool   `json:"isFreeTrial"`
	Position        *int    `json:"position" validate:"omitempty,gte=0"`
}
