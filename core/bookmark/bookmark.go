package bookmark

import (
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
)

type Bookmark struct {
	UserID    string    `json:"-" db:"user_id"`
	ProgramID string    `json:"programId" db:"program_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type BookmarkNew struct {
	ProgramID string `json:"programId" validate:"required,uuid"`
}

// Entry is a bookmark joined with its program for listings.
type Entry struct {
	Bookmark
	Program program.Program `json:"program"`
}
