// Package certificate issues completion certificates for finished courses.
// A certificate starts out pending and moves to sent once it was emailed
// to the student.
package certificate

import (
	"strings"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/random"
)

const (
	Pending = "pending"
	Sent    = "sent"
)

type Certificate struct {
	ID        string     `json:"id" db:"certificate_id"`
	UserID    string     `json:"userId" db:"user_id"`
	ProgramID string     `json:"programId" db:"program_id"`
	Serial    string     `json:"serial" db:"serial"`
	Status    string     `json:"status" db:"status"`
	IssuedAt  time.Time  `json:"issuedAt" db:"issued_at"`
	SentAt    *time.Time `json:"sentAt" db:"sent_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

type CertificateNew struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	ProgramID string `json:"programId" validate:"required,uuid"`
}

// Mailer delivers issued certificates to students.
type Mailer interface {
	SendCertificate(name string, program string, serial string, to string) error
}

// NewSerial mints a human-readable certificate serial.
func NewSerial() string {
	return "TG-" + strings.ToUpper(random.String(12))
}
