package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status labels used by the agenda. Free-form in storage but the service only
// accepts these on create and status update.
const (
	StatusScheduled = "agendado"
	StatusConfirmed = "confirmado"
	StatusCancelled = "cancelado"
	StatusDone      = "concluido"
)

const (
	MinDurationMinutes     = 10
	MaxDurationMinutes     = 180
	DefaultDurationMinutes = 30
)

// Appointment maps to the appointments table. EndTime is derived from the
// requested duration at creation time; the duration itself is not stored.
type Appointment struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time,omitempty"`
	Status    string     `db:"status" json:"status"`
	Reason    *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateRequest is the payload for booking an appointment. The duration is
// input-only: it produces EndTime and is then discarded.
type CreateRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Reason          *string   `json:"reason,omitempty"`
}
