package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels for walk-in entries. Preferential entries jump the queue.
const (
	PriorityNormal       = 1
	PriorityPreferential = 2
)

// Entry maps to the waitlist table. Patient identity is a free-text name,
// not a patients foreign key; walk-ins are often not registered yet.
type Entry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	Priority    int       `db:"priority" json:"priority"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
