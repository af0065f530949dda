package dashboard

import (
	"context"
	"time"
)

type Repository interface {
	CountPatients(ctx context.Context) (int, error)
	// CountAppointmentsOn counts appointments whose start falls on the given
	// calendar day.
	CountAppointmentsOn(ctx context.Context, day time.Time) (int, error)
	CountWaitlist(ctx context.Context) (int, error)
	// CountRecentMessages counts messages inside the recent window.
	CountRecentMessages(ctx context.Context, limit int) (int, error)
}
