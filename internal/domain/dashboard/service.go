package dashboard

import (
	"context"
	"time"
)

type Service struct {
	repo        Repository
	recentLimit int
	now         func() time.Time
}

func NewService(repo Repository, recentLimit int) *Service {
	return &Service{repo: repo, recentLimit: recentLimit, now: time.Now}
}

// Summary aggregates the panel counts. Counts are read independently, not in
// one snapshot.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	patients, err := s.repo.CountPatients(ctx)
	if err != nil {
		return nil, err
	}
	appointments, err := s.repo.CountAppointmentsOn(ctx, s.now())
	if err != nil {
		return nil, err
	}
	waitlist, err := s.repo.CountWaitlist(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.CountRecentMessages(ctx, s.recentLimit)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Patients:          patients,
		AppointmentsToday: appointments,
		WaitlistEntries:   waitlist,
		RecentMessages:    messages,
	}, nil
}
