package waitlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	entries Repository
}

func NewService(entries Repository) *Service {
	return &Service{entries: entries}
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	e.PatientName = strings.TrimSpace(e.PatientName)
	if e.PatientName == "" {
		return fmt.Errorf("patient_name is required")
	}
	if e.Priority == 0 {
		e.Priority = PriorityNormal
	}
	if e.Priority != PriorityNormal && e.Priority != PriorityPreferential {
		return fmt.Errorf("priority must be %d or %d", PriorityNormal, PriorityPreferential)
	}
	return s.entries.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.entries.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.entries.List(ctx, limit, offset)
}
