package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true,
	StatusCancelled: true, StatusDone: true,
}

type Service struct {
	appointments Repository
}

func NewService(appointments Repository) *Service {
	return &Service{appointments: appointments}
}

// Create books an appointment. The end time is always start plus the
// requested duration; the duration itself is not persisted.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Appointment, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.StartTime.IsZero() {
		return nil, fmt.Errorf("start_time is required")
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}
	if req.DurationMinutes < MinDurationMinutes || req.DurationMinutes > MaxDurationMinutes {
		return nil, fmt.Errorf("duration_minutes must be between %d and %d", MinDurationMinutes, MaxDurationMinutes)
	}
	if req.Status == "" {
		req.Status = StatusScheduled
	}
	if !validStatuses[req.Status] {
		return nil, fmt.Errorf("invalid appointment status: %s", req.Status)
	}

	end := req.StartTime.Add(time.Duration(req.DurationMinutes) * time.Minute)
	a := &Appointment{
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		EndTime:   &end,
		Status:    req.Status,
		Reason:    req.Reason,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// UpdateStatus overwrites the status label. Any status may follow any other;
// the agenda treats transitions as one-shot overwrites.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid appointment status: %s", status)
	}
	return s.appointments.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}
