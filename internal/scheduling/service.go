// Package scheduling provides appointment booking with conflict detection
// and role-scoped visibility.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/clinicdesk/clinicdesk/internal/pkg/metrics"
	"github.com/google/uuid"
)

// Caller identifies the authenticated user a scheduling operation runs as.
// It is passed explicitly into every call; there is no ambient current-user
// state.
type Caller struct {
	ID   string
	Role domain.Role
}

// Service implements appointment business logic.
type Service struct {
	repo Repository
}

// NewService creates a new scheduling service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns appointments matching the filter, scoped and projected for
// the caller: doctors see only their own bookings, patients only theirs,
// admin and receptionist the full filtered set. Order follows the query,
// which preserves creation order.
func (s *Service) List(ctx context.Context, filter Filter, caller Caller) ([]View, error) {
	appts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	views := make([]View, 0, len(appts))
	for i := range appts {
		appt := &appts[i]
		switch caller.Role {
		case domain.RoleDoctor:
			if appt.DoctorID != caller.ID {
				continue
			}
		case domain.RolePatient:
			if appt.PatientID != caller.ID {
				continue
			}
		}
		views = append(views, Project(appt, caller.Role))
	}

	return views, nil
}

// Get returns one appointment projected for the caller. Doctors and
// patients may only fetch records they appear on.
func (s *Service) Get(ctx context.Context, id string, caller Caller) (*View, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if caller.Role == domain.RoleDoctor && appt.DoctorID != caller.ID {
		return nil, ErrAccessDenied
	}
	if caller.Role == domain.RolePatient && appt.PatientID != caller.ID {
		return nil, ErrAccessDenied
	}

	view := Project(appt, caller.Role)
	return &view, nil
}

// CreateInput holds data for booking an appointment.
type CreateInput struct {
	PatientID       string
	DoctorID        string
	AppointmentTime time.Time
}

// Create books an appointment. The storage-level uniqueness constraint on
// (doctor_id, appointment_time) is the single enforcement point for the
// no-double-booking invariant, so concurrent attempts on the same slot
// cannot both succeed. Returns the full, unprojected record.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Appointment, error) {
	appt := &domain.Appointment{
		ID:              uuid.NewString(),
		PatientID:       input.PatientID,
		DoctorID:        input.DoctorID,
		AppointmentTime: input.AppointmentTime,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, ErrTimeSlotTaken) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	metrics.AppointmentsBooked.Inc()
	return appt, nil
}

// Update applies the supplied fields to an appointment; omitted fields keep
// their prior values. Moving the record onto a slot held by a different
// appointment fails with ErrTimeSlotTaken; keeping its own current slot is
// never a conflict. Returns the full updated record.
func (s *Service) Update(ctx context.Context, id string, fields UpdateFields) (*domain.Appointment, error) {
	appt, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, ErrTimeSlotTaken) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}
	return appt, nil
}

// Delete removes an appointment.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
