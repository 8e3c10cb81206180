package scheduling

import (
	"context"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
)

// Repository defines the interface for appointment data operations.
//
// The no-double-booking invariant lives in storage: a unique index over
// (doctor_id, appointment_time) rejects conflicting writes atomically, and
// implementations surface the violation as ErrTimeSlotTaken. There is no
// separate check-then-insert step anywhere.
type Repository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	List(ctx context.Context, filter Filter) ([]domain.Appointment, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*domain.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// Filter represents filter criteria for listing appointments.
type Filter struct {
	Date     *time.Time // restricts to a calendar date
	DoctorID *string
}

// UpdateFields holds the partial update payload. Nil fields keep their
// prior values.
type UpdateFields struct {
	PatientID       *string
	DoctorID        *string
	AppointmentTime *time.Time
}
