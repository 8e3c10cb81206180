package scheduling

import (
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
)

// Fallback names used when the related user cannot be resolved.
const (
	UnknownDoctor  = "Unknown Doctor"
	UnknownPatient = "Unknown Patient"
)

// View is the role-specific shape of an appointment returned to a caller.
// Fields absent from a role's projection stay empty and are omitted from
// the JSON encoding.
type View struct {
	ID              string     `json:"id"`
	DoctorName      string     `json:"doctor_name,omitempty"`
	PatientName     string     `json:"patient_name,omitempty"`
	AppointmentTime time.Time  `json:"appointment_time"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Project shapes an appointment for the caller's role.
//
// doctor:       id, patient_name, appointment_time
// patient:      id, doctor_name, appointment_time
// receptionist: id, doctor_name, appointment_time, created_at, updated_at
// admin:        everything above combined
//
// The receptionist shape is deliberately identical for list and single-get.
func Project(appt *domain.Appointment, role domain.Role) View {
	v := View{
		ID:              appt.ID,
		AppointmentTime: appt.AppointmentTime,
	}

	switch role {
	case domain.RoleDoctor:
		v.PatientName = nameOr(appt.PatientName, UnknownPatient)
	case domain.RolePatient:
		v.DoctorName = nameOr(appt.DoctorName, UnknownDoctor)
	case domain.RoleReceptionist:
		v.DoctorName = nameOr(appt.DoctorName, UnknownDoctor)
		v.CreatedAt = &appt.CreatedAt
		v.UpdatedAt = &appt.UpdatedAt
	default: // admin and anything unforeseen gets the full projection
		v.DoctorName = nameOr(appt.DoctorName, UnknownDoctor)
		v.PatientName = nameOr(appt.PatientName, UnknownPatient)
		v.CreatedAt = &appt.CreatedAt
		v.UpdatedAt = &appt.UpdatedAt
	}

	return v
}

func nameOr(name *string, fallback string) string {
	if name == nil || *name == "" {
		return fallback
	}
	return *name
}
