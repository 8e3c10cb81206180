package domain

import "time"

// Appointment represents a booked slot between a doctor and a patient.
// AppointmentTime is compared for exact equality; no timezone normalization
// is applied beyond what the database column provides.
//
// DoctorName and PatientName are populated by read queries joining the users
// table. They stay nil when the related user cannot be resolved.
type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	AppointmentTime time.Time `json:"appointment_time"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	DoctorName  *string `json:"-"`
	PatientName *string `json:"-"`
}
