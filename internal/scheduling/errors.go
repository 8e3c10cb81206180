package scheduling

import "errors"

// Service errors.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTimeSlotTaken       = errors.New("time slot already booked")
	ErrParticipantNotFound = errors.New("patient or doctor does not exist")
	ErrAccessDenied        = errors.New("not allowed to view this appointment")
)
