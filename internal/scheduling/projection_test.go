package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAppointment() *domain.Appointment {
	doctor := "Dr. Alice"
	patient := "Bob"
	return &domain.Appointment{
		ID:              "a1",
		PatientID:       "pat-1",
		DoctorID:        "doc-1",
		AppointmentTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
		DoctorName:      &doctor,
		PatientName:     &patient,
	}
}

func TestProject_Doctor(t *testing.T) {
	v := Project(sampleAppointment(), domain.RoleDoctor)

	assert.Equal(t, "a1", v.ID)
	assert.Equal(t, "Bob", v.PatientName)
	assert.Empty(t, v.DoctorName)
	assert.Nil(t, v.CreatedAt)
	assert.Nil(t, v.UpdatedAt)
}

func TestProject_Patient(t *testing.T) {
	v := Project(sampleAppointment(), domain.RolePatient)

	assert.Equal(t, "a1", v.ID)
	assert.Equal(t, "Dr. Alice", v.DoctorName)
	assert.Empty(t, v.PatientName)
	assert.Nil(t, v.CreatedAt)
	assert.Nil(t, v.UpdatedAt)
}

func TestProject_Receptionist(t *testing.T) {
	appt := sampleAppointment()
	v := Project(appt, domain.RoleReceptionist)

	assert.Equal(t, "Dr. Alice", v.DoctorName)
	assert.Empty(t, v.PatientName)
	require.NotNil(t, v.CreatedAt)
	require.NotNil(t, v.UpdatedAt)
	assert.Equal(t, appt.CreatedAt, *v.CreatedAt)
	assert.Equal(t, appt.UpdatedAt, *v.UpdatedAt)
}

func TestProject_Admin(t *testing.T) {
	v := Project(sampleAppointment(), domain.RoleAdmin)

	assert.Equal(t, "Dr. Alice", v.DoctorName)
	assert.Equal(t, "Bob", v.PatientName)
	assert.NotNil(t, v.CreatedAt)
	assert.NotNil(t, v.UpdatedAt)
}

func TestProject_MissingNamesFallBack(t *testing.T) {
	appt := sampleAppointment()
	appt.DoctorName = nil
	appt.PatientName = nil

	assert.Equal(t, UnknownPatient, Project(appt, domain.RoleDoctor).PatientName)
	assert.Equal(t, UnknownDoctor, Project(appt, domain.RolePatient).DoctorName)
}

func TestProject_JSONOmitsAbsentFields(t *testing.T) {
	v := Project(sampleAppointment(), domain.RoleDoctor)

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "patient_name")
	assert.Contains(t, fields, "appointment_time")
	assert.NotContains(t, fields, "doctor_name")
	assert.NotContains(t, fields, "created_at")
	assert.NotContains(t, fields, "updated_at")
}
