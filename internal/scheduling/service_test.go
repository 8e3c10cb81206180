package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	appointments []domain.Appointment

	createErr error
	updateErr error
}

func (m *mockRepository) Create(_ context.Context, appt *domain.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.appointments {
		if existing.DoctorID == appt.DoctorID && existing.AppointmentTime.Equal(appt.AppointmentTime) {
			return ErrTimeSlotTaken
		}
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	m.appointments = append(m.appointments, *appt)
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	for i := range m.appointments {
		if m.appointments[i].ID == id {
			appt := m.appointments[i]
			return &appt, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *mockRepository) List(_ context.Context, filter Filter) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, appt := range m.appointments {
		if filter.Date != nil {
			y1, m1, d1 := appt.AppointmentTime.Date()
			y2, m2, d2 := filter.Date.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		if filter.DoctorID != nil && appt.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, id string, fields UpdateFields) (*domain.Appointment, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for i := range m.appointments {
		if m.appointments[i].ID != id {
			continue
		}
		appt := &m.appointments[i]
		if fields.PatientID != nil {
			appt.PatientID = *fields.PatientID
		}
		if fields.DoctorID != nil {
			appt.DoctorID = *fields.DoctorID
		}
		if fields.AppointmentTime != nil {
			appt.AppointmentTime = *fields.AppointmentTime
		}
		appt.UpdatedAt = time.Now()
		updated := *appt
		return &updated, nil
	}
	return nil, ErrAppointmentNotFound
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	for i := range m.appointments {
		if m.appointments[i].ID == id {
			m.appointments = append(m.appointments[:i], m.appointments[i+1:]...)
			return nil
		}
	}
	return ErrAppointmentNotFound
}

func strptr(s string) *string { return &s }

func seedAppointments(repo *mockRepository) {
	slot := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	repo.appointments = []domain.Appointment{
		{ID: "a1", DoctorID: "doc-1", PatientID: "pat-1", AppointmentTime: slot,
			DoctorName: strptr("Dr. Alice"), PatientName: strptr("Bob")},
		{ID: "a2", DoctorID: "doc-1", PatientID: "pat-2", AppointmentTime: slot.Add(time.Hour),
			DoctorName: strptr("Dr. Alice"), PatientName: strptr("Carol")},
		{ID: "a3", DoctorID: "doc-2", PatientID: "pat-1", AppointmentTime: slot,
			DoctorName: strptr("Dr. Dave"), PatientName: strptr("Bob")},
	}
}

func TestList_AdminSeesEverything(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	views, err := service.List(context.Background(), Filter{}, Caller{ID: "admin-1", Role: domain.RoleAdmin})

	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Dr. Alice", views[0].DoctorName)
	assert.Equal(t, "Bob", views[0].PatientName)
	assert.NotNil(t, views[0].CreatedAt)
}

func TestList_DoctorSeesOnlyOwnBookings(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	views, err := service.List(context.Background(), Filter{}, Caller{ID: "doc-1", Role: domain.RoleDoctor})

	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.NotEmpty(t, v.PatientName)
		assert.Empty(t, v.DoctorName, "doctor projection must not echo the doctor's own name")
	}
}

func TestList_PatientSeesOnlyOwnBookings(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	views, err := service.List(context.Background(), Filter{}, Caller{ID: "pat-2", Role: domain.RolePatient})

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "a2", views[0].ID)
	assert.Equal(t, "Dr. Alice", views[0].DoctorName)
	assert.Empty(t, views[0].PatientName)
}

func TestList_ReceptionistSeesAllWithTimestamps(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	views, err := service.List(context.Background(), Filter{}, Caller{ID: "rec-1", Role: domain.RoleReceptionist})

	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Dr. Alice", views[0].DoctorName)
	assert.Empty(t, views[0].PatientName)
}

func TestList_DoctorFilterCombinesWithRoleScope(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	// A doctor filtering for a colleague's bookings still sees nothing
	// but their own.
	views, err := service.List(context.Background(), Filter{DoctorID: strptr("doc-2")},
		Caller{ID: "doc-1", Role: domain.RoleDoctor})

	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestList_EmptyResultIsEmptySlice(t *testing.T) {
	service := NewService(&mockRepository{})

	views, err := service.List(context.Background(), Filter{}, Caller{ID: "admin-1", Role: domain.RoleAdmin})

	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestGet_OwnerAccess(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	view, err := service.Get(context.Background(), "a1", Caller{ID: "pat-1", Role: domain.RolePatient})

	require.NoError(t, err)
	assert.Equal(t, "a1", view.ID)
	assert.Equal(t, "Dr. Alice", view.DoctorName)
}

func TestGet_ForeignRecordDenied(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	// a2 belongs to pat-2
	_, err := service.Get(context.Background(), "a2", Caller{ID: "pat-1", Role: domain.RolePatient})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// a3 belongs to doc-2
	_, err = service.Get(context.Background(), "a3", Caller{ID: "doc-1", Role: domain.RoleDoctor})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGet_NotFound(t *testing.T) {
	service := NewService(&mockRepository{})

	_, err := service.Get(context.Background(), "missing", Caller{ID: "admin-1", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCreate_Success(t *testing.T) {
	repo := &mockRepository{}
	service := NewService(repo)

	slot := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	appt, err := service.Create(context.Background(), CreateInput{
		PatientID:       "pat-1",
		DoctorID:        "doc-1",
		AppointmentTime: slot,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, slot, appt.AppointmentTime)
	require.Len(t, repo.appointments, 1)
}

func TestCreate_SlotConflict(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	// doc-1 already has the 10:00 slot; a different patient must be
	// rejected.
	_, err := service.Create(context.Background(), CreateInput{
		PatientID:       "pat-9",
		DoctorID:        "doc-1",
		AppointmentTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})

	assert.ErrorIs(t, err, ErrTimeSlotTaken)
	assert.Len(t, repo.appointments, 3, "conflicting create must not persist")
}

func TestCreate_SameTimeDifferentDoctor(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	appt, err := service.Create(context.Background(), CreateInput{
		PatientID:       "pat-9",
		DoctorID:        "doc-3",
		AppointmentTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.NotNil(t, appt)
}

func TestUpdate_PartialFields(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	newTime := time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)
	appt, err := service.Update(context.Background(), "a1", UpdateFields{AppointmentTime: &newTime})

	require.NoError(t, err)
	assert.Equal(t, newTime, appt.AppointmentTime)
	assert.Equal(t, "pat-1", appt.PatientID, "omitted fields keep their values")
	assert.Equal(t, "doc-1", appt.DoctorID)
}

func TestUpdate_ConflictPassthrough(t *testing.T) {
	repo := &mockRepository{updateErr: ErrTimeSlotTaken}
	seedAppointments(repo)
	service := NewService(repo)

	slot := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	_, err := service.Update(context.Background(), "a3", UpdateFields{
		DoctorID:        strptr("doc-1"),
		AppointmentTime: &slot,
	})

	assert.ErrorIs(t, err, ErrTimeSlotTaken)
}

func TestUpdate_NotFound(t *testing.T) {
	service := NewService(&mockRepository{})

	_, err := service.Update(context.Background(), "missing", UpdateFields{})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDelete(t *testing.T) {
	repo := &mockRepository{}
	seedAppointments(repo)
	service := NewService(repo)

	require.NoError(t, service.Delete(context.Background(), "a1"))
	assert.Len(t, repo.appointments, 2)

	err := service.Delete(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
