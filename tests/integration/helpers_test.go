//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/testutil"
	"github.com/stretchr/testify/require"
)

// registerUser registers a fresh user with the given role and returns an
// authenticated client plus the new user's ID.
func registerUser(t *testing.T, name, role string) (*testutil.Client, string) {
	t.Helper()

	client := newTestClient(t)
	raw := client.RegisterAs(t, name, testutil.RandomEmail(), "password123", role)

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &user))
	require.NotEmpty(t, user.ID)

	return client, user.ID
}

// appointmentSlot produces distinct far-future slots so tests do not
// collide on the doctor/time uniqueness constraint.
var slotCounter int

func appointmentSlot(t *testing.T) string {
	t.Helper()
	slotCounter++
	base := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(slotCounter) * time.Hour).Format(time.RFC3339)
}

// createAppointment books an appointment and returns its ID.
func createAppointment(t *testing.T, client *testutil.Client, patientID, doctorID, when string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/appointments", map[string]string{
		"patient_id":       patientID,
		"doctor_id":        doctorID,
		"appointment_time": when,
	})
	require.NoError(t, err)

	body := testutil.ReadBody(t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	require.NotEmpty(t, result.Data.ID)
	return result.Data.ID
}
