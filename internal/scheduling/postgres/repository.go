// Package postgres provides PostgreSQL implementation of the scheduling repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/clinicdesk/clinicdesk/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository implements the scheduling.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts an appointment. The unique index on
// (doctor_id, appointment_time) rejects a conflicting booking atomically;
// the violation surfaces as ErrTimeSlotTaken.
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_time)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.AppointmentTime).
		Scan(&appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		if code := pgErrCode(err); code == uniqueViolation {
			return scheduling.ErrTimeSlotTaken
		} else if code == foreignKeyViolation {
			return scheduling.ErrParticipantNotFound
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment with participant names resolved.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.QueryRow(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_time,
		       a.created_at, a.updated_at, d.name, p.name
		FROM appointments a
		LEFT JOIN users d ON d.id = a.doctor_id
		LEFT JOIN users p ON p.id = a.patient_id
		WHERE a.id = $1
	`, id).Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.AppointmentTime,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&appt.DoctorName,
		&appt.PatientName,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scheduling.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}
	return &appt, nil
}

// List retrieves appointments matching the filter in creation order, with
// participant names resolved.
func (r *Repository) List(ctx context.Context, filter scheduling.Filter) ([]domain.Appointment, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_time,
		       a.created_at, a.updated_at, d.name, p.name
		FROM appointments a
		LEFT JOIN users d ON d.id = a.doctor_id
		LEFT JOIN users p ON p.id = a.patient_id
	`

	var conditions []string
	var args []any

	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("a.appointment_time::date = $%d::date", len(args)))
	}
	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		conditions = append(conditions, fmt.Sprintf("a.doctor_id = $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.created_at"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appts := make([]domain.Appointment, 0)
	for rows.Next() {
		var appt domain.Appointment
		err := rows.Scan(
			&appt.ID,
			&appt.PatientID,
			&appt.DoctorID,
			&appt.AppointmentTime,
			&appt.CreatedAt,
			&appt.UpdatedAt,
			&appt.DoctorName,
			&appt.PatientName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appts, nil
}

// Update applies the non-nil fields in a single statement. The uniqueness
// constraint re-checks the (doctor_id, appointment_time) pair against every
// other row; the record's own current pair never conflicts with itself.
func (r *Repository) Update(ctx context.Context, id string, fields scheduling.UpdateFields) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id       = COALESCE($2, patient_id),
		    doctor_id        = COALESCE($3, doctor_id),
		    appointment_time = COALESCE($4, appointment_time),
		    updated_at       = NOW()
		WHERE id = $1
		RETURNING id, patient_id, doctor_id, appointment_time, created_at, updated_at
	`, id, fields.PatientID, fields.DoctorID, fields.AppointmentTime).Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.AppointmentTime,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scheduling.ErrAppointmentNotFound
		}
		if code := pgErrCode(err); code == uniqueViolation {
			return nil, scheduling.ErrTimeSlotTaken
		} else if code == foreignKeyViolation {
			return nil, scheduling.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return &appt, nil
}

// Delete removes an appointment.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return scheduling.ErrAppointmentNotFound
	}
	return nil
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
