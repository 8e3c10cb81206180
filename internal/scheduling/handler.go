package scheduling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/clinicdesk/clinicdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the scheduling module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new scheduling handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers appointment routes. All routes require an
// authenticated caller; mutation routes additionally require the admin or
// receptionist role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	viewers := httputil.RequireAnyRole(
		domain.RoleAdmin, domain.RoleReceptionist, domain.RoleDoctor, domain.RolePatient,
	)
	managers := httputil.RequireAnyRole(domain.RoleAdmin, domain.RoleReceptionist)

	r.Route("/appointments", func(r chi.Router) {
		r.With(viewers).Get("/", h.List)
		r.With(viewers).Get("/{id}", h.Get)
		r.With(managers).Post("/", h.Create)
		r.With(managers).Put("/{id}", h.Update)
		r.With(managers).Delete("/{id}", h.Delete)
	})
}

var serviceErrorMappings = []httputil.ErrorMapping{
	{Error: ErrAppointmentNotFound, Status: http.StatusNotFound},
	{Error: ErrTimeSlotTaken, Status: http.StatusUnprocessableEntity},
	{Error: ErrParticipantNotFound, Status: http.StatusUnprocessableEntity},
	{Error: ErrAccessDenied, Status: http.StatusForbidden},
}

// Accepted appointment_time layouts. Values without a zone are taken as-is
// and compared for exact equality, matching the storage column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseAppointmentTime(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func callerFromRequest(r *http.Request) Caller {
	return Caller{
		ID:   httputil.GetUserID(r.Context()),
		Role: httputil.GetRole(r.Context()),
	}
}

// List handles GET /appointments with optional date and doctor_id filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter

	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.Error(w, http.StatusUnprocessableEntity, "date must be formatted as YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	if doctorID := r.URL.Query().Get("doctor_id"); doctorID != "" {
		filter.DoctorID = &doctorID
	}

	views, err := h.service.List(r.Context(), filter, callerFromRequest(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, views)
}

// Get handles GET /appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.service.Get(r.Context(), id, callerFromRequest(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id" validate:"required,uuid"`
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	AppointmentTime string `json:"appointment_time" validate:"required"`
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	when, ok := parseAppointmentTime(req.AppointmentTime)
	if !ok {
		httputil.Error(w, http.StatusUnprocessableEntity, "appointment_time is not a valid timestamp")
		return
	}

	appt, err := h.service.Create(r.Context(), CreateInput{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentTime: when,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, appt)
}

// UpdateAppointmentRequest represents the partial update body. Omitted
// fields keep their stored values.
type UpdateAppointmentRequest struct {
	PatientID       *string `json:"patient_id" validate:"omitempty,uuid"`
	DoctorID        *string `json:"doctor_id" validate:"omitempty,uuid"`
	AppointmentTime *string `json:"appointment_time"`
}

// Update handles PUT /appointments/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	fields := UpdateFields{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	}
	if req.AppointmentTime != nil {
		when, ok := parseAppointmentTime(*req.AppointmentTime)
		if !ok {
			httputil.Error(w, http.StatusUnprocessableEntity, "appointment_time is not a valid timestamp")
			return
		}
		fields.AppointmentTime = &when
	}

	appt, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, appt)
}

// Delete handles DELETE /appointments/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}
