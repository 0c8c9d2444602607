package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/pianostudio/lesson-booking/internal/booking"
)

func availabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		date := q.Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date is required")
			return
		}

		durationStr := q.Get("d")
		if durationStr == "" {
			writeError(w, http.StatusBadRequest, "missing_duration", "d (duration in minutes) is required")
			return
		}
		duration, err := strconv.Atoi(durationStr)
		if err != nil || !booking.AllowedDuration(duration) {
			writeError(w, http.StatusBadRequest, "invalid_duration", "d must be one of 30, 60")
			return
		}

		lessonType := booking.LessonType(q.Get("type"))
		if lessonType == "" {
			lessonType = booking.LessonOnline
		}

		res := svc.Availability(r.Context(), date, duration, lessonType)

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:      res.Date,
			Duration:  res.Duration,
			Type:      string(res.LessonType),
			Available: res.Times,
			Degraded:  res.Degraded,
		})
	}
}

func submitAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Submit(r.Context(), booking.SubmitRequest{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Date:       req.Date,
			Time:       req.Time,
			Duration:   req.Duration,
			LessonType: booking.LessonType(req.LessonType),
		})
		if err != nil {
			handleSubmitError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt)
		writeJSON(w, http.StatusCreated, SubmitAppointmentResponse{
			Success:     true,
			Appointment: &resp,
		})
	}
}

func handleSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var verr booking.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, SubmitAppointmentResponse{
			Success: false,
			Errors:  verr,
		})
	case errors.Is(err, booking.ErrSlotTaken):
		writeJSON(w, http.StatusConflict, SubmitAppointmentResponse{
			Success: false,
			Errors: map[string]string{
				"slot": "This time slot is already booked. Please select a different time.",
			},
		})
	default:
		// Storage detail stays in the server log; the client gets a generic
		// failure.
		log.Printf("submit appointment failed request_id=%s: %v", GetRequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, SubmitAppointmentResponse{
			Success: false,
			Errors: map[string]string{
				"database": "Failed to save appointment. Please try again.",
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
