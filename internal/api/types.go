package api

import (
	"time"

	"github.com/pianostudio/lesson-booking/internal/booking"
)

type SubmitAppointmentRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Duration   int    `json:"duration"`
	LessonType string `json:"lesson_type"`
}

type AppointmentResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Duration   int       `json:"duration"`
	LessonType string    `json:"lesson_type"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAppointmentResponse(a booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Date:       a.Date,
		Time:       a.Time,
		Duration:   a.Duration,
		LessonType: string(a.LessonType),
		CreatedAt:  a.CreatedAt,
	}
}

type SubmitAppointmentResponse struct {
	Success     bool                 `json:"success"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
	Errors      map[string]string    `json:"errors,omitempty"`
}

type AvailabilityResponse struct {
	Date      string   `json:"date"`
	Duration  int      `json:"duration"`
	Type      string   `json:"type"`
	Available []string `json:"available"`
	Degraded  bool     `json:"degraded,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
