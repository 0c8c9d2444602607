package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianostudio/lesson-booking/internal/booking"
	"github.com/pianostudio/lesson-booking/internal/config"
	redisclient "github.com/pianostudio/lesson-booking/internal/redis"
)

type stubRepo struct {
	mu      sync.Mutex
	nextID  int64
	appts   []booking.Appointment
	saveErr error
}

func (r *stubRepo) ListForDate(_ context.Context, date string) ([]booking.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booking.Appointment
	for _, a := range r.appts {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubRepo) IsSlotAvailable(_ context.Context, date, startTime string, duration int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.Date == date && a.Time == startTime && a.Duration == duration {
			return false, nil
		}
	}
	return true, nil
}

func (r *stubRepo) Save(_ context.Context, appt booking.Appointment) (*booking.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	for _, a := range r.appts {
		if a.Date == appt.Date && a.Time == appt.Time && a.Duration == appt.Duration {
			return nil, booking.ErrSlotTaken
		}
	}
	r.nextID++
	appt.ID = r.nextID
	appt.CreatedAt = time.Now()
	r.appts = append(r.appts, appt)
	return &appt, nil
}

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, booking.Appointment) error { return nil }

func newTestService(repo booking.Repository) *booking.Service {
	cfg := config.Config{OpenHour: 8, CloseHour: 20, SlotStepMinutes: 30}
	return booking.NewService(repo, redisclient.NewNoopLocker(), silentNotifier{}, cfg)
}

func TestAvailabilityHandler_MissingParams(t *testing.T) {
	h := availabilityHandler(newTestService(&stubRepo{}))

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"no date", "d=60", "missing_date"},
		{"no duration", "date=2026-09-28", "missing_duration"},
		{"bad duration", "date=2026-09-28&d=abc", "invalid_duration"},
		{"disallowed duration", "date=2026-09-28&d=45", "invalid_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/appointments?"+tt.query, nil)
			rec := httptest.NewRecorder()

			h(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestAvailabilityHandler_DefaultsToOnline(t *testing.T) {
	h := availabilityHandler(newTestService(&stubRepo{}))

	req := httptest.NewRequest(http.MethodGet, "/appointments?date=2026-09-28&d=60", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Online", resp.Type)
	assert.Equal(t, 60, resp.Duration)
	assert.Len(t, resp.Available, 23)
	assert.Equal(t, "08:00", resp.Available[0])
	assert.False(t, resp.Degraded)
}

func submitBody(overrides map[string]any) string {
	body := map[string]any{
		"name":        "Anna Gruber",
		"email":       "anna@example.com",
		"date":        "2026-09-28",
		"time":        "10:00",
		"duration":    60,
		"lesson_type": "Online",
	}
	for k, v := range overrides {
		body[k] = v
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func postSubmit(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, SubmitAppointmentResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)

	var resp SubmitAppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestSubmitHandler_Success(t *testing.T) {
	h := submitAppointmentHandler(newTestService(&stubRepo{}))

	rec, resp := postSubmit(t, h, submitBody(nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Appointment)
	assert.Positive(t, resp.Appointment.ID)
	assert.Equal(t, "10:00", resp.Appointment.Time)
}

func TestSubmitHandler_BadJSON(t *testing.T) {
	h := submitAppointmentHandler(newTestService(&stubRepo{}))

	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitHandler_ValidationErrors(t *testing.T) {
	h := submitAppointmentHandler(newTestService(&stubRepo{}))

	rec, resp := postSubmit(t, h, submitBody(map[string]any{
		"duration": 45,
		"email":    "",
		"phone":    "",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Errors, "duration")
	assert.Contains(t, resp.Errors, "contact")
}

func TestSubmitHandler_SlotConflict(t *testing.T) {
	repo := &stubRepo{}
	h := submitAppointmentHandler(newTestService(repo))

	rec, _ := postSubmit(t, h, submitBody(nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := postSubmit(t, h, submitBody(map[string]any{"name": "Max Huber"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Errors, "slot")
}

func TestSubmitHandler_StorageFailure(t *testing.T) {
	repo := &stubRepo{saveErr: errors.New("pool exhausted")}
	h := submitAppointmentHandler(newTestService(repo))

	rec, resp := postSubmit(t, h, submitBody(nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Errors, "database")
	assert.NotContains(t, resp.Errors["database"], "pool exhausted", "storage detail must not leak to the client")
}
