package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianostudio/lesson-booking/internal/config"
	redisclient "github.com/pianostudio/lesson-booking/internal/redis"
)

// memRepo enforces the same slot uniqueness a Postgres constraint would,
// under a mutex, so concurrent Save calls have exactly one winner.
type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	appts   []Appointment
	listErr error
	saveErr error
}

func (r *memRepo) ListForDate(_ context.Context, date string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Appointment
	for _, a := range r.appts {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) IsSlotAvailable(_ context.Context, date, startTime string, duration int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.taken(date, startTime, duration), nil
}

func (r *memRepo) Save(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	if r.taken(appt.Date, appt.Time, appt.Duration) {
		return nil, ErrSlotTaken
	}
	r.nextID++
	appt.ID = r.nextID
	appt.CreatedAt = time.Now()
	r.appts = append(r.appts, appt)
	return &appt, nil
}

func (r *memRepo) taken(date, startTime string, duration int) bool {
	for _, a := range r.appts {
		if a.Date == date && a.Time == startTime && a.Duration == duration {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	ch chan Appointment
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan Appointment, 16)}
}

func (n *recordingNotifier) Notify(_ context.Context, appt Appointment) error {
	n.ch <- appt
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) Appointment {
	t.Helper()
	select {
	case appt := <-n.ch:
		return appt
	case <-time.After(2 * time.Second):
		t.Fatal("expected a booking notification")
		return Appointment{}
	}
}

func (n *recordingNotifier) assertNone(t *testing.T) {
	t.Helper()
	select {
	case appt := <-n.ch:
		t.Fatalf("unexpected notification for appointment %+v", appt)
	case <-time.After(50 * time.Millisecond):
	}
}

func testConfig() config.Config {
	return config.Config{
		OpenHour:        8,
		CloseHour:       20,
		SlotStepMinutes: 30,
	}
}

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, redisclient.NewNoopLocker(), notifier, testConfig())
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Name:       "Anna Gruber",
		Email:      "anna@example.com",
		Date:       "2026-09-28",
		Time:       "10:00",
		Duration:   60,
		LessonType: LessonOnline,
	}
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
		field  string
	}{
		{"duration outside allowed set", func(r *SubmitRequest) { r.Duration = 45 }, "duration"},
		{"missing date", func(r *SubmitRequest) { r.Date = "" }, "datetime"},
		{"missing time", func(r *SubmitRequest) { r.Time = "" }, "datetime"},
		{"no contact method", func(r *SubmitRequest) { r.Email = ""; r.Phone = "" }, "contact"},
		{"blank name", func(r *SubmitRequest) { r.Name = "   " }, "name"},
		{"unknown lesson type", func(r *SubmitRequest) { r.LessonType = "Moon" }, "lesson_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{}
			notifier := newRecordingNotifier()
			svc := newTestService(repo, notifier)

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Submit(context.Background(), req)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr, tt.field)
			assert.Empty(t, repo.appts, "rejected submission must have no side effects")
			notifier.assertNone(t)
		})
	}
}

func TestSubmit_PhoneOnlyContactIsEnough(t *testing.T) {
	svc := newTestService(&memRepo{}, newRecordingNotifier())

	req := validRequest()
	req.Email = ""
	req.Phone = "+43 660 1234567"

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
}

func TestSubmit_RoundTrip(t *testing.T) {
	repo := &memRepo{}
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	req := validRequest()
	saved, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Positive(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	listed, err := repo.ListForDate(context.Background(), req.Date)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, req.Name, listed[0].Name)
	assert.Equal(t, req.Email, listed[0].Email)
	assert.Equal(t, req.Time, listed[0].Time)
	assert.Equal(t, req.Duration, listed[0].Duration)
	assert.Equal(t, req.LessonType, listed[0].LessonType)

	notified := notifier.wait(t)
	assert.Equal(t, saved.ID, notified.ID)
}

func TestSubmit_SlotConflict(t *testing.T) {
	repo := &memRepo{}
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	notifier.wait(t)

	second := validRequest()
	second.Name = "Max Huber"
	second.LessonType = LessonTeacherLocation // lesson type does not free the slot

	_, err = svc.Submit(context.Background(), second)
	assert.ErrorIs(t, err, ErrSlotTaken)
	notifier.assertNone(t)
}

func TestSubmit_ConcurrentSameSlotOneWinner(t *testing.T) {
	repo := &memRepo{}
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	const attempts = 8
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), validRequest())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one submission must win the slot")
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, repo.appts, 1)

	notifier.wait(t)
	notifier.assertNone(t)
}

func TestSubmit_StorageFailureIsGeneric(t *testing.T) {
	repo := &memRepo{saveErr: errors.New("connection reset")}
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken)
	var verr ValidationError
	assert.False(t, errors.As(err, &verr))
	notifier.assertNone(t)
}

func TestSubmit_NotifierFailureDoesNotFailBooking(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, redisclient.NewNoopLocker(), failingNotifier{}, testConfig())

	saved, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Positive(t, saved.ID)
	assert.Len(t, repo.appts, 1, "booking stays committed when notification fails")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Appointment) error {
	return errors.New("smtp unreachable")
}

func TestAvailability_EmptyDay(t *testing.T) {
	svc := newTestService(&memRepo{}, newRecordingNotifier())

	res := svc.Availability(context.Background(), "2026-09-28", 60, LessonOnline)

	require.Len(t, res.Times, 23)
	assert.Equal(t, "08:00", res.Times[0])
	assert.Equal(t, "19:00", res.Times[len(res.Times)-1])
	assert.False(t, res.Degraded)
}

func TestAvailability_ExcludesBookedSlot(t *testing.T) {
	repo := &memRepo{}
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Submit(context.Background(), validRequest()) // books [10:00, 11:00)
	require.NoError(t, err)
	notifier.wait(t)

	res := svc.Availability(context.Background(), "2026-09-28", 30, LessonOnline)
	assert.Contains(t, res.Times, "09:30", "candidate ending exactly at the booking start stays in")
	assert.NotContains(t, res.Times, "10:00")
	assert.NotContains(t, res.Times, "10:30")
	assert.Contains(t, res.Times, "11:00")

	// The travel buffer pushes the same query's candidates away from the
	// existing lesson on both sides.
	res = svc.Availability(context.Background(), "2026-09-28", 30, LessonStudentLocation)
	assert.NotContains(t, res.Times, "09:30")
	assert.NotContains(t, res.Times, "11:00")
	assert.Contains(t, res.Times, "11:30")
}

func TestAvailability_DegradedOnReadFailure(t *testing.T) {
	repo := &memRepo{listErr: errors.New("disk on fire")}
	svc := newTestService(repo, newRecordingNotifier())

	res := svc.Availability(context.Background(), "2026-09-28", 60, LessonOnline)

	assert.True(t, res.Degraded, "read failure must be surfaced, not hidden")
	assert.Len(t, res.Times, 23, "fail-open: the full grid is still returned")
}
