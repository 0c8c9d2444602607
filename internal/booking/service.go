package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pianostudio/lesson-booking/internal/availability"
	"github.com/pianostudio/lesson-booking/internal/config"
	redisclient "github.com/pianostudio/lesson-booking/internal/redis"
)

const notifyTimeout = 30 * time.Second

// Notifier is told about committed bookings. Dispatch is best-effort: a
// notifier failure is logged and never rolls back or re-surfaces as a
// booking failure.
type Notifier interface {
	Notify(ctx context.Context, appt Appointment) error
}

// ValidationError carries per-field messages for a rejected submission.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid booking submission: " + strings.Join(fields, ", ")
}

type SubmitRequest struct {
	Name       string
	Email      string
	Phone      string
	Date       string // ISO date
	Time       string // "HH:MM"
	Duration   int    // minutes
	LessonType LessonType
}

// AvailabilityResult lists the bookable start times for one query. Degraded
// is set when the booking list could not be read and the times were computed
// against an empty day, so the caller knows the result may overstate
// availability.
type AvailabilityResult struct {
	Date       string
	Duration   int
	LessonType LessonType
	Times      []string
	Degraded   bool
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	cfg      config.Config
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, cfg config.Config) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Submit validates and persists a booking. Exactly one of two concurrent
// submissions for the same slot wins; the loser gets ErrSlotTaken. On success
// the notifier is dispatched in the background and the appointment is already
// committed regardless of its outcome.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Appointment, error) {
	if verr := validate(req); len(verr) > 0 {
		return nil, verr
	}

	appt := Appointment{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Phone:      req.Phone,
		Date:       req.Date,
		Time:       req.Time,
		Duration:   req.Duration,
		LessonType: req.LessonType,
	}

	saved, err := s.admit(ctx, appt)
	if err != nil {
		return nil, err
	}

	log.Printf("appointment saved id=%d date=%s time=%s duration=%d type=%q",
		saved.ID, saved.Date, saved.Time, saved.Duration, saved.LessonType)

	s.dispatchNotification(ctx, *saved)

	return saved, nil
}

// admit runs the pre-check + insert under the slot lock when one can be
// acquired. The pre-check only buys a friendlier error before hitting the
// unique constraint; the constraint alone decides the winner.
func (s *Service) admit(ctx context.Context, appt Appointment) (*Appointment, error) {
	var saved *Appointment

	attempt := func(c context.Context) error {
		free, err := s.repo.IsSlotAvailable(c, appt.Date, appt.Time, appt.Duration)
		if err == nil && !free {
			return ErrSlotTaken
		}

		sv, err := s.repo.Save(c, appt)
		if err != nil {
			return err
		}
		saved = sv
		return nil
	}

	key := redisclient.SlotKey(appt.Date, appt.Time, appt.Duration)
	err := s.locker.WithSlotLock(ctx, key, attempt)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// Someone else holds the slot lock. Let the constraint arbitrate
		// rather than bouncing the request.
		err = attempt(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	return saved, nil
}

func (s *Service) dispatchNotification(ctx context.Context, appt Appointment) {
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(nctx, appt); err != nil {
			log.Printf("booking notification failed for appointment id=%d date=%s time=%s: %v",
				appt.ID, appt.Date, appt.Time, err)
		}
	}()
}

// Availability computes bookable start times for the date. Read failures
// never fail the query: the engine runs against an empty day and the result
// is marked Degraded so the caller can tell it may overstate availability.
func (s *Service) Availability(ctx context.Context, date string, duration int, lessonType LessonType) AvailabilityResult {
	result := AvailabilityResult{
		Date:       date,
		Duration:   duration,
		LessonType: lessonType,
	}

	appts, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		log.Printf("availability degraded: list appointments for %s: %v", date, err)
		result.Degraded = true
		appts = nil
	}

	booked := make([]availability.Booking, 0, len(appts))
	for _, a := range appts {
		start, err := availability.TimeToMinutes(a.Time)
		if err != nil {
			log.Printf("skipping appointment id=%d with malformed time %q: %v", a.ID, a.Time, err)
			continue
		}
		booked = append(booked, availability.Booking{Start: start, Duration: a.Duration})
	}

	starts := availability.Slots(
		s.cfg.OpenHour*60,
		s.cfg.CloseHour*60,
		s.cfg.SlotStepMinutes,
		duration,
		lessonType.TravelBuffer(),
		booked,
	)

	result.Times = make([]string, 0, len(starts))
	for _, m := range starts {
		result.Times = append(result.Times, availability.MinutesToTime(m))
	}

	return result
}

func validate(req SubmitRequest) ValidationError {
	errs := ValidationError{}

	if !AllowedDuration(req.Duration) {
		errs["duration"] = "Invalid duration"
	}
	if req.Date == "" || req.Time == "" {
		errs["datetime"] = "Select a day and time"
	}
	if req.Email == "" && req.Phone == "" {
		errs["contact"] = "Provide at least email or phone"
	}
	if strings.TrimSpace(req.Name) == "" {
		errs["name"] = "Please provide your name"
	}
	if !req.LessonType.Valid() {
		errs["lesson_type"] = "Unknown lesson type"
	}

	return errs
}
