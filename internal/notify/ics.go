package notify

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/pianostudio/lesson-booking/internal/booking"
)

const inviteUIDDomain = "lessons.pianostudio"

// buildInvite renders a single-event VCALENDAR for a booked lesson. The
// studio clock runs at a fixed UTC offset; the invite carries UTC times.
func buildInvite(appt booking.Appointment, utcOffsetHours int, organizer string, now time.Time) (string, error) {
	loc := time.FixedZone("studio", utcOffsetHours*3600)
	start, err := time.ParseInLocation("2006-01-02 15:04", appt.Date+" "+appt.Time, loc)
	if err != nil {
		return "", fmt.Errorf("parse appointment start: %w", err)
	}
	end := start.Add(time.Duration(appt.Duration) * time.Minute)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Piano Lessons//Lesson Booking//EN")

	ev := cal.AddEvent(fmt.Sprintf("%s@%s", uuid.NewString(), inviteUIDDomain))
	ev.SetDtStampTime(now.UTC())
	ev.SetStartAt(start.UTC())
	ev.SetEndAt(end.UTC())
	ev.SetSummary(fmt.Sprintf("Piano Lesson - %s", appt.Name))
	ev.SetDescription(inviteDescription(appt))
	ev.SetStatus(ics.ObjectStatusConfirmed)
	if organizer != "" {
		ev.SetOrganizer("mailto:" + organizer)
	}

	alarm := ev.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger("-PT15M")

	return cal.Serialize(), nil
}

func inviteDescription(appt booking.Appointment) string {
	return fmt.Sprintf(
		"Piano lesson with %s\n\nLesson Type: %s\nDuration: %d minutes\n\nStudent Contact:\nEmail: %s\nPhone: %s",
		appt.Name,
		appt.LessonType.Display(),
		appt.Duration,
		orNotProvided(appt.Email),
		orNotProvided(appt.Phone),
	)
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}
