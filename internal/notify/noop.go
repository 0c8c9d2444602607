package notify

import (
	"context"
	"log"

	"github.com/pianostudio/lesson-booking/internal/booking"
)

// Disabled is used when no SMTP host is configured. Bookings still commit;
// the skip is only logged.
type Disabled struct{}

func (Disabled) Notify(_ context.Context, appt booking.Appointment) error {
	log.Printf("notification skipped (smtp disabled) appointment id=%d date=%s time=%s", appt.ID, appt.Date, appt.Time)
	return nil
}
