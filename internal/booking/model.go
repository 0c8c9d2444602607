package booking

import "time"

type LessonType string

const (
	LessonOnline          LessonType = "Online"
	LessonStudentLocation LessonType = "Student Location"
	LessonTeacherLocation LessonType = "Teacher Location"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonOnline, LessonStudentLocation, LessonTeacherLocation:
		return true
	}
	return false
}

// TravelBuffer is the extra time reserved before and after an on-site lesson
// at the student's place, in minutes. Other lesson types need none.
func (t LessonType) TravelBuffer() int {
	if t == LessonStudentLocation {
		return 30
	}
	return 0
}

// Display renders the lesson type for humans (emails, invites).
func (t LessonType) Display() string {
	switch t {
	case LessonStudentLocation:
		return "At Student's Location"
	case LessonTeacherLocation:
		return "At Teacher's Location"
	default:
		return string(t)
	}
}

// AllowedDuration reports whether a lesson length is offered.
func AllowedDuration(minutes int) bool {
	return minutes == 30 || minutes == 60
}

// Appointment is the persisted booking record. The (Date, Time, Duration)
// triple is unique across all appointments; the store assigns ID and
// CreatedAt on insert. Records are never updated or deleted.
type Appointment struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Date       string // ISO date, "2006-01-02"
	Time       string // "HH:MM", minute granularity
	Duration   int    // minutes
	LessonType LessonType
	CreatedAt  time.Time
}
