// Package availability computes bookable start times for a day. It is a pure
// function of the booking window, the requested duration, the travel buffer,
// and the already-booked intervals; it never touches storage itself.
package availability

import "fmt"

// Booking is an occupied interval on the day, in minutes since midnight.
// Existing bookings are taken at face value: they are never buffer-expanded,
// only the candidate under test is.
type Booking struct {
	Start    int
	Duration int
}

func (b Booking) end() int { return b.Start + b.Duration }

// Slots returns every candidate start time (minutes since midnight) within
// [open, close) at the given step alignment where a lesson of the requested
// duration fits without touching any booked interval.
//
// The window check uses the raw lesson end only: a candidate whose lesson ends
// by close is in play even if its buffer would spill past close. The buffer
// expands the candidate to [start-buffer, end+buffer), floored at midnight,
// before the overlap test.
func Slots(open, close, step, duration, buffer int, booked []Booking) []int {
	if step <= 0 || duration <= 0 {
		return nil
	}

	var out []int
	for start := open; start < close; start += step {
		end := start + duration
		if end > close {
			continue
		}

		effStart := start - buffer
		if effStart < 0 {
			effStart = 0
		}
		effEnd := end + buffer

		free := true
		for _, b := range booked {
			if Overlaps(effStart, effEnd, b.Start, b.end()) {
				free = false
				break
			}
		}
		if free {
			out = append(out, start)
		}
	}
	return out
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap. Exported so
// the buffer policy can change without reworking the rest of the engine.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// TimeToMinutes parses "HH:MM" into minutes since midnight.
func TimeToMinutes(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

// MinutesToTime renders minutes since midnight as "HH:MM".
func MinutesToTime(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
