package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IncidentDateLayout is the canonical timestamp layout the API expects.
const IncidentDateLayout = "2006-01-02 15:04:05"

// ErrInvalidIncidentDate is returned when the date, time or meridiem cannot
// be combined into a timestamp.
var ErrInvalidIncidentDate = errors.New("payload: invalid incident date")

// MakeIncidentDate combines a YYYY-MM-DD date, a 12-hour H:MM clock value
// and an AM/PM meridiem into the canonical timestamp. PM adds twelve hours
// unless the hour is already 12; 12 AM becomes hour 0.
func MakeIncidentDate(date, clock, meridiem string) (string, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidIncidentDate, date)
	}

	hour, minute, second, err := ParseClock(clock)
	if err != nil {
		return "", err
	}

	switch strings.ToUpper(strings.TrimSpace(meridiem)) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return "", fmt.Errorf("%w: meridiem %q", ErrInvalidIncidentDate, meridiem)
	}

	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, time.UTC)
	return ts.Format(IncidentDateLayout), nil
}

// ParseClock reads a 12-hour H:MM or H:MM:SS value. Hours run 1 to 12;
// minutes and seconds need two digits.
func ParseClock(clock string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("%w: time %q", ErrInvalidIncidentDate, clock)
	}
	values := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 || (i > 0 && len(p) != 2) {
			return 0, 0, 0, fmt.Errorf("%w: time %q", ErrInvalidIncidentDate, clock)
		}
		values[i] = n
	}
	hour, minute, second = values[0], values[1], values[2]
	if hour < 1 || hour > 12 || minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("%w: time %q", ErrInvalidIncidentDate, clock)
	}
	return hour, minute, second, nil
}
