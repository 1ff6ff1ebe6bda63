package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emrecanisildak/diet/internal/domain"
)

// Layouts accepted for "once" definitions besides RFC 3339. They carry no
// offset and are read as UTC.
var onceLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Offset-carrying layouts: full RFC 3339 and its minute-precision form.
var onceZonedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// ParseOnce parses the absolute time of a "once" definition.
func ParseOnce(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range onceZonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range onceLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid once time %q: want RFC 3339 or YYYY-MM-DDTHH:MM[:SS]", value)
}

// ParseDaily parses a strict 24-hour "HH:MM" time of day.
func ParseDaily(value string) (hour, minute int, err error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, 0, fmt.Errorf("invalid daily time %q: want HH:MM", value)
	}
	hour, herr := strconv.Atoi(value[:2])
	minute, merr := strconv.Atoi(value[3:])
	if herr != nil || merr != nil || value[0] == '+' || value[0] == '-' || value[3] == '+' || value[3] == '-' {
		return 0, 0, fmt.Errorf("invalid daily time %q: want HH:MM", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid daily time %q: out of range", value)
	}
	return hour, minute, nil
}

// Validate checks that value is well-formed for kind.
func Validate(kind domain.ScheduleKind, value string) error {
	switch kind {
	case domain.ScheduleOnce:
		_, err := ParseOnce(value)
		return err
	case domain.ScheduleDaily:
		_, _, err := ParseDaily(value)
		return err
	default:
		return fmt.Errorf("unknown schedule type %q", kind)
	}
}

// IsDue reports whether def should fire at now. Calendar days are taken in
// loc. An error means the definition is malformed and never fires.
func IsDue(def *domain.ScheduledNotification, now time.Time, loc *time.Location) (bool, error) {
	if !def.Active {
		return false, nil
	}

	switch def.Kind {
	case domain.ScheduleOnce:
		at, err := ParseOnce(def.ScheduledTime)
		if err != nil {
			return false, err
		}
		return !at.After(now), nil

	case domain.ScheduleDaily:
		hour, minute, err := ParseDaily(def.ScheduledTime)
		if err != nil {
			return false, err
		}
		local := now.In(loc)
		y, m, d := local.Date()
		occurrence := time.Date(y, m, d, hour, minute, 0, 0, loc)
		if local.Before(occurrence) {
			return false, nil
		}
		if def.LastFiredAt == nil {
			return true, nil
		}
		// Fired on an earlier calendar day; a later one means the clock
		// went backwards and is treated as already fired.
		ly, lm, ld := def.LastFiredAt.In(loc).Date()
		lastDay := time.Date(ly, lm, ld, 0, 0, 0, 0, loc)
		today := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return lastDay.Before(today), nil

	default:
		return false, fmt.Errorf("unknown schedule type %q", def.Kind)
	}
}
