package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time-of-day value within the daily schedule.
type ClockTime struct {
	Hour   int
	Minute int
}

// Label renders the slot the way clients display it ("8:00", "14:00"; hours
// are not zero-padded).
func (c ClockTime) Label() string {
	return fmt.Sprintf("%d:%02d", c.Hour, c.Minute)
}

// Schedule is the ordered list of bookable slots in a day.
type Schedule []ClockTime

// DefaultSchedule is hourly 8:00 through 19:00 inclusive, 12 slots.
var DefaultSchedule = Schedule{
	{8, 0}, {9, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0},
	{14, 0}, {15, 0}, {16, 0}, {17, 0}, {18, 0}, {19, 0},
}

// ParseSchedule parses a comma-separated list of H:MM values, e.g.
// "8:00,9:00,14:30". An empty input yields DefaultSchedule.
func ParseSchedule(raw string) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSchedule, nil
	}
	var s Schedule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hh, mm, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid slot %q", part)
		}
		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid slot %q", part)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid slot %q", part)
		}
		s = append(s, ClockTime{Hour: hour, Minute: minute})
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("schedule has no slots")
	}
	return s, nil
}

// Slot is one schedule entry resolved against a concrete day.
type Slot struct {
	Label     string
	Value     time.Time
	Available bool
}

// HourStart truncates t to the beginning of its hour, keeping the location.
func HourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// DayBounds returns the half-open interval [startOfDay, startOfNextDay) for the
// day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// Slots resolves the schedule against a day. A slot is available iff its
// timestamp is strictly after now and no booked time falls on the same
// hour:minute. The result always has one entry per schedule slot, in schedule
// order.
func (s Schedule) Slots(day time.Time, booked []time.Time, now time.Time) []Slot {
	slots := make([]Slot, 0, len(s))
	for _, ct := range s {
		value := time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, day.Location())
		slots = append(slots, Slot{
			Label:     ct.Label(),
			Value:     value,
			Available: value.After(now) && !bookedAt(booked, day.Location(), ct),
		})
	}
	return slots
}

func bookedAt(booked []time.Time, loc *time.Location, ct ClockTime) bool {
	for _, b := range booked {
		local := b.In(loc)
		if local.Hour() == ct.Hour && local.Minute() == ct.Minute {
			return true
		}
	}
	return false
}
