package lesson

import (
	"time"

	"github.com/pkg/errors"
)

// RecurrencePattern is the cadence of a lesson series.
type RecurrencePattern string

const (
	Daily  RecurrencePattern = "daily"
	Weekly RecurrencePattern = "weekly"
)

func (p RecurrencePattern) stepDays() (int, bool) {
	switch p {
	case Daily:
		return 1, true
	case Weekly:
		return 7, true
	}
	return 0, false
}

// SeriesParams describes a recurring series in the wall-clock time of Timezone.
type SeriesParams struct {
	StartDate        string // YYYY-MM-DD
	StartTime        string // HH:MM
	NumberOfSessions int
	Pattern          RecurrencePattern
	Timezone         string
}

// CalculateDateSeries returns NumberOfSessions UTC instants, in ascending order.
// Each occurrence is built directly from its local calendar date and time of day,
// so consecutive occurrences keep the same wall-clock time across DST changes.
func CalculateDateSeries(p SeriesParams) ([]time.Time, error) {
	if p.NumberOfSessions < 0 {
		return nil, errors.Errorf("invalid number of sessions: %d", p.NumberOfSessions)
	}
	step, ok := p.Pattern.stepDays()
	if !ok {
		return nil, errors.Errorf("unknown recurrence pattern %q", p.Pattern)
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", p.Timezone)
	}
	day, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return nil, errors.Wrap(err, "parsing start date")
	}
	tod, err := time.Parse("15:04", p.StartTime)
	if err != nil {
		return nil, errors.Wrap(err, "parsing start time")
	}

	slots := make([]time.Time, 0, p.NumberOfSessions)
	for i := 0; i < p.NumberOfSessions; i++ {
		local := time.Date(day.Year(), day.Month(), day.Day()+step*i, tod.Hour(), tod.Minute(), 0, 0, loc)
		slots = append(slots, local.UTC())
	}
	return slots, nil
}

// ParseDates parses an explicit list of RFC3339 instants into UTC.
func ParseDates(dates []string) ([]time.Time, error) {
	slots := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing date %q", d)
		}
		slots = append(slots, t.UTC())
	}
	return slots, nil
}

// resolveSlots returns the request's explicit dates if any, the computed series otherwise.
func resolveSlots(nr NewRecurringLessons) ([]time.Time, error) {
	if len(nr.Dates) > 0 {
		return ParseDates(nr.Dates)
	}
	var count int
	if nr.NumberOfSessions != nil {
		count = *nr.NumberOfSessions
	}
	return CalculateDateSeries(SeriesParams{
		StartDate:        nr.StartDate,
		StartTime:        nr.StartTime,
		NumberOfSessions: count,
		Pattern:          RecurrencePattern(nr.RecurrencePattern),
		Timezone:         nr.Timezone,
	})
}
