package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	From civil.Date
	To   civil.Date
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Calendar evaluates time windows in server calendar terms.
type Calendar struct {
	Location  *time.Location
	WeekStart time.Weekday
}

// DefaultCalendar uses the process local zone and Monday week start.
func DefaultCalendar() Calendar {
	return Calendar{Location: time.Local, WeekStart: time.Monday}
}

// CurrentDate converts now into the calendar's local date.
func (c Calendar) CurrentDate(now time.Time) civil.Date {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now.In(loc))
}

// Today is the single-day window for now.
func (c Calendar) Today(now time.Time) DateRange {
	d := c.CurrentDate(now)
	return DateRange{From: d, To: d}
}

// Week spans the seven days of the week containing now.
func (c Calendar) Week(now time.Time) DateRange {
	d := c.CurrentDate(now)
	weekday := d.In(time.UTC).Weekday()
	offset := (int(weekday) - int(c.WeekStart) + 7) % 7
	start := d.AddDays(-offset)
	return DateRange{From: start, To: start.AddDays(6)}
}

// Month spans the calendar month containing now.
func (c Calendar) Month(now time.Time) DateRange {
	d := c.CurrentDate(now)
	first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	next := civil.DateOf(first.In(time.UTC).AddDate(0, 1, 0))
	return DateRange{From: first, To: next.AddDays(-1)}
}

// Filter narrows a listing to a time window.
type Filter string

const (
	FilterNone  Filter = ""
	FilterToday Filter = "today"
	FilterWeek  Filter = "week"
)

// ParseFilter maps a raw query value to a Filter; unknown values mean no filter.
func ParseFilter(raw string) Filter {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today":
		return FilterToday
	case "week", "this_week", "thisweek":
		return FilterWeek
	default:
		return FilterNone
	}
}

// Range resolves the filter against now; nil means unbounded.
func (c Calendar) Range(f Filter, now time.Time) *DateRange {
	var r DateRange
	switch f {
	case FilterToday:
		r = c.Today(now)
	case FilterWeek:
		r = c.Week(now)
	default:
		return nil
	}
	return &r
}

// ParseWeekday accepts English weekday names, case-insensitive.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}
