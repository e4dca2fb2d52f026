package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestCalendarWeekStartsMonday(t *testing.T) {
	cal := Calendar{Location: time.UTC, WeekStart: time.Monday}

	// Sunday 2024-03-17 belongs to the week starting Monday 2024-03-11.
	week := cal.Week(time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC))
	require.Equal(t, DateRange{From: date(2024, 3, 11), To: date(2024, 3, 17)}, week)

	week = cal.Week(time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC))
	require.Equal(t, DateRange{From: date(2024, 3, 18), To: date(2024, 3, 24)}, week)
}

func TestCalendarWeekStartsSunday(t *testing.T) {
	cal := Calendar{Location: time.UTC, WeekStart: time.Sunday}

	week := cal.Week(time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC))
	require.Equal(t, DateRange{From: date(2024, 3, 17), To: date(2024, 3, 23)}, week)
}

func TestCalendarMonthHandlesLeapYear(t *testing.T) {
	cal := Calendar{Location: time.UTC, WeekStart: time.Monday}

	month := cal.Month(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, DateRange{From: date(2024, 2, 1), To: date(2024, 2, 29)}, month)

	month = cal.Month(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	require.Equal(t, DateRange{From: date(2023, 12, 1), To: date(2023, 12, 31)}, month)
}

func TestCalendarUsesConfiguredZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	cal := Calendar{Location: tokyo, WeekStart: time.Monday}

	today := cal.Today(time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC))
	require.Equal(t, date(2024, 3, 15), today.From)
}

func TestParseFilter(t *testing.T) {
	require.Equal(t, FilterToday, ParseFilter("Today"))
	require.Equal(t, FilterWeek, ParseFilter("week"))
	require.Equal(t, FilterWeek, ParseFilter("this_week"))
	require.Equal(t, FilterNone, ParseFilter("month"))
	require.Equal(t, FilterNone, ParseFilter(""))

	cal := DefaultCalendar()
	require.Nil(t, cal.Range(FilterNone, time.Now()))
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" sunday ")
	require.NoError(t, err)
	require.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("funday")
	require.Error(t, err)
}
