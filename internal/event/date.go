package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // container images often ship without zoneinfo
)

// DefaultTimezone is the zone Athens, GA listings are published in.
const DefaultTimezone = "America/New_York"

// ErrDateResolution is returned when month names or date text cannot be
// turned into a calendar date.
var ErrDateResolution = errors.New("date resolution failed")

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// CalendarDate is a civil date (year, month, day) with no time-of-day or zone.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// String renders the date as YYYY-MM-DD
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is unset
func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// ParseCalendarDate parses a YYYY-MM-DD string
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrDateResolution, s)
	}
	return CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// LocalDateParts projects an instant onto the civil calendar of loc.
func LocalDateParts(t time.Time, loc *time.Location) CalendarDate {
	local := t.In(loc)
	return CalendarDate{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Resolver converts instants and partial date text into calendar dates
// anchored to a single timezone.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a Resolver for the given location. A nil location
// falls back to DefaultTimezone.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = mustLoad(DefaultTimezone)
	}
	return &Resolver{loc: loc}
}

// LoadResolver creates a Resolver for an IANA zone name
func LoadResolver(name string) (*Resolver, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return &Resolver{loc: loc}, nil
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading embedded timezone %q: %v", name, err))
	}
	return loc
}

// Location returns the resolver's timezone
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Date projects an instant onto the resolver's calendar
func (r *Resolver) Date(t time.Time) CalendarDate {
	return LocalDateParts(t, r.loc)
}

// TodayTomorrow returns the civil dates of now and of now plus 24 hours.
//
// Tomorrow is wall-clock-plus-24h, not the next calendar day. On the
// 25-hour fall-back day, a now shortly after midnight yields tomorrow == today.
func (r *Resolver) TodayTomorrow(now time.Time) (today, tomorrow CalendarDate) {
	return r.Date(now), r.Date(now.Add(24 * time.Hour))
}

// ResolvePartialDate infers the year for a month name and day-of-month taken
// from a listing that omits it. The year is the reference year, bumped by one
// when a January date is read in December.
func (r *Resolver) ResolvePartialDate(monthName string, day int, now time.Time) (CalendarDate, error) {
	month, ok := months[strings.ToLower(strings.TrimSpace(monthName))]
	if !ok {
		return CalendarDate{}, fmt.Errorf("%w: unknown month %q", ErrDateResolution, monthName)
	}

	ref := r.Date(now)
	year := ref.Year
	if month == time.January && ref.Month == time.December {
		year++
	}

	if day < 1 || day > daysIn(year, month) {
		return CalendarDate{}, fmt.Errorf("%w: %s has no day %d", ErrDateResolution, month, day)
	}

	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Layouts accepted for structured-data start dates. Zoned layouts are tried
// first; zoneless ones are read as wall-clock time in the resolver's zone.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
		"2006-01-02 15:04:05Z07:00",
		time.RFC1123Z,
		time.RFC1123,
		time.RFC850,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon Jan 2 2006 15:04:05 GMT-0700",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"January 2, 2006 3:04 PM",
		"January 2, 2006 3:04PM",
		"Jan 2, 2006 3:04 PM",
		"January 2, 2006 15:04",
	}
	dateOnlyLayouts = []string{
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"01/02/2006",
	}
)

// parseInstant parses free-form date text. hasClock is false for date-only
// text, which names a civil date rather than an instant.
func (r *Resolver) parseInstant(text string) (t time.Time, hasClock bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false, fmt.Errorf("%w: empty date text", ErrDateResolution)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, text, r.loc); err == nil {
			return t, true, nil
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, text, r.loc); err == nil {
			return t, false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%w: unparseable date %q", ErrDateResolution, text)
}

// ParseFreeformDate parses ISO-8601 or free-form date text into a calendar
// date in the resolver's timezone.
func (r *Resolver) ParseFreeformDate(text string) (CalendarDate, error) {
	t, _, err := r.parseInstant(text)
	if err != nil {
		return CalendarDate{}, err
	}
	return r.Date(t), nil
}

// ParseFreeformTime formats the instant described by text as "h:mm AM/PM" in
// the resolver's timezone. Unparseable or date-only text yields "".
func (r *Resolver) ParseFreeformTime(text string) string {
	t, hasClock, err := r.parseInstant(text)
	if err != nil || !hasClock {
		return ""
	}
	return t.In(r.loc).Format("3:04 PM")
}
