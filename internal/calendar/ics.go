// Package calendar renders stored payloads as iCalendar feeds.
package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/athens-bands/internal/event"
)

const (
	productID = "-//athens-bands//athens-bands//EN"
	uidDomain = "athens-bands"

	// EventLength is the assumed length of a show with a start time
	EventLength = 2 * time.Hour
)

// GenerateICS renders every item of the payload, today first. Items with a
// clock time become timed events in loc; the rest are all-day events.
// DTSTAMP is the payload's fetch time, so identical payloads render
// identically.
func GenerateICS(payload *event.Payload, loc *time.Location) string {
	if loc == nil {
		loc = event.NewResolver(nil).Location()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("Athens Live Music")
	cal.SetXWRTimezone(loc.String())

	items := make([]event.Item, 0, len(payload.Events.Today)+len(payload.Events.Tomorrow))
	items = append(items, payload.Events.Today...)
	items = append(items, payload.Events.Tomorrow...)

	for _, item := range items {
		date, err := event.ParseCalendarDate(item.Date)
		if err != nil {
			continue
		}

		ve := cal.AddEvent(item.Key() + "@" + uidDomain)
		ve.SetDtStampTime(payload.FetchedAt)
		ve.SetSummary(item.Title)
		ve.SetURL(item.URL)
		ve.SetStatus(ical.ObjectStatusConfirmed)
		if item.Venue != "" {
			ve.SetLocation(item.Venue)
		}
		ve.SetDescription(description(item))

		if start, ok := StartTime(date, item.Time, loc); ok {
			ve.SetStartAt(start)
			ve.SetEndAt(start.Add(EventLength))
			continue
		}

		day := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, time.UTC)
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}

	return cal.Serialize(ical.WithNewLineWindows)
}

// StartTime combines a calendar date with display time text such as
// "9:00 PM" or "8:00 PM - 11:00 PM". ok is false when the text has no
// leading clock time.
func StartTime(date event.CalendarDate, text string, loc *time.Location) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, " - "); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return time.Time{}, false
	}

	clock, err := time.Parse("3:04 PM", strings.ToUpper(text))
	if err != nil {
		return time.Time{}, false
	}

	return time.Date(date.Year, date.Month, date.Day, clock.Hour(), clock.Minute(), 0, 0, loc), true
}

func description(item event.Item) string {
	var b strings.Builder
	if item.Time != "" {
		b.WriteString(item.Time)
	}
	if item.Venue != "" {
		if b.Len() > 0 {
			b.WriteString(" at ")
		}
		b.WriteString(item.Venue)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(item.URL)
	return b.String()
}
