package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/event"
)

var (
	// "Friday, March 14 @ 9:00 PM [EST]"
	dateLinePattern = regexp.MustCompile(`^[A-Za-z]+,\s+([A-Za-z]+)\s+(\d{1,2})\s+@\s+(.+)$`)

	// "### [The Band](https://example.com/x "optional title")"
	headingLinkPattern = regexp.MustCompile(`^### \[(.+?)\]\(([^\s)]+)[^)]*\)`)
)

// chromePrefixes mark page furniture that sits between a heading and its venue
var chromePrefixes = []string{
	"**",
	"[",
	"###",
	"Event Category",
	"Events Search",
}

type scanState int

const (
	noDateSeen scanState = iota
	dateEstablished
)

// markdownScanner carries the running date and time across lines. Headings
// emit events only once a date line has been seen.
type markdownScanner struct {
	resolver *event.Resolver
	now      time.Time

	state scanState
	date  event.CalendarDate
	time  string
}

// onDateLine moves to dateEstablished. An unresolvable date leaves the
// state untouched.
func (s *markdownScanner) onDateLine(monthName, dayText, timeText string) error {
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return fmt.Errorf("%w: day %q", event.ErrDateResolution, dayText)
	}

	date, err := s.resolver.ResolvePartialDate(monthName, day, s.now)
	if err != nil {
		return err
	}

	s.state = dateEstablished
	s.date = date
	s.time = displayTime(timeText)
	return nil
}

// onHeading returns the event for a heading, or false before any date line.
func (s *markdownScanner) onHeading(title, url, venue string) (event.Item, bool) {
	if s.state == noDateSeen {
		return event.Item{}, false
	}
	return event.Item{
		Title: title,
		URL:   url,
		Time:  s.time,
		Venue: venue,
		Date:  s.date.String(),
	}, true
}

// displayTime drops a trailing bracketed annotation such as "[EST]"
func displayTime(text string) string {
	if i := strings.Index(text, "["); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// ParseMarkdown extracts events from the markdown rendering of the listing.
// Lines whose dates cannot be resolved are returned as skipped errors; the
// scan always continues.
func ParseMarkdown(body string, resolver *event.Resolver, now time.Time) ([]event.Item, []error) {
	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	scanner := &markdownScanner{resolver: resolver, now: now}
	items := make([]event.Item, 0)
	var skipped []error

	for i, line := range lines {
		if line == "" {
			continue
		}

		if m := dateLinePattern.FindStringSubmatch(line); m != nil {
			if err := scanner.onDateLine(m[1], m[2], m[3]); err != nil {
				skipped = append(skipped, fmt.Errorf("line %d: %w", i+1, err))
			}
			continue
		}

		m := headingLinkPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		title := strings.TrimSpace(m[1])
		url := strings.TrimSpace(m[2])
		if item, ok := scanner.onHeading(title, url, findVenue(lines, i+1)); ok {
			items = append(items, item)
		}
	}

	return items, skipped
}

// findVenue returns the first line at or after start that is not blank or
// page chrome, or "" if the document ends first.
func findVenue(lines []string, start int) string {
	for _, line := range lines[start:] {
		if line == "" || isChrome(line) {
			continue
		}
		return line
	}
	return ""
}

func isChrome(line string) bool {
	for _, prefix := range chromePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
