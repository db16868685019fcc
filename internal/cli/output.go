package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/calendar"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// OutputOptions tune text and calendar rendering
type OutputOptions struct {
	Verbose  bool
	Location *time.Location // calendar zone; nil means America/New_York
}

// WriteOutput writes the payload in the specified format
func WriteOutput(w io.Writer, payload *event.Payload, format OutputFormat, opts OutputOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, payload)
	case FormatText:
		return writeText(w, payload, opts.Verbose)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateICS(payload, opts.Location))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the payload in the same shape the API serves
func writeJSON(w io.Writer, payload *event.Payload) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// writeText outputs the payload as human-readable text
func writeText(w io.Writer, payload *event.Payload, verbose bool) error {
	writeDay(w, "Today", payload.Today, payload.Events.Today, verbose)
	fmt.Fprintln(w)
	writeDay(w, "Tomorrow", payload.Tomorrow, payload.Events.Tomorrow, verbose)

	today, tomorrow := payload.Counts()
	fmt.Fprintf(w, "\nTotal: %d today, %d tomorrow\n", today, tomorrow)
	if verbose {
		fmt.Fprintf(w, "Fetched %s from %s\n", payload.FetchedAt.Format(time.RFC3339), payload.Source)
	}
	return nil
}

func writeDay(w io.Writer, label, date string, items []event.Item, verbose bool) {
	heading := date
	if d, err := event.ParseCalendarDate(date); err == nil {
		heading = time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 2")
	}
	fmt.Fprintf(w, "%s, %s (%d %s):\n", label, heading, len(items), plural(len(items), "show", "shows"))

	if len(items) == 0 {
		fmt.Fprintln(w, "  No shows listed.")
		return
	}

	for _, item := range items {
		clock := item.Time
		if clock == "" {
			clock = "TBA"
		}
		if item.Venue != "" {
			fmt.Fprintf(w, "  %-9s %s @ %s\n", clock, item.Title, item.Venue)
		} else {
			fmt.Fprintf(w, "  %-9s %s\n", clock, item.Title)
		}
		if verbose {
			fmt.Fprintf(w, "            %s\n", item.URL)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
