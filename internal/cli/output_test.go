package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/event"
)

func testPayload() *event.Payload {
	today := event.CalendarDate{Year: 2026, Month: time.March, Day: 14}
	tomorrow := event.CalendarDate{Year: 2026, Month: time.March, Day: 15}
	items := []event.Item{
		{Title: "The Band", URL: "https://flagpole.com/events/the-band/", Time: "9:00 PM", Venue: "Caledonia Lounge", Date: "2026-03-14"},
		{Title: "Early Show", URL: "https://flagpole.com/events/early/", Time: "6:00 PM", Venue: "40 Watt Club", Date: "2026-03-14"},
		{Title: "Mystery Set", URL: "https://flagpole.com/events/mystery/", Time: "", Venue: "", Date: "2026-03-14"},
	}
	return event.NewPayload(items, "https://flagpole.com/events/list/", today, tomorrow, time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC))
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, testPayload(), FormatText, OutputOptions{}); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Today, Saturday, March 14 (3 shows):",
		"9:00 PM   The Band @ Caledonia Lounge",
		"TBA       Mystery Set\n",
		"Tomorrow, Sunday, March 15 (0 shows):",
		"No shows listed.",
		"Total: 3 today, 0 tomorrow",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "https://") {
		t.Error("URLs should only be shown in verbose mode")
	}
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, testPayload(), FormatText, OutputOptions{Verbose: true}); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "https://flagpole.com/events/the-band/") {
		t.Error("verbose output should include event URLs")
	}
	if !strings.Contains(out, "Fetched 2026-03-14T17:00:00Z from https://flagpole.com/events/list/") {
		t.Errorf("verbose output should include fetch details:\n%s", out)
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, testPayload(), FormatJSON, OutputOptions{}); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"fetchedAt", "source", "today", "tomorrow", "events"} {
		if _, ok := got[key]; !ok {
			t.Errorf("JSON output missing %q", key)
		}
	}
	events := got["events"].(map[string]any)
	if tomorrow, ok := events["tomorrow"].([]any); !ok || len(tomorrow) != 0 {
		t.Errorf("events.tomorrow = %v, want empty array", events["tomorrow"])
	}
}

func TestWriteOutput_ICS(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, testPayload(), FormatICS, OutputOptions{}); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	if n := strings.Count(buf.String(), "BEGIN:VEVENT"); n != 3 {
		t.Errorf("VEVENT count = %d, want 3", n)
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, testPayload(), OutputFormat("xml"), OutputOptions{}); err == nil {
		t.Error("WriteOutput() with unknown format expected error, got nil")
	}
}
