package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/event"
	"github.com/pfrederiksen/athens-bands/internal/logger"
)

type fakeFetcher struct {
	src   *Source
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*Source, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

func fixtureSource(t *testing.T, name string, format Format) *Source {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return &Source{Format: format, Body: string(data), URL: "https://example.com/" + name}
}

func newTestBuilder(t *testing.T, fetcher SourceFetcher, clock time.Time) *Builder {
	t.Helper()
	return NewBuilder(fetcher, testResolver(t), "https://flagpole.com/events/list/",
		WithClock(func() time.Time { return clock }),
		WithBuilderLogger(logger.Discard()),
	)
}

func titles(items []event.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name         string
		fixture      string
		format       Format
		wantToday    []string
		wantTomorrow []string
		wantSkipped  int
	}{
		{
			name:         "markdown fallback",
			fixture:      "events.md",
			format:       FormatMarkdown,
			wantToday:    []string{"The Band", "Second Act", "Still Saturday"},
			wantTomorrow: []string{"Sunday Show"},
			wantSkipped:  2,
		},
		{
			name:         "structured data",
			fixture:      "events.html",
			format:       FormatHTML,
			wantToday:    []string{"The Band", "Late Night"},
			wantTomorrow: []string{"Drag Brunch & Bingo", "Address Venue"},
			wantSkipped:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{src: fixtureSource(t, tt.fixture, tt.format)}
			builder := newTestBuilder(t, fetcher, saturdayNoon)

			report, err := builder.BuildReport(context.Background(), saturdayNoon)
			if err != nil {
				t.Fatalf("BuildReport() error = %v", err)
			}

			p := report.Payload
			if p.Today != "2026-03-14" || p.Tomorrow != "2026-03-15" {
				t.Errorf("dates = %s/%s, want 2026-03-14/2026-03-15", p.Today, p.Tomorrow)
			}
			if p.Source != "https://flagpole.com/events/list/" {
				t.Errorf("Source = %q", p.Source)
			}
			if !p.FetchedAt.Equal(saturdayNoon) {
				t.Errorf("FetchedAt = %v, want %v", p.FetchedAt, saturdayNoon)
			}
			if got := titles(p.Events.Today); !equalStrings(got, tt.wantToday) {
				t.Errorf("today = %v, want %v", got, tt.wantToday)
			}
			if got := titles(p.Events.Tomorrow); !equalStrings(got, tt.wantTomorrow) {
				t.Errorf("tomorrow = %v, want %v", got, tt.wantTomorrow)
			}
			if report.Format != tt.format {
				t.Errorf("Format = %q, want %q", report.Format, tt.format)
			}
			if len(report.Skipped) != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", len(report.Skipped), tt.wantSkipped)
			}

			for _, item := range p.Events.Today {
				if item.Date != p.Today {
					t.Errorf("today bucket holds %s dated %s", item.Title, item.Date)
				}
			}
			for _, item := range p.Events.Tomorrow {
				if item.Date != p.Tomorrow {
					t.Errorf("tomorrow bucket holds %s dated %s", item.Title, item.Date)
				}
			}
		})
	}
}

func TestBuild_FetchFailure(t *testing.T) {
	fetchErr := &HTTPStatusError{URL: "https://r.jina.ai/x", StatusCode: 502}
	builder := newTestBuilder(t, &fakeFetcher{err: fetchErr}, saturdayNoon)

	payload, err := builder.Build(context.Background(), saturdayNoon)
	if err == nil {
		t.Fatal("Build() expected error, got nil")
	}
	if payload != nil {
		t.Errorf("Build() returned a payload alongside an error: %+v", payload)
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Errorf("error = %v, want wrapped *HTTPStatusError", err)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	src := fixtureSource(t, "events.html", FormatHTML)

	first, err := newTestBuilder(t, &fakeFetcher{src: src}, saturdayNoon).Build(context.Background(), saturdayNoon)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := newTestBuilder(t, &fakeFetcher{src: src}, saturdayNoon.Add(time.Minute)).Build(context.Background(), saturdayNoon)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if first.FetchedAt.Equal(second.FetchedAt) {
		t.Error("fetchedAt should reflect each run's clock")
	}

	first.FetchedAt, second.FetchedAt = time.Time{}, time.Time{}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("payloads differ beyond fetchedAt:\n%s\n%s", a, b)
	}
}

func TestBuild_EmptyListing(t *testing.T) {
	fetcher := &fakeFetcher{src: &Source{Format: FormatHTML, Body: "<html><body>No events</body></html>"}}

	payload, err := newTestBuilder(t, fetcher, saturdayNoon).Build(context.Background(), saturdayNoon)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	data, err := json.Marshal(payload.Events)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"today":[],"tomorrow":[]}` {
		t.Errorf("events = %s, want empty arrays", data)
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, _, err := Parse(&Source{Format: "pdf"}, testResolver(t), saturdayNoon)
	if !errors.Is(err, ErrUnexpectedFormat) {
		t.Errorf("Parse() error = %v, want ErrUnexpectedFormat", err)
	}
}
