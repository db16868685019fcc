package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/logger"
)

// TestIntegration_ChallengeToMarkdown drives the full fetch, parse and bucket
// path against a primary that serves a challenge page.
func TestIntegration_ChallengeToMarkdown(t *testing.T) {
	markdown, err := os.ReadFile("../../testdata/fixtures/events.md")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	primary := httptest.NewServer(serve(http.StatusOK, challengePage))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(markdown)
	}))
	defer fallback.Close()

	fetcher := NewFetcher(config.SourceConfig{
		PrimaryURL:  primary.URL,
		FallbackURL: fallback.URL,
		Timeout:     time.Second,
	}, WithLogger(logger.Discard()))
	builder := NewBuilder(fetcher, testResolver(t), primary.URL, WithBuilderLogger(logger.Discard()))

	report, err := builder.BuildReport(context.Background(), saturdayNoon)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if report.Format != FormatMarkdown {
		t.Errorf("Format = %q, want markdown", report.Format)
	}
	today, tomorrow := report.Payload.Counts()
	if today != 3 || tomorrow != 1 {
		t.Errorf("counts = %d/%d, want 3/1", today, tomorrow)
	}
}

func TestIntegration_StructuredData(t *testing.T) {
	html, err := os.ReadFile("../../testdata/fixtures/events.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = w.Write(html)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("fallback should not be called when the primary page is usable")
	}))
	defer fallback.Close()

	fetcher := NewFetcher(config.SourceConfig{
		PrimaryURL:  primary.URL,
		FallbackURL: fallback.URL,
		Timeout:     time.Second,
	}, WithLogger(logger.Discard()))
	builder := NewBuilder(fetcher, testResolver(t), primary.URL, WithBuilderLogger(logger.Discard()))

	payload, err := builder.Build(context.Background(), saturdayNoon)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	today, tomorrow := payload.Counts()
	if today != 2 || tomorrow != 2 {
		t.Errorf("counts = %d/%d, want 2/2", today, tomorrow)
	}
}
