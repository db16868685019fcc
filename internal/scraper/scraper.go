package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/event"
	"github.com/pfrederiksen/athens-bands/internal/logger"
)

// SourceFetcher retrieves the raw listing document
type SourceFetcher interface {
	Fetch(ctx context.Context) (*Source, error)
}

// Report describes one build: the payload plus what the parsers saw
type Report struct {
	Payload *event.Payload
	Format  Format
	Parsed  int     // events found before bucketing
	Skipped []error // records or lines dropped during parsing
}

// Builder turns one fetch into a today/tomorrow payload
type Builder struct {
	fetcher  SourceFetcher
	resolver *event.Resolver
	source   string
	clock    func() time.Time
	log      *logger.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithClock sets the clock used to stamp fetchedAt
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) { b.clock = clock }
}

// WithBuilderLogger sets the logger used for skipped-record diagnostics
func WithBuilderLogger(l *logger.Logger) BuilderOption {
	return func(b *Builder) { b.log = l }
}

// NewBuilder creates a Builder. sourceURL is recorded in every payload.
func NewBuilder(fetcher SourceFetcher, resolver *event.Resolver, sourceURL string, opts ...BuilderOption) *Builder {
	b := &Builder{
		fetcher:  fetcher,
		resolver: resolver,
		source:   sourceURL,
		clock:    time.Now,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build fetches, parses and buckets the listing as of now. A fetch failure
// fails the whole build; no partial payload is returned.
func (b *Builder) Build(ctx context.Context, now time.Time) (*event.Payload, error) {
	report, err := b.BuildReport(ctx, now)
	if err != nil {
		return nil, err
	}
	return report.Payload, nil
}

// BuildReport is Build with parse statistics
func (b *Builder) BuildReport(ctx context.Context, now time.Time) (*Report, error) {
	today, tomorrow := b.resolver.TodayTomorrow(now)

	src, err := b.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	items, skipped, err := Parse(src, b.resolver, now)
	if err != nil {
		return nil, err
	}

	for _, s := range skipped {
		b.log.Debug("Skipped source record", logger.Fields{"format": string(src.Format), "reason": s.Error()})
	}

	return &Report{
		Payload: event.NewPayload(items, b.source, today, tomorrow, b.clock()),
		Format:  src.Format,
		Parsed:  len(items),
		Skipped: skipped,
	}, nil
}

// Parse dispatches a fetched document to the parser for its format
func Parse(src *Source, resolver *event.Resolver, now time.Time) ([]event.Item, []error, error) {
	switch src.Format {
	case FormatMarkdown:
		items, skipped := ParseMarkdown(src.Body, resolver, now)
		return items, skipped, nil
	case FormatHTML:
		items, skipped := ParseStructuredData(src.Body, resolver)
		return items, skipped, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnexpectedFormat, src.Format)
	}
}
