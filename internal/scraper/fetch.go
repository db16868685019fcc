package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/logger"
)

// Format identifies how a fetched body must be parsed
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

const (
	UserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	maxBodyBytes = 10 << 20
)

// challengeMarkers are substrings of Cloudflare interstitial pages, which are
// served with a 200 status but contain no listings.
var challengeMarkers = []string{
	"Just a moment",
	"cf-chl",
	"Enable JavaScript and cookies",
}

// Source is a fetched document tagged with its format
type Source struct {
	Format Format
	Body   string
	URL    string
}

// Fetcher retrieves the listing page, falling back to the markdown proxy
type Fetcher struct {
	client  *http.Client
	cfg     config.SourceConfig
	log     *logger.Logger
	maxBody int64
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger used for fallback diagnostics
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// NewFetcher creates a Fetcher from explicit source configuration
func NewFetcher(cfg config.SourceConfig, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultTimeout
	}
	f := &Fetcher{
		// Per-attempt deadlines come from the request context.
		client:  &http.Client{},
		cfg:     cfg,
		log:     logger.Default(),
		maxBody: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BrowserHeaders returns the header set used for both attempts. cookie is
// sent only when non-empty.
func BrowserHeaders(cookie string) http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Priority", "u=0, i")
	h.Set("Sec-Ch-Ua", `"Not(A:Brand";v="8", "Chromium";v="144", "Google Chrome";v="144"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("User-Agent", UserAgent)
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
	return h
}

// IsChallenge reports whether body is an anti-bot interstitial
func IsChallenge(body string) bool {
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// Fetch returns the primary HTML when it is usable, otherwise the markdown
// rendering from the fallback URL. Only a failed fallback is an error.
func (f *Fetcher) Fetch(ctx context.Context) (*Source, error) {
	status, body, err := f.get(ctx, f.cfg.PrimaryURL)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetching page: %w", ctx.Err())
		}
		f.log.Warn("Primary fetch failed, using fallback", logger.Fields{"url": f.cfg.PrimaryURL, "error": err.Error()})
	case status < 200 || status > 299:
		f.log.Warn("Primary fetch returned non-2xx, using fallback", logger.Fields{"url": f.cfg.PrimaryURL, "status": status})
	case IsChallenge(body):
		f.log.Warn("Primary fetch returned a bot challenge, using fallback", logger.Fields{"url": f.cfg.PrimaryURL})
	default:
		return &Source{Format: FormatHTML, Body: body, URL: f.cfg.PrimaryURL}, nil
	}

	status, body, err = f.get(ctx, f.cfg.FallbackURL)
	if err != nil {
		return nil, fmt.Errorf("fetching fallback: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, &HTTPStatusError{URL: f.cfg.FallbackURL, StatusCode: status}
	}

	return &Source{Format: FormatMarkdown, Body: body, URL: f.cfg.FallbackURL}, nil
}

// FetchMarkdown fetches the source and requires the markdown rendering
func (f *Fetcher) FetchMarkdown(ctx context.Context) (string, error) {
	src, err := f.Fetch(ctx)
	if err != nil {
		return "", err
	}
	if src.Format != FormatMarkdown {
		return "", fmt.Errorf("%w: expected markdown response but received %s", ErrUnexpectedFormat, src.Format)
	}
	return src.Body, nil
}

// get performs one attempt bounded by the configured timeout
func (f *Fetcher) get(ctx context.Context, url string) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header = BrowserHeaders(f.cfg.Cookie)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", f.attemptError(ctx, attemptCtx, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return 0, "", f.attemptError(ctx, attemptCtx, url, err)
	}
	if int64(len(data)) > f.maxBody {
		return 0, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, f.maxBody)
	}

	return resp.StatusCode, string(data), nil
}

// attemptError distinguishes an attempt that ran out of time from one the
// caller cancelled.
func (f *Fetcher) attemptError(parent, attempt context.Context, url string, err error) error {
	if parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", ErrFetchTimeout, f.cfg.Timeout.Round(time.Millisecond), url)
	}
	return fmt.Errorf("fetching %s: %w", url, err)
}
