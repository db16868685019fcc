// Package purge invalidates CDN cache entries after a new payload is stored.
package purge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/sling"

	"github.com/pfrederiksen/athens-bands/internal/config"
)

// Purger invalidates cached responses carrying any of the given tags
type Purger interface {
	Purge(ctx context.Context, tags []string) error
}

// Noop satisfies Purger when no CDN is configured
type Noop struct{}

// Purge does nothing
func (Noop) Purge(context.Context, []string) error { return nil }

// NetlifyPurger calls the Netlify purge API
type NetlifyPurger struct {
	base   *sling.Sling
	siteID string
}

type purgeRequest struct {
	SiteID    string   `json:"site_id"`
	CacheTags []string `json:"cache_tags"`
}

// APIError is a non-2xx answer from the purge API
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("purge request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("purge request failed with status %d: %s", e.StatusCode, e.Message)
}

// NewNetlifyPurger creates a purger for one site. A nil client uses a 10s
// timeout client.
func NewNetlifyPurger(endpoint, siteID, token string, client *http.Client) *NetlifyPurger {
	if endpoint == "" {
		endpoint = config.DefaultPurgeEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NetlifyPurger{
		base: sling.New().Client(client).Post(endpoint).
			Set("Authorization", "Bearer "+token).
			Set("User-Agent", "athens-bands"),
		siteID: siteID,
	}
}

// New returns the purger described by cfg, or Noop when purging is disabled
func New(cfg config.PurgeConfig) Purger {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewNetlifyPurger(cfg.Endpoint, cfg.SiteID, cfg.Token, nil)
}

// Purge invalidates every response tagged with one of tags
func (p *NetlifyPurger) Purge(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	req, err := p.base.New().BodyJSON(purgeRequest{SiteID: p.siteID, CacheTags: tags}).Request()
	if err != nil {
		return fmt.Errorf("building purge request: %w", err)
	}

	apiErr := &APIError{}
	resp, err := p.base.Do(req.WithContext(ctx), nil, apiErr)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		return fmt.Errorf("purging cache tags: %w", err)
	}
	return nil
}
