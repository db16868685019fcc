package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

const jsonLDType = "application/ld+json"

// ldNode is one JSON-LD record. Fields stay raw so that each can fall through
// on its own when it has an unexpected shape.
type ldNode struct {
	Type      json.RawMessage `json:"@type"`
	ID        json.RawMessage `json:"@id"`
	Graph     json.RawMessage `json:"@graph"`
	Name      json.RawMessage `json:"name"`
	URL       json.RawMessage `json:"url"`
	StartDate json.RawMessage `json:"startDate"`
	Location  json.RawMessage `json:"location"`
}

// ldPlace covers both the location object and its nested address
type ldPlace struct {
	Name    json.RawMessage `json:"name"`
	Address json.RawMessage `json:"address"`
}

// jsonKind returns the first significant byte of a JSON value: '{', '[',
// '"', or 0 when absent.
func jsonKind(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// stringValue returns raw as a string only when it is a JSON string
func stringValue(raw json.RawMessage) (string, bool) {
	if jsonKind(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeBlock normalizes a script body into a flat candidate list.
//
//	[ {...}, {...} ]          array of records, non-objects skipped
//	{ "@graph": [ ... ] }     the graph's records
//	{ ... }                   the record itself
func decodeBlock(text string) ([]ldNode, error) {
	data := []byte(strings.TrimSpace(text))
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrParseFailure)
	}

	switch jsonKind(data) {
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return decodeRecords(raws), nil

	case '{':
		var node ldNode
		if err := json.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		if jsonKind(node.Graph) == '[' {
			var raws []json.RawMessage
			if err := json.Unmarshal(node.Graph, &raws); err != nil {
				return nil, fmt.Errorf("%w: @graph: %v", ErrParseFailure, err)
			}
			return decodeRecords(raws), nil
		}
		return []ldNode{node}, nil

	default:
		return nil, fmt.Errorf("%w: top-level value is neither a record nor an array", ErrParseFailure)
	}
}

func decodeRecords(raws []json.RawMessage) []ldNode {
	nodes := make([]ldNode, 0, len(raws))
	for _, raw := range raws {
		if jsonKind(raw) != '{' {
			continue
		}
		var node ldNode
		if err := json.Unmarshal(raw, &node); err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// isEvent reports whether any @type value contains "Event" (MusicEvent,
// Event, ComedyEvent, ...). @type may be a string or a list.
func (n ldNode) isEvent() bool {
	if s, ok := stringValue(n.Type); ok {
		return strings.Contains(s, "Event")
	}
	if jsonKind(n.Type) != '[' {
		return false
	}
	var types []json.RawMessage
	if err := json.Unmarshal(n.Type, &types); err != nil {
		return false
	}
	for _, raw := range types {
		if s, ok := stringValue(raw); ok && strings.Contains(s, "Event") {
			return true
		}
	}
	return false
}

// link prefers url and falls back to @id only when url is not a string. An
// empty url string yields "" and the record is dropped.
func (n ldNode) link() string {
	if s, ok := stringValue(n.URL); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := stringValue(n.ID); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// venue resolves location as a plain string, then location.name, then
// location.address.name. The first matching form wins.
func (n ldNode) venue() string {
	switch jsonKind(n.Location) {
	case '"':
		s, _ := stringValue(n.Location)
		return cleanText(s)
	case '{':
		var place ldPlace
		if err := json.Unmarshal(n.Location, &place); err != nil {
			return ""
		}
		if s, ok := stringValue(place.Name); ok {
			return cleanText(s)
		}
		if jsonKind(place.Address) == '{' {
			var address ldPlace
			if err := json.Unmarshal(place.Address, &address); err == nil {
				if s, ok := stringValue(address.Name); ok {
					return cleanText(s)
				}
			}
		}
	}
	return ""
}

// item converts an event record, or explains why it was dropped
func (n ldNode) item(resolver *event.Resolver) (event.Item, error) {
	name, _ := stringValue(n.Name)
	title := cleanText(name)
	if title == "" {
		return event.Item{}, fmt.Errorf("%w: event record has no name", ErrParseFailure)
	}

	url := n.link()
	if url == "" {
		return event.Item{}, fmt.Errorf("%w: event %q has no url or @id", ErrParseFailure, title)
	}

	startDate, ok := stringValue(n.StartDate)
	if !ok || strings.TrimSpace(startDate) == "" {
		return event.Item{}, fmt.Errorf("%w: event %q has no startDate", event.ErrDateResolution, title)
	}
	date, err := resolver.ParseFreeformDate(startDate)
	if err != nil {
		return event.Item{}, fmt.Errorf("event %q: %w", title, err)
	}

	return event.Item{
		Title: title,
		URL:   url,
		Time:  resolver.ParseFreeformTime(startDate),
		Venue: n.venue(),
		Date:  date.String(),
	}, nil
}

// cleanText decodes HTML entities left in by WordPress and trims
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// ParseStructuredData extracts events from the JSON-LD blocks of an HTML
// document, in block order and then record order. Malformed blocks and
// incomplete records are returned as skipped errors.
func ParseStructuredData(document string, resolver *event.Resolver) ([]event.Item, []error) {
	items := make([]event.Item, 0)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return items, []error{fmt.Errorf("%w: parsing HTML: %v", ErrParseFailure, err)}
	}

	var skipped []error
	block := 0
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		scriptType, _ := sel.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(scriptType), jsonLDType) {
			return
		}
		block++

		nodes, err := decodeBlock(sel.Text())
		if err != nil {
			skipped = append(skipped, fmt.Errorf("script block %d: %w", block, err))
			return
		}

		for _, node := range nodes {
			if !node.isEvent() {
				continue
			}
			item, err := node.item(resolver)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("script block %d: %w", block, err))
				continue
			}
			items = append(items, item)
		}
	})

	return items, skipped
}
