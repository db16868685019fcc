package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Item represents a single show listed on the source calendar
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Time  string `json:"time"`  // human-readable, e.g. "9:00 PM"; may be empty
	Venue string `json:"venue"` // may be empty
	Date  string `json:"date"`  // YYYY-MM-DD in the resolver's timezone
}

// Valid reports whether the item carries the fields required for inclusion.
// Venue and time may be empty.
func (i Item) Valid() bool {
	return strings.TrimSpace(i.Title) != "" &&
		strings.TrimSpace(i.URL) != "" &&
		strings.TrimSpace(i.Date) != ""
}

// Key returns a deterministic identifier for the item based on its date and URL
func (i Item) Key() string {
	h := sha1.New()
	h.Write([]byte(i.Date + "|" + i.URL))
	return fmt.Sprintf("%x", h.Sum(nil))
}
