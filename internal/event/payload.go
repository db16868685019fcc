package event

import (
	"time"
)

// Buckets holds the events for each day of a payload, in discovery order
type Buckets struct {
	Today    []Item `json:"today"`
	Tomorrow []Item `json:"tomorrow"`
}

// Payload is the complete result of one ingestion run
type Payload struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Source    string    `json:"source"`
	Today     string    `json:"today"`
	Tomorrow  string    `json:"tomorrow"`
	Events    Buckets   `json:"events"`
}

// Counts returns the number of events in each bucket
func (p *Payload) Counts() (today, tomorrow int) {
	return len(p.Events.Today), len(p.Events.Tomorrow)
}

// Partition splits items into today and tomorrow buckets, preserving relative
// order. Items dated neither day, and invalid items, are dropped.
func Partition(items []Item, today, tomorrow CalendarDate) Buckets {
	buckets := Buckets{
		Today:    make([]Item, 0),
		Tomorrow: make([]Item, 0),
	}

	todayKey, tomorrowKey := today.String(), tomorrow.String()
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		switch item.Date {
		case todayKey:
			buckets.Today = append(buckets.Today, item)
		case tomorrowKey:
			buckets.Tomorrow = append(buckets.Tomorrow, item)
		}
	}

	return buckets
}

// NewPayload assembles a payload from a full item list
func NewPayload(items []Item, source string, today, tomorrow CalendarDate, fetchedAt time.Time) *Payload {
	return &Payload{
		FetchedAt: fetchedAt.UTC(),
		Source:    source,
		Today:     today.String(),
		Tomorrow:  tomorrow.String(),
		Events:    Partition(items, today, tomorrow),
	}
}
