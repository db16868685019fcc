package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/calendar"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

// SortOrder represents the available sorting options within a day
type SortOrder string

const (
	SortBySource SortOrder = "source"
	SortByTime   SortOrder = "time"
	SortByVenue  SortOrder = "venue"
	SortByTitle  SortOrder = "title"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case "":
		return SortBySource, nil
	case SortBySource, SortByTime, SortByVenue, SortByTitle:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'source', 'time', 'venue' or 'title')", s)
	}
}

// sortEvents sorts one day's items in place. SortBySource keeps listing order.
func sortEvents(items []event.Item, order SortOrder) {
	switch order {
	case SortByTime:
		sort.SliceStable(items, func(i, j int) bool {
			return compareByTime(items[i], items[j])
		})
	case SortByVenue:
		sort.SliceStable(items, func(i, j int) bool {
			vi, vj := strings.ToLower(items[i].Venue), strings.ToLower(items[j].Venue)
			if vi != vj {
				// Unknown venues last
				if vi == "" || vj == "" {
					return vj == ""
				}
				return vi < vj
			}
			return compareByTime(items[i], items[j])
		})
	case SortByTitle:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := strings.ToLower(items[i].Title), strings.ToLower(items[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByTime(items[i], items[j])
		})
	}
}

// minuteOfDay returns the start minute of an item's display time
func minuteOfDay(item event.Item) (int, bool) {
	start, ok := calendar.StartTime(event.CalendarDate{Year: 2000, Month: 1, Day: 1}, item.Time, time.UTC)
	if !ok {
		return 0, false
	}
	return start.Hour()*60 + start.Minute(), true
}

// compareByTime reports whether i starts before j. Items without a clock
// time sort after timed ones.
func compareByTime(i, j event.Item) bool {
	mi, okI := minuteOfDay(i)
	mj, okJ := minuteOfDay(j)

	if okI && okJ {
		return mi < mj
	}
	if okI {
		return true
	}
	return false
}
