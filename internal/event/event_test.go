package event

import (
	"testing"
)

func TestItem_Valid(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{
			name: "all fields",
			item: Item{Title: "The Band", URL: "https://example.com/x", Time: "9:00 PM", Venue: "Caledonia Lounge", Date: "2026-03-14"},
			want: true,
		},
		{
			name: "venue and time empty",
			item: Item{Title: "The Band", URL: "https://example.com/x", Date: "2026-03-14"},
			want: true,
		},
		{
			name: "missing title",
			item: Item{Title: "  ", URL: "https://example.com/x", Date: "2026-03-14"},
			want: false,
		},
		{
			name: "missing url",
			item: Item{Title: "The Band", Date: "2026-03-14"},
			want: false,
		},
		{
			name: "missing date",
			item: Item{Title: "The Band", URL: "https://example.com/x"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItem_Key(t *testing.T) {
	a := Item{Title: "The Band", URL: "https://example.com/x", Date: "2026-03-14"}
	b := Item{Title: "The Band (late show)", URL: "https://example.com/x", Date: "2026-03-14"}
	c := Item{Title: "The Band", URL: "https://example.com/x", Date: "2026-03-15"}

	if a.Key() != b.Key() {
		t.Error("Key should depend only on date and URL")
	}
	if a.Key() == c.Key() {
		t.Error("Key should differ across dates")
	}
	if len(a.Key()) != 40 { // SHA1 produces 40 hex characters
		t.Errorf("expected key length of 40, got %d", len(a.Key()))
	}
}
