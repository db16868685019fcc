// Package event provides the normalized event model for the Athens live-music calendar.
//
// The event package defines event items, the today/tomorrow payload that downstream
// consumers read, and the date resolution rules that turn partial or free-form date
// text into civil dates in a single fixed timezone (America/New_York by default).
// Every calendar date in a payload is computed in that zone, never in the local zone
// of the machine running the refresh.
package event
