// Package cli implements the command-line interface for athens-bands.
//
// The cli package provides the Cobra-based CLI with commands to refresh the
// stored payload, show it as text, JSON or iCalendar, dump the raw source
// document, and serve the HTTP API with a cron-driven refresh. It wires the
// config, scraper, storage, purge, metrics and refresh packages together.
package cli
