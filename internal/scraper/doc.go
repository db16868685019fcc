// Package scraper fetches the Flagpole live-music calendar and turns it into events.
//
// The scraper package requests the listing page directly with browser-like headers and,
// when the origin answers with an anti-bot challenge or fails, retries once through a
// markdown-rendering proxy. HTML responses are read from their embedded JSON-LD blocks;
// markdown responses are read line by line. Both parsers produce the same event.Item
// shape, which the Builder buckets into a today/tomorrow payload.
package scraper
