// Package storage persists the latest event payload.
//
// Each refresh overwrites a single well-known key; readers always see the
// most recent complete payload. Two backends are provided: a JSON file under
// ~/.local/share/athens-bands/ and a PostgreSQL table holding the payload as
// jsonb.
package storage
