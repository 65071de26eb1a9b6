package migrations

import "embed"

// FS contains embedded SQLite migrations for content and user storage.
//
//go:embed *.sql
var FS embed.FS
