package migrations

import "embed"

// FS contains the embedded SQLite migrations for macro storage.
//
//go:embed *.sql
var FS embed.FS
