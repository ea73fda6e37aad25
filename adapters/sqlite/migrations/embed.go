package migrations

import "embed"

// FS contains embedded SQLite migrations for the leaderboard table.
//
//go:embed *.sql
var FS embed.FS
