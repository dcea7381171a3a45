package migrations

import "embed"

// FS holds the versioned SQL migrations. Migrations are additive only.
//
//go:embed *.sql
var FS embed.FS
