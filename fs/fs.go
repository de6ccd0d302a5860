// Package appfs embeds the SQL assets shipped with the application binary:
// schema migrations (with their rollback counterparts) and seed data.
package appfs

import "embed"

//go:embed migrations seeds
var FS embed.FS

const (
	// MigrationsDir is the embedded directory holding schema migrations.
	MigrationsDir = "migrations"

	// SeedsDir is the embedded directory holding seed scripts.
	SeedsDir = "seeds"
)
