package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change; each file registers itself from init
// and bun derives the migration name from the file name.
var Migrations = migrate.NewMigrations()
