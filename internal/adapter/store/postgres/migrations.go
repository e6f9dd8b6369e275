package postgres

import "embed"

// Migrations embeds the goose migration set so cmd/prreview's migrate
// subcommand doesn't depend on a working directory relative path.
//
//go:embed migrations/*.sql
var Migrations embed.FS
