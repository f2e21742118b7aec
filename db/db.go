// Package db embeds the SQL migrations so binaries and tests apply the same schema.
package db

import "embed"

// Migrations holds migrations/NNNN_name.{up,down}.sql.
//
//go:embed migrations/*.sql
var Migrations embed.FS
