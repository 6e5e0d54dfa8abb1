// Package migrations holds the embedded sqlite schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
