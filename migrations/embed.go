// Package migrations embeds the schema of the payroll engine.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
