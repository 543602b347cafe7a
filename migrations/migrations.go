// Package migrations embeds the schema files applied at service start.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
