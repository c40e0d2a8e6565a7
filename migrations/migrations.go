// Package migrations embeds the ClickHouse schema managed by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
