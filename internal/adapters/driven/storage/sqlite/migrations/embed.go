// Package migrations holds the schema as numbered NNN_name.up.sql scripts.
package migrations

import "embed"

// FS is read by the store on open; scripts newer than the recorded version run in order.
//
//go:embed *.sql
var FS embed.FS
