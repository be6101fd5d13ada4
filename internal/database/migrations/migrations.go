package migrations

import "embed"

// Files holds the warehouse schema SQL shipped with the binary.
//
//go:embed *.sql
var Files embed.FS
