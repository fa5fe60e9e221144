package migrations

import "embed"

// Files contains SQL migrations embedded into the binary, applied in
// lexical filename order (001_init.sql, 002_..., ...).
//
//go:embed *.sql
var Files embed.FS
