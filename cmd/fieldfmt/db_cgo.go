//go:build cgo_sqlite

package main

import _ "github.com/mattn/go-sqlite3"

// The cgo driver reads pragmas from its own DSN parameters, so paths in the
// config should use "?_journal_mode=WAL&_busy_timeout=5000" with this build.
const sqliteDriver = "sqlite3"
