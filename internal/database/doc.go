// Package database provides SQLite-based storage for inspection history.
//
// This package implements the HistoryDB, which stores:
//   - one summary row per inspection (counts, length statistics, end state)
//   - the complete inspection as JSON for later reports
//   - every flagged token id, so runs of the same registry can be compared
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no CGO and keeps cross-compilation simple.
package database
