// Package store persists gateway state in SQLite.
//
// Three repositories share one database:
//   - StateRepository keeps the last decoded value of every device channel
//     and seeds the engine's prior store on start
//   - JournalRepository records every received telegram with its
//     validation state and outcome, trimmed by retention
//   - LearnedRepository keeps devices bound through teach-in
//
// Timestamps are stored as fixed-width UTC text so they sort correctly.
package store
