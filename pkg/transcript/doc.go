// Package transcript stores per-session conversation history.
//
// A transcript is an ordered list of role-tagged messages. The store offers
// four operations: Get, Append, Save and Reset. Append never trims; Save
// keeps only the last maxLen entries, so the length bound holds after every
// commit. Eviction is FIFO from the front.
//
// # Backends
//
//   - MemoryStore: process-local map, the default
//   - SQLiteStore: one row per session with a JSON message array, using
//     either modernc.org/sqlite ("sqlite") or mattn/go-sqlite3 ("sqlite3")
//
// # Expiry
//
// Sweeper runs Cleanup on a cron schedule and deletes transcripts idle for
// longer than the configured TTL.
package transcript
