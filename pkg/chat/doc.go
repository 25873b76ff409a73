// Package chat orchestrates chat turns between a client, the transcript
// store and the upstream completion API.
//
// A turn has two phases. BeginTurn validates the message, checks the
// upstream credential and appends the user message to the session's
// transcript; any failure there is reported before a response is started.
// Turn.Stream then relays the reply as one JSON envelope whose chunks array
// grows as deltas arrive:
//
//	{"ok": true, "chunks": [{"delta":"Hel"},{"delta":"lo"},{"error":"..."}]}
//
// The assistant reply is not stored by the turn. The client sends it back
// through Commit once it has the full text, and Commit trims the transcript
// to the configured maximum length. Reset empties a transcript.
//
// Ping performs an end-to-end upstream check without touching any
// transcript.
package chat
