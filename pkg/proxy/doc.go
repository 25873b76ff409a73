// Package proxy holds the HTTP wire types of the chat relay API.
//
// Every route lives under a configurable prefix (default "/api"):
//
//	POST /api/chat    {"message": "..."}  -> streamed envelope
//	GET  /api/ping                       -> {"ok": bool, "error"?: "..."}
//	POST /api/commit  {"content": "..."} -> {"ok": true}
//	POST /api/reset                      -> {"ok": true}
//
// Request bodies are decoded leniently: an empty or malformed body is treated
// as an empty object, so a missing field surfaces as a validation error. Bodies
// above the configured limit are rejected with 413.
//
// Error responses always have the shape {"error": "..."}. HandleError maps
// typed errors from the chat, providers and transcript packages to a status
// code and a client-safe message.
//
// The handlers and middleware subpackages build on these types; the server
// package assembles them.
package proxy
