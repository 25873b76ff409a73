// Package handlers provides the HTTP handlers of the chat API.
//
// ChatHandler mounts four routes under the API prefix:
//
//	POST /api/chat    {"message": "..."}  streamed reply envelope
//	GET  /api/ping                        {"ok": true} or {"ok": false, "error": "..."}
//	POST /api/commit  {"content": "..."}  {"ok": true}
//	POST /api/reset                       {"ok": true}
//
// # Request Flow
//
// Each handler follows the same pattern:
//
//  1. Decode the JSON body leniently (malformed JSON counts as {})
//  2. Resolve the session id placed in the context by the session middleware
//  3. Call the chat service
//  4. Write a JSON response, or a JSON error with the mapped status
//
// # Error Handling
//
// Errors raised before a reply starts streaming are written as
//
//	{"error": "message required"}
//
// with 400 for validation failures, 413 for oversized bodies and 500 for
// configuration or storage failures. Once the chat envelope has started,
// the status is fixed at 200 and upstream failures are reported as a final
// {"error": "..."} chunk inside it.
package handlers
