// Package session identifies browser sessions with a signed cookie.
//
// Each client gets a random UUID session id in an HttpOnly, SameSite=Lax
// cookie signed with HMAC-SHA256. The id keys the client's transcript in
// the transcript store. Handlers read it with FromContext.
package session
