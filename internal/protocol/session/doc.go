// Package session owns the connection-level helpers shared by the onebyte
// client and server.
//
// Ownership boundary:
// - read/write timeouts and dial retry policy
// - exponential backoff
// - framed connections with per-frame deadlines
package session
