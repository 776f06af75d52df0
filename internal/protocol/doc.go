// Package protocol turns typed onebyte requests and replies into frames
// and back.
//
// Ownership boundary:
// - frame/header primitives live in frame
// - tlv payload primitives live in tlv
// - message ids and field requirements live in schema
// - this package binds them into Request, Reply and ErrorReply
package protocol
