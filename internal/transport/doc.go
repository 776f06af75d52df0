// Package transport serves a device over TCP using the onebyte frame
// protocol and provides the matching client.
//
// Each connection owns a table of open handles. Requests on one
// connection are answered in order; the device serializes work across
// connections.
package transport

import "github.com/zeebo/errs"

// Error is the class for connection and framing failures. Device
// failures cross the wire as fault.Error values instead.
var Error = errs.Class("transport")
