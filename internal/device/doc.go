// Package device owns the onebyte device lifecycle.
//
// Ownership boundary:
// - load/unload of the primary store and control channel
// - open handles and their cursors
// - serialization of calls into the core
//
// The primary store and control channel take no locks. Device puts every
// call behind one mutex so callers on different goroutines never share a
// buffer unsynchronized. Code that drives primary.Store or control.Channel
// directly inherits their documented race surface.
package device
