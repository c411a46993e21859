// Package bus ties receiver buffers to live connections.
//
// A Connection owns the mutex that serializes all slot allocation,
// transfer, and release traffic for its buffer (the external lock the
// transport layer's allocator requires). The Registry tracks the
// connections a host currently serves. Naming, matching, and the wire
// protocol live elsewhere; this package only covers what the transport
// core needs from connection lifecycle.
package bus
