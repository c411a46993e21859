// Package transport places message bytes into a receiver's registered
// buffer without an intermediate copy.
//
// Three pieces cooperate:
//   - Buffer: a bump-style slot allocator over the receiver's region
//   - PinnedPages: an all-or-nothing pin of the destination page range
//   - WriteFrom: a windowed, page-at-a-time copy into the pinned range
//
// Engine composes them into a single Transfer call: allocate outside,
// then open -> write -> close, with the pin released on every path.
//
// The Buffer carries no lock of its own; callers serialize all
// allocate/release traffic for a given buffer under one external mutex
// (the bus package's connection lock).
package transport
