// Package memory models per-process virtual address spaces for the bus
// transport core.
//
// A Space is a contiguous, page-granular region owned by one process.
// Pages are faulted in on demand and reference counted, so a transfer
// can hold frames pinned while the owning process keeps running, or
// tears its space down mid-flight.
//
// Features:
//   - Demand fault-in of 4 KiB page frames
//   - Reference-counted pinning (a torn-down space keeps pinned frames alive)
//   - Teardown signalling for the "receiver is gone" path
//
// The package has no internal knowledge of slots or transfers; it is
// the substrate the transport package pins and writes through.
package memory
