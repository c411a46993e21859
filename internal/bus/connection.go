package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/membus/membus/internal/memory"
	"github.com/membus/membus/internal/monitoring"
	"github.com/membus/membus/internal/transport"
)

// ErrDisconnected is returned when delivering to or consuming from a
// connection that has been torn down.
var ErrDisconnected = errors.New("bus: connection is disconnected")

// Message is one delivered payload, described by the slot it occupies
// in the receiver's buffer.
type Message struct {
	Slot transport.Slot
	From uint32 // sender pid, zero for host-originated messages
}

// Connection is one registered receiver: a process, its buffer region,
// and the queue of messages delivered but not yet consumed.
//
// The connection mutex serializes every allocate/transfer/release for
// the buffer, which also keeps concurrent deliveries to the same
// destination from writing into unreserved ranges.
type Connection struct {
	id     string
	proc   *memory.Process
	engine *transport.Engine
	maxMsg uint64

	mu           sync.Mutex
	buf          *transport.Buffer
	queue        []Message
	disconnected bool

	metrics *monitoring.Metrics
}

// ID returns the connection identifier.
func (c *Connection) ID() string { return c.id }

// PID returns the owning process identifier.
func (c *Connection) PID() uint32 { return c.proc.PID() }

// Deliver places length bytes from src into the connection's buffer as
// one message: reserve a slot, pin the destination range, stream the
// bytes through page windows, queue the slot for the receiver. On any
// transfer failure the slot is released before the error is returned,
// so a failed delivery leaves no space reserved.
func (c *Connection) Deliver(ctx context.Context, from uint32, src io.Reader, length uint64) (Message, error) {
	if length == 0 {
		return Message{}, errors.New("bus: empty message")
	}
	if c.maxMsg > 0 && length > c.maxMsg {
		return Message{}, fmt.Errorf("bus: message of %d bytes exceeds limit %d", length, c.maxMsg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		return Message{}, ErrDisconnected
	}

	slot, err := c.buf.Alloc(length)
	if err != nil {
		if c.metrics != nil {
			c.metrics.AllocFailures.Inc()
		}
		return Message{}, err
	}

	dst := c.buf.Base() + slot.Offset
	if err := c.engine.Transfer(ctx, c.proc, dst, length, src); err != nil {
		c.buf.Release(slot)
		return Message{}, err
	}

	msg := Message{Slot: slot, From: from}
	c.queue = append(c.queue, msg)
	if c.metrics != nil {
		c.metrics.MessagesQueued.Inc()
	}
	return msg, nil
}

// Receive pops the oldest delivered message. The caller owns the slot
// until it calls Release.
func (c *Connection) Receive() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected || len(c.queue) == 0 {
		return Message{}, false
	}

	msg := c.queue[0]
	c.queue = c.queue[1:]
	if c.metrics != nil {
		c.metrics.MessagesQueued.Dec()
	}
	return msg, true
}

// Read copies a received message's bytes out of the receiver's buffer.
func (c *Connection) Read(msg Message) ([]byte, error) {
	mm := c.proc.Mem()
	if mm == nil {
		return nil, ErrDisconnected
	}

	c.mu.Lock()
	base := c.buf.Base()
	c.mu.Unlock()

	p := make([]byte, msg.Slot.Length)
	if _, err := mm.ReadAt(base+msg.Slot.Offset, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Release returns a consumed message's slot to the allocator.
func (c *Connection) Release(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Release(msg.Slot)
}

// Stats is a point-in-time view of a connection for introspection.
type Stats struct {
	ID          string `json:"id"`
	PID         uint32 `json:"pid"`
	BufferSize  uint64 `json:"buffer_size"`
	Cursor      uint64 `json:"cursor"`
	Outstanding uint32 `json:"outstanding_slots"`
	Queued      int    `json:"queued_messages"`
	Alive       bool   `json:"alive"`
}

// Stats snapshots the connection.
func (c *Connection) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ID:          c.id,
		PID:         c.proc.PID(),
		BufferSize:  c.buf.Size(),
		Cursor:      c.buf.Cursor(),
		Outstanding: c.buf.Outstanding(),
		Queued:      len(c.queue),
		Alive:       !c.disconnected,
	}
}

func (c *Connection) disconnect() {
	c.mu.Lock()
	c.disconnected = true
	c.queue = nil
	c.mu.Unlock()
	c.proc.Exit()
}
