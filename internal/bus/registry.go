package bus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/membus/membus/internal/config"
	"github.com/membus/membus/internal/logging"
	"github.com/membus/membus/internal/memory"
	"github.com/membus/membus/internal/monitoring"
	"github.com/membus/membus/internal/transport"
)

// bufferBase is where every simulated receiver maps its buffer region.
// Spaces are per process, so the same base never collides.
const bufferBase = 0x7f80_0000_0000

// Registry tracks the connections a host serves.
type Registry struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
	engine  *transport.Engine
	cfg     config.BusConfig

	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(log *logging.Logger, metrics *monitoring.Metrics, engine *transport.Engine, cfg config.BusConfig) *Registry {
	if log == nil {
		log = logging.NewNop()
	}
	return &Registry{
		log:     log,
		metrics: metrics,
		engine:  engine,
		cfg:     cfg,
		conns:   make(map[string]*Connection),
	}
}

// Register creates a connection for pid with a receiver buffer of the
// given size (zero selects the configured default). The buffer lives in
// a fresh simulated address space owned by the connection's process.
func (r *Registry) Register(pid uint32, bufSize uint64) (*Connection, error) {
	if bufSize == 0 {
		bufSize = r.cfg.DefaultBufferSize
	}

	space, err := memory.NewSpace(bufferBase, bufSize)
	if err != nil {
		return nil, fmt.Errorf("bus: register pid %d: %w", pid, err)
	}

	conn := &Connection{
		id:      uuid.NewString(),
		proc:    memory.NewProcess(pid, space),
		engine:  r.engine,
		maxMsg:  r.cfg.MaxMessageSize,
		buf:     transport.NewBuffer(bufferBase, bufSize),
		metrics: r.metrics,
	}

	r.mu.Lock()
	r.conns[conn.id] = conn
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ConnectionsActive.Inc()
	}
	r.log.Info("connection registered",
		zap.String("conn", conn.id),
		zap.Uint32("pid", pid),
		zap.Uint64("buffer_size", bufSize))
	return conn, nil
}

// Lookup finds a connection by id.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Disconnect tears a connection down: its space goes away, in-flight
// deliveries fail with the target-gone error, and every outstanding
// slot becomes invalid.
func (r *Registry) Disconnect(id string) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	conn.disconnect()
	if r.metrics != nil {
		r.metrics.ConnectionsActive.Dec()
	}
	r.log.Info("connection disconnected", zap.String("conn", id))
	return true
}

// List snapshots all connections.
func (r *Registry) List() []Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Stats, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn.Stats())
	}
	return out
}

// Close disconnects everything, used on host shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for id, conn := range conns {
		conn.disconnect()
		if r.metrics != nil {
			r.metrics.ConnectionsActive.Dec()
		}
		r.log.Debug("connection closed on shutdown", zap.String("conn", id))
	}
}
