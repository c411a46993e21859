package transport

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/membus/membus/internal/logging"
	"github.com/membus/membus/internal/memory"
	"github.com/membus/membus/internal/monitoring"
)

// Engine runs composed transfers: pin the destination range, stream the
// sender's bytes through page windows, release the pin. One Engine is
// shared by all connections of a host; it keeps no per-transfer state.
type Engine struct {
	log      *logging.Logger
	metrics  *monitoring.Metrics
	maxPages int
}

// Config tunes an Engine.
type Config struct {
	// MaxPinnedPages caps how many pages one transfer may pin.
	// Zero selects DefaultMaxPinnedPages.
	MaxPinnedPages int
}

// NewEngine creates a transfer engine. metrics may be nil when the
// host runs without instrumentation.
func NewEngine(log *logging.Logger, metrics *monitoring.Metrics, cfg Config) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{
		log:      log,
		metrics:  metrics,
		maxPages: cfg.MaxPinnedPages,
	}
}

// Transfer copies length bytes from src into proc's address space at
// dst. The destination pin is released on every path; a copy fault
// leaves whatever was already written in place and reports ErrCopyFault
// to the caller, which still owns the slot bookkeeping.
func (e *Engine) Transfer(ctx context.Context, proc *memory.Process, dst, length uint64, src io.Reader) error {
	start := time.Now()

	pp, err := OpenPinned(ctx, proc, dst, length, e.maxPages)
	if err != nil {
		e.observe(err, length, start)
		e.log.Warn("pin failed",
			zap.Uint32("pid", proc.PID()),
			zap.Uint64("dst", dst),
			zap.Uint64("length", length),
			zap.Error(err))
		return err
	}
	defer pp.Close()

	if err := pp.WriteFrom(src, length); err != nil {
		e.observe(err, length, start)
		e.log.Warn("windowed copy failed",
			zap.Uint32("pid", proc.PID()),
			zap.Uint64("dst", dst),
			zap.Error(err))
		return err
	}

	e.observe(nil, length, start)
	e.log.Debug("transfer complete",
		zap.Uint32("pid", proc.PID()),
		zap.Uint64("dst", dst),
		zap.Uint64("length", length))
	return nil
}

func (e *Engine) observe(err error, length uint64, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordTransfer(statusOf(err), length, time.Since(start))
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTargetGone):
		return "target_gone"
	case errors.Is(err, ErrShortPin):
		return "short_pin"
	case errors.Is(err, ErrCopyFault):
		return "copy_fault"
	case errors.Is(err, ErrOutOfMemory):
		return "out_of_memory"
	default:
		return "error"
	}
}
