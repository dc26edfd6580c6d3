package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering for the Hub.
//   - BufferSize: size of the internal channel (default 256).
//   - MaxBatch: flush once this many snapshots queue (default 32).
//   - MaxBatchWait: flush after this duration even if the batch is small (default 250ms).
//   - SinkTimeout: per-sink timeout while flushing (default 5s).
type Config struct {
	BufferSize   int
	MaxBatch     int
	MaxBatchWait time.Duration
	SinkTimeout  time.Duration
	Logger       *zap.Logger
}

const (
	defaultBufferSize   = 256
	defaultMaxBatch     = 32
	defaultMaxBatchWait = 250 * time.Millisecond
	defaultSinkTimeout  = 5 * time.Second
	dropLogInterval     = 5 * time.Second
)

// Hub fans snapshots out to sinks from a background goroutine so the
// harvest loop never blocks on a slow sink.
type Hub struct {
	cfg         Config
	sinks       []Sink
	snapshots   chan Snapshot
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *zap.Logger
	dropLimiter rateLimiter
	dropped     atomic.Int64
	closed      atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts a Hub delivering to sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:         cfg,
		sinks:       append([]Sink(nil), sinks...),
		snapshots:   make(chan Snapshot, cfg.BufferSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
		dropLimiter: rateLimiter{interval: dropLogInterval},
	}
	go h.run()
	return h
}

// Emit queues s for delivery. It never blocks; when the buffer is full the
// snapshot is dropped and a rate-limited warning is logged.
func (h *Hub) Emit(s Snapshot) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := s.Validate(); err != nil {
		h.logger.Debug("discarding invalid snapshot", zap.Error(err))
		return
	}
	select {
	case h.snapshots <- s:
	default:
		h.dropped.Add(1)
		if h.dropLimiter.Allow(time.Now()) {
			h.logger.Warn("progress snapshots dropped", zap.Int64("dropped", h.dropped.Swap(0)))
		}
	}
}

// Close drains queued snapshots, closes every sink and waits for the
// background goroutine. Repeated calls are safe.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]Snapshot, 0, h.cfg.MaxBatch)
	ticker := time.NewTicker(h.cfg.MaxBatchWait)
	defer ticker.Stop()
	for {
		select {
		case s := <-h.snapshots:
			batch = append(batch, s)
			if len(batch) >= h.cfg.MaxBatch {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-h.stopCh:
		drain:
			for {
				select {
				case s := <-h.snapshots:
					batch = append(batch, s)
				default:
					break drain
				}
			}
			h.flush(batch)
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) flush(batch []Snapshot) {
	if len(batch) == 0 {
		return
	}
	out := append([]Snapshot(nil), batch...)
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, out); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}
