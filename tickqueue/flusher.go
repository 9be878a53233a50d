package tickqueue

import (
	"context"
	"time"

	"marketcore/marketdata"

	"go.uber.org/zap"
)

// Writer is whatever downstream sink can durably accept a batch of ticks —
// persistence.Writer satisfies this without tickqueue importing persistence.
type Writer interface {
	Flush(ctx context.Context, ticks []marketdata.Tick) error
}

// DefaultInterval and DefaultBatchSize match spec.md §4.F's T/B defaults.
const (
	DefaultInterval  = 5 * time.Minute
	DefaultBatchSize = 1000
)

// Flusher drains a Queue on a schedule or on emergency overflow signal, with
// exponential backoff (capped at the scheduled interval) on a failed flush.
type Flusher struct {
	queue     *Queue
	writer    Writer
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewFlusher(queue *Queue, writer Writer, interval time.Duration, batchSize int, logger *zap.Logger) *Flusher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flusher{queue: queue, writer: writer, interval: interval, batchSize: batchSize, logger: logger}
}

// Run blocks until ctx is cancelled, flushing on each scheduled tick and on
// every emergency-overflow signal from the queue. On cancellation it makes a
// best-effort final drain before returning.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			f.drainAll(context.Background())
			return
		case <-ticker.C:
			f.flushOnce(ctx, &backoff)
		case <-f.queue.EmergencyFlush():
			f.logger.Warn("tickqueue: emergency flush triggered", zap.Int("len", f.queue.Len()))
			f.flushOnce(ctx, &backoff)
		}
	}
}

func (f *Flusher) flushOnce(ctx context.Context, backoff *time.Duration) {
	ticks := f.queue.Drain(f.batchSize)
	if len(ticks) == 0 {
		return
	}

	if err := f.writer.Flush(ctx, ticks); err != nil {
		f.logger.Error("tickqueue: flush failed, requeueing", zap.Error(err), zap.Int("count", len(ticks)))
		for _, t := range ticks {
			f.queue.Enqueue(t)
		}
		time.Sleep(*backoff)
		*backoff *= 2
		if *backoff > f.interval {
			*backoff = f.interval
		}
		return
	}

	*backoff = time.Second
	f.logger.Debug("tickqueue: flushed", zap.Int("count", len(ticks)))
}

func (f *Flusher) drainAll(ctx context.Context) {
	for {
		ticks := f.queue.Drain(f.batchSize)
		if len(ticks) == 0 {
			return
		}
		if err := f.writer.Flush(ctx, ticks); err != nil {
			f.logger.Error("tickqueue: final drain flush failed, ticks lost", zap.Error(err), zap.Int("count", len(ticks)))
			return
		}
	}
}
