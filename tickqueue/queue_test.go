package tickqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketcore/marketdata"
	"marketcore/mdecimal"
)

func mkTick(symbol string) marketdata.Tick {
	return marketdata.Tick{SymbolName: symbol, BidPrice: mdecimal.MustParse("1"), AskPrice: mdecimal.MustParse("2")}
}

func TestQueue_EnqueueDrainFIFO(t *testing.T) {
	q := New(4)
	q.Enqueue(mkTick("A"))
	q.Enqueue(mkTick("B"))
	q.Enqueue(mkTick("C"))

	out := q.Drain(2)
	if len(out) != 2 || out[0].SymbolName != "A" || out[1].SymbolName != "B" {
		t.Fatalf("unexpected drain order: %+v", out)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
}

func TestQueue_OverflowDropsOldest(t *testing.T) {
	q := New(2)
	q.Enqueue(mkTick("A"))
	q.Enqueue(mkTick("B"))
	q.Enqueue(mkTick("C")) // evicts A

	out := q.Drain(10)
	if len(out) != 2 || out[0].SymbolName != "B" || out[1].SymbolName != "C" {
		t.Fatalf("unexpected contents after overflow: %+v", out)
	}

	stats := q.Stats()
	if stats.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", stats.Dropped)
	}
}

func TestQueue_EmergencySignalFiresAtCapacity(t *testing.T) {
	q := New(1)
	q.Enqueue(mkTick("A"))

	select {
	case <-q.EmergencyFlush():
	default:
		t.Fatal("expected emergency signal once buffer reached capacity")
	}
}

type fakeWriter struct {
	fail      bool
	flushedAt [][]marketdata.Tick
}

func (w *fakeWriter) Flush(_ context.Context, ticks []marketdata.Tick) error {
	if w.fail {
		return errors.New("boom")
	}
	cp := append([]marketdata.Tick(nil), ticks...)
	w.flushedAt = append(w.flushedAt, cp)
	return nil
}

func TestFlusher_FlushOnceDrainsBatch(t *testing.T) {
	q := New(10)
	q.Enqueue(mkTick("A"))
	q.Enqueue(mkTick("B"))

	w := &fakeWriter{}
	f := NewFlusher(q, w, 0, 0, nil)
	backoff := time.Second
	f.flushOnce(context.Background(), &backoff)

	if len(w.flushedAt) != 1 || len(w.flushedAt[0]) != 2 {
		t.Fatalf("expected one flush of 2 ticks, got %+v", w.flushedAt)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after flush, Len=%d", q.Len())
	}
}

func TestFlusher_FailedFlushRequeues(t *testing.T) {
	q := New(10)
	q.Enqueue(mkTick("A"))

	w := &fakeWriter{fail: true}
	f := NewFlusher(q, w, 0, 0, nil)
	backoff := time.Millisecond
	f.flushOnce(context.Background(), &backoff)

	if q.Len() != 1 {
		t.Fatalf("expected the tick to be requeued after a failed flush, Len=%d", q.Len())
	}
	if backoff <= time.Millisecond {
		t.Fatal("expected backoff to increase after a failed flush")
	}
}
