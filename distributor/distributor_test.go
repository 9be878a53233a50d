package distributor

import (
	"testing"
	"time"

	"marketcore/marketdata"
	"marketcore/mdecimal"
)

func tick(symbol string) marketdata.Tick {
	return marketdata.Tick{
		SymbolName: symbol,
		BidPrice:   mdecimal.MustParse("100"),
		AskPrice:   mdecimal.MustParse("101"),
	}
}

func TestDistributor_DropOldestNeverBlocks(t *testing.T) {
	d := New()
	recv := d.RegisterConsumer("slow", 2, DropOldest)

	for i := 0; i < 10; i++ {
		done := make(chan struct{})
		go func() {
			d.Publish(tick("BTC-USD"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish blocked under DropOldest policy")
		}
	}

	stats := d.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 consumer, got %d", len(stats))
	}
	if stats[0].Published != 10 {
		t.Fatalf("published = %d, want 10 (DropOldest always accepts the incoming tick)", stats[0].Published)
	}
	if stats[0].Dropped == 0 {
		t.Fatal("expected some drops once the 2-slot buffer overflowed")
	}

	drained := 0
	for {
		select {
		case <-recv.C:
			drained++
		default:
			goto done
		}
	}
done:
	if drained > 2 {
		t.Fatalf("buffer held %d items, want at most 2", drained)
	}
}

func TestDistributor_DropNewestDiscardsIncoming(t *testing.T) {
	d := New()
	recv := d.RegisterConsumer("capped", 1, DropNewest)

	d.Publish(tick("A"))
	d.Publish(tick("B"))

	first := <-recv.C
	if first.SymbolName != "A" {
		t.Fatalf("expected the first published tick to survive, got %q", first.SymbolName)
	}

	stats := d.Stats()
	if stats[0].Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", stats[0].Dropped)
	}
}

func TestDistributor_IndependentConsumers(t *testing.T) {
	d := New()
	fast := d.RegisterConsumer("fast", 10, Block)
	_ = d.RegisterConsumer("slow", 1, DropNewest)

	for i := 0; i < 5; i++ {
		d.Publish(tick("X"))
	}

	count := 0
	for {
		select {
		case <-fast.C:
			count++
		default:
			if count != 5 {
				t.Fatalf("fast consumer received %d ticks, want 5 (should be unaffected by the slow one)", count)
			}
			return
		}
	}
}

func TestDistributor_RemoveConsumerClosesChannel(t *testing.T) {
	d := New()
	recv := d.RegisterConsumer("gone", 1, Block)
	d.RemoveConsumer("gone")

	_, ok := <-recv.C
	if ok {
		t.Fatal("expected channel to be closed after RemoveConsumer")
	}
}
