package session

import (
	"testing"
	"time"
)

func TestState_SequenceBookkeeping(t *testing.T) {
	s := newState(30 * time.Second)

	if got := s.IncomingSeq(); got != 0 {
		t.Fatalf("fresh state incoming seq = %d, want 0", got)
	}

	s.observeIncoming(1)
	s.observeIncoming(2)
	s.observeIncoming(3)
	if got := s.IncomingSeq(); got != 3 {
		t.Fatalf("incoming seq = %d, want 3", got)
	}

	if got := s.NextOutgoingSeq(); got != 1 {
		t.Fatalf("first NextOutgoingSeq = %d, want 1", got)
	}
	if got := s.NextOutgoingSeq(); got != 2 {
		t.Fatalf("second NextOutgoingSeq = %d, want 2", got)
	}

	s.resetSeq()
	if got := s.IncomingSeq(); got != 0 {
		t.Fatalf("after reset incoming seq = %d, want 0", got)
	}
	if got := s.OutgoingSeq(); got != 0 {
		t.Fatalf("after reset outgoing seq = %d, want 0", got)
	}
}

func TestState_PhaseTransitions(t *testing.T) {
	s := newState(30 * time.Second)
	if s.Phase() != Disconnected {
		t.Fatalf("initial phase = %v, want Disconnected", s.Phase())
	}
	s.setPhase(Connecting)
	if s.LoggedOn() {
		t.Fatal("Connecting should not report LoggedOn")
	}
	s.setPhase(LoggedOn)
	if !s.LoggedOn() {
		t.Fatal("LoggedOn should report LoggedOn")
	}
	s.setPhase(Disconnected)
	if s.LoggedOn() {
		t.Fatal("Disconnected should not report LoggedOn")
	}
}

func TestState_SubscriptionTracking(t *testing.T) {
	s := newState(30 * time.Second)
	s.addSubscribed(101)
	s.addSubscribed(102)

	if !s.IsSubscribed(101) || !s.IsSubscribed(102) {
		t.Fatal("expected both symbols subscribed")
	}
	if s.IsSubscribed(999) {
		t.Fatal("unexpected subscription reported")
	}

	got := s.SubscribedSymbols()
	if len(got) != 2 {
		t.Fatalf("SubscribedSymbols len = %d, want 2", len(got))
	}

	s.removeSubscribed(101)
	if s.IsSubscribed(101) {
		t.Fatal("expected 101 to be unsubscribed")
	}
}

func TestState_SymbolDirectoryIsDefensiveCopy(t *testing.T) {
	s := newState(30 * time.Second)
	s.setSymbolDirectory([]SymbolInfo{{NumericID: 1, Name: "BTC-USD", TickSize: "0.01"}})

	dir := s.SymbolDirectory()
	dir[1] = SymbolInfo{NumericID: 1, Name: "MUTATED"}

	again := s.SymbolDirectory()
	if again[1].Name != "BTC-USD" {
		t.Fatalf("mutation of returned map leaked into state: got %q", again[1].Name)
	}
}

func TestClient_String(t *testing.T) {
	c := New(DefaultConfig())
	if got := c.String(); got == "" {
		t.Fatal("expected non-empty String()")
	}
}
