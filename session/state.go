package session

import (
	"sync"
	"sync/atomic"
	"time"

	"marketcore/mclock"
)

// Phase is the session state machine from spec.md §4.C:
// Disconnected -> Connecting -> LoggedOn -> {LoggedOn | Disconnecting} -> Disconnected.
type Phase int32

const (
	Disconnected Phase = iota
	Connecting
	LoggedOn
	Disconnecting
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case LoggedOn:
		return "LoggedOn"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// SymbolInfo is obtained from a Security List response.
type SymbolInfo struct {
	NumericID uint32
	Name      string
	Digits    int
	TickSize  string
}

// State is the session client's runtime state. Per §5, it has a single
// writer (the inbound reader task); every other task observes it through
// the atomic accessors below or the short RWMutex-guarded map accessors —
// never through a lock that is held across network I/O.
type State struct {
	phase atomic.Int32

	outgoingSeq atomic.Int64
	incomingSeq atomic.Int64

	lastInboundAt  atomic.Int64 // mclock.Timestamp
	lastOutboundAt atomic.Int64 // mclock.Timestamp

	heartbeatInterval time.Duration

	mu                sync.RWMutex
	subscribedSymbols map[uint32]struct{}
	symbolDirectory   map[uint32]SymbolInfo
}

func newState(heartbeat time.Duration) *State {
	s := &State{
		heartbeatInterval: heartbeat,
		subscribedSymbols: make(map[uint32]struct{}),
		symbolDirectory:   make(map[uint32]SymbolInfo),
	}
	s.phase.Store(int32(Disconnected))
	s.outgoingSeq.Store(0)
	s.incomingSeq.Store(0)
	return s
}

func (s *State) Phase() Phase { return Phase(s.phase.Load()) }
func (s *State) setPhase(p Phase) { s.phase.Store(int32(p)) }

// NextOutgoingSeq pre-increments the outgoing sequence number, starting at 1
// on a new session, as spec.md §4.C requires.
func (s *State) NextOutgoingSeq() int64 { return s.outgoingSeq.Add(1) }

func (s *State) OutgoingSeq() int64 { return s.outgoingSeq.Load() }
func (s *State) IncomingSeq() int64 { return s.incomingSeq.Load() }

func (s *State) resetSeq() {
	s.outgoingSeq.Store(0)
	s.incomingSeq.Store(0)
}

// observeIncoming records the latest incoming sequence number. It does not
// validate it: Client.mirrorIncomingSeq logs a gap and then records the
// number anyway.
func (s *State) observeIncoming(seq int64) {
	s.incomingSeq.Store(seq)
	s.lastInboundAt.Store(int64(mclock.Now()))
}

func (s *State) recordOutbound() {
	s.lastOutboundAt.Store(int64(mclock.Now()))
}

func (s *State) LastInboundAt() mclock.Timestamp  { return mclock.Timestamp(s.lastInboundAt.Load()) }
func (s *State) LastOutboundAt() mclock.Timestamp { return mclock.Timestamp(s.lastOutboundAt.Load()) }
func (s *State) HeartbeatInterval() time.Duration { return s.heartbeatInterval }

func (s *State) LoggedOn() bool { return s.Phase() == LoggedOn }

func (s *State) addSubscribed(symbolID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribedSymbols[symbolID] = struct{}{}
}

func (s *State) removeSubscribed(symbolID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribedSymbols, symbolID)
}

func (s *State) IsSubscribed(symbolID uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscribedSymbols[symbolID]
	return ok
}

func (s *State) SubscribedSymbols() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint32, 0, len(s.subscribedSymbols))
	for id := range s.subscribedSymbols {
		out = append(out, id)
	}
	return out
}

func (s *State) setSymbolDirectory(entries []SymbolInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.symbolDirectory[e.NumericID] = e
	}
}

// SymbolDirectory returns a defensive copy, read by the persistence writer's
// symbol-sync job.
func (s *State) SymbolDirectory() map[uint32]SymbolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint32]SymbolInfo, len(s.symbolDirectory))
	for k, v := range s.symbolDirectory {
		out[k] = v
	}
	return out
}
