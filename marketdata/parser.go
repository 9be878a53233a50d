package marketdata

import (
	"strings"
	"sync"

	"marketcore/constants"
	"marketcore/fixcodec"
	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/utils"

	"github.com/quickfixgo/quickfix"
)

// side holds the last known state of one side of top-of-book.
type side struct {
	price  mdecimal.Decimal
	volume mdecimal.Decimal
	known  bool
}

// symbolBook is the per-symbol top-of-book cache a Parser retains so that an
// incremental refresh touching only one side still yields a complete Tick —
// spec.md §3's MarketTick invariant: "if only one side changes, the prior
// side is retained".
type symbolBook struct {
	numericID uint32
	bid       side
	ask       side
}

// Parser converts raw W/X FIX messages into Ticks, one symbol-keyed cache
// entry at a time. It is safe for concurrent use: the session client may
// deliver messages for different symbols from the same goroutine, but a
// Parser can be shared across multiple session clients feeding one engine.
type Parser struct {
	mu     sync.Mutex
	books  map[string]*symbolBook
	nextID uint32
}

func NewParser() *Parser {
	return &Parser{books: make(map[string]*symbolBook)}
}

// Parse extracts top-of-book entries from msg and returns the resulting Tick
// for its symbol. ok is false if, after applying this message, one side of
// top-of-book is still unknown (e.g. the very first incremental message for
// a symbol before any snapshot has arrived).
//
// HOT PATH: mirrors fixclient/parser.go's extractTradesImproved structure —
// one msg.String() call, one boundary scan, one pass per entry segment —
// but folds results into the symbol's running top-of-book instead of
// emitting a flat trade tape.
func (p *Parser) Parse(msg *quickfix.Message, isSnapshot bool) (Tick, bool) {
	// Symbol is mandatory on W/X; route it through fixcodec's typed decode
	// surface so a malformed frame is reported with fixcodec's own taxonomy
	// rather than silently treated as an empty string.
	symbol, err := fixcodec.RequireTag(msg, constants.TagSymbol)
	if err != nil {
		return Tick{}, false
	}
	rawMsg := msg.String()

	noEntriesStr := utils.GetString(msg, constants.TagNoMdEntries)
	if noEntriesStr == "" || noEntriesStr == "0" {
		return Tick{}, false
	}

	entryStarts := findEntryBoundaries(rawMsg)
	if len(entryStarts) == 0 {
		return Tick{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	book := p.books[symbol]
	if book == nil {
		p.nextID++
		book = &symbolBook{numericID: p.nextID}
		p.books[symbol] = book
	}

	if isSnapshot {
		// A full refresh replaces both sides outright; clear before folding
		// in whatever entries this message carries.
		book.bid = side{}
		book.ask = side{}
	}

	now := mclock.Now()
	msgLen := len(rawMsg)
	for i, start := range entryStarts {
		end := getEntryEndPos(entryStarts, i, msgLen)
		applyEntrySegment(book, rawMsg[start:end])
	}

	tick := Tick{
		SymbolID:   book.numericID,
		SymbolName: symbol,
		TickTime:   now,
	}
	if book.bid.known {
		tick.BidPrice = book.bid.price
		tick.BidVolume = book.bid.volume
	}
	if book.ask.known {
		tick.AskPrice = book.ask.price
		tick.AskVolume = book.ask.volume
	}
	return tick, tick.HasBothSides()
}

// applyEntrySegment parses one "269=...\x01..." entry and folds it into the
// symbol's bid/ask cache. Single pass, zero allocations beyond the Decimal
// parse (which itself allocates, same as the teacher's accepted trade-off of
// correctness over micro-allocation in non-hot-path fields).
func applyEntrySegment(book *symbolBook, segment string) {
	var entryType, priceStr, sizeStr, action string

	pos := 0
	segLen := len(segment)
	for pos < segLen {
		eqPos := strings.IndexByte(segment[pos:], '=')
		if eqPos == -1 {
			break
		}
		eqPos += pos
		tag := segment[pos:eqPos]

		valueStart := eqPos + 1
		sohPos := strings.IndexByte(segment[valueStart:], '\x01')
		var value string
		var nextPos int
		if sohPos == -1 {
			value = segment[valueStart:]
			nextPos = segLen
		} else {
			value = segment[valueStart : valueStart+sohPos]
			nextPos = valueStart + sohPos + 1
		}

		switch tag {
		case "269":
			entryType = value
		case "270":
			priceStr = value
		case "271":
			sizeStr = value
		case "279":
			action = value
		}
		pos = nextPos
	}

	var target *side
	switch entryType {
	case constants.MdEntryTypeBid:
		target = &book.bid
	case constants.MdEntryTypeOffer:
		target = &book.ask
	default:
		return // trade/open/close/etc entries carry no top-of-book state
	}

	if action == constants.MdUpdateActionDelete {
		*target = side{}
		return
	}

	price, err := mdecimal.Parse(priceStr)
	if err != nil {
		return
	}
	volume, err := mdecimal.Parse(sizeStr)
	if err != nil {
		volume = mdecimal.Zero
	}
	*target = side{price: price, volume: volume, known: true}
}

func findEntryBoundaries(rawMsg string) []int {
	count := strings.Count(rawMsg, "269=")
	if count == 0 {
		return nil
	}
	starts := make([]int, 0, count)
	searchFrom := 0
	for {
		pos := strings.Index(rawMsg[searchFrom:], "269=")
		if pos == -1 {
			break
		}
		starts = append(starts, searchFrom+pos)
		searchFrom += pos + 4
	}
	return starts
}

func getEntryEndPos(entryStarts []int, currentIndex, msgLen int) int {
	if currentIndex < len(entryStarts)-1 {
		return entryStarts[currentIndex+1]
	}
	return msgLen
}
