package marketdata

import (
	"testing"

	"marketcore/constants"

	"github.com/quickfixgo/quickfix"
)

type fixtureEntry struct {
	entryType string
	price     string
	size      string
	action    string // only used for incremental messages; "" means New
}

func buildMdMessage(t *testing.T, msgType, symbol string, entries []fixtureEntry) *quickfix.Message {
	t.Helper()
	m := quickfix.NewMessage()
	m.Header.SetString(constants.TagMsgType, msgType)
	m.Header.SetString(constants.TagSenderCompId, "TEST")
	m.Header.SetString(constants.TagTargetCompId, "TEST")
	m.Body.SetString(constants.TagSymbol, symbol)

	if len(entries) == 0 {
		m.Body.SetString(constants.TagNoMdEntries, "0")
		return m
	}

	group := quickfix.NewRepeatingGroup(
		constants.TagNoMdEntries,
		quickfix.GroupTemplate{
			quickfix.GroupElement(constants.TagMdEntryType),
			quickfix.GroupElement(constants.TagMdEntryPx),
			quickfix.GroupElement(constants.TagMdEntrySize),
			quickfix.GroupElement(constants.TagMdEntryUpdateAction),
		},
	)
	for _, e := range entries {
		entry := group.Add()
		entry.SetString(constants.TagMdEntryType, e.entryType)
		entry.SetString(constants.TagMdEntryPx, e.price)
		entry.SetString(constants.TagMdEntrySize, e.size)
		if e.action != "" {
			entry.SetString(constants.TagMdEntryUpdateAction, e.action)
		}
	}
	m.Body.SetGroup(group)
	return m
}

func TestParser_SnapshotBothSidesKnown(t *testing.T) {
	p := NewParser()
	msg := buildMdMessage(t, constants.MsgTypeMarketDataSnapshot, "BTC-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeBid, price: "50000.00", size: "1.5"},
		{entryType: constants.MdEntryTypeOffer, price: "50010.00", size: "2.0"},
	})

	tick, ok := p.Parse(msg, true)
	if !ok {
		t.Fatal("expected both sides known after a full snapshot")
	}
	if tick.SymbolName != "BTC-USD" {
		t.Fatalf("SymbolName = %q, want BTC-USD", tick.SymbolName)
	}
	if tick.BidPrice.String() != "50000" {
		t.Fatalf("BidPrice = %s, want 50000", tick.BidPrice.String())
	}
	if tick.AskPrice.String() != "50010" {
		t.Fatalf("AskPrice = %s, want 50010", tick.AskPrice.String())
	}
}

func TestParser_IncrementalOneSideRetainsOther(t *testing.T) {
	p := NewParser()
	snapshot := buildMdMessage(t, constants.MsgTypeMarketDataSnapshot, "ETH-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeBid, price: "3000.00", size: "4"},
		{entryType: constants.MdEntryTypeOffer, price: "3001.00", size: "5"},
	})
	if _, ok := p.Parse(snapshot, true); !ok {
		t.Fatal("setup snapshot should have both sides known")
	}

	incremental := buildMdMessage(t, constants.MsgTypeMarketDataIncremental, "ETH-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeBid, price: "3000.50", size: "4.5", action: constants.MdUpdateActionChange},
	})
	tick, ok := p.Parse(incremental, false)
	if !ok {
		t.Fatal("expected both sides still known after a one-sided incremental update")
	}
	if tick.BidPrice.String() != "3000.5" {
		t.Fatalf("BidPrice = %s, want 3000.5", tick.BidPrice.String())
	}
	if tick.AskPrice.String() != "3001" {
		t.Fatalf("AskPrice should be retained at 3001, got %s", tick.AskPrice.String())
	}
}

func TestParser_IncrementalBeforeSnapshotIncomplete(t *testing.T) {
	p := NewParser()
	incremental := buildMdMessage(t, constants.MsgTypeMarketDataIncremental, "SOL-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeBid, price: "150.00", size: "10"},
	})
	_, ok := p.Parse(incremental, false)
	if ok {
		t.Fatal("expected incomplete tick when only one side has ever been observed")
	}
}

func TestParser_DeleteClearsSide(t *testing.T) {
	p := NewParser()
	snapshot := buildMdMessage(t, constants.MsgTypeMarketDataSnapshot, "XRP-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeBid, price: "0.50", size: "1000"},
		{entryType: constants.MdEntryTypeOffer, price: "0.51", size: "800"},
	})
	p.Parse(snapshot, true)

	del := buildMdMessage(t, constants.MsgTypeMarketDataIncremental, "XRP-USD", []fixtureEntry{
		{entryType: constants.MdEntryTypeOffer, price: "0.51", size: "800", action: constants.MdUpdateActionDelete},
	})
	_, ok := p.Parse(del, false)
	if ok {
		t.Fatal("expected incomplete tick after the only known ask level is deleted")
	}
}

func TestParser_NoEntriesYieldsNothing(t *testing.T) {
	p := NewParser()
	msg := buildMdMessage(t, constants.MsgTypeMarketDataSnapshot, "DOGE-USD", nil)
	_, ok := p.Parse(msg, true)
	if ok {
		t.Fatal("expected no tick from a message with zero MD entries")
	}
}
