package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketcore/broadcast"
	"marketcore/distributor"
	"marketcore/marketdata"
	"marketcore/matching"
	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"
	"marketcore/persistence"
	"marketcore/publisher"
	"marketcore/session"
	"marketcore/tickqueue"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

// SessionSettings bundles the quickfix wiring StartSession needs to hand to
// session.Client.Start — kept out of Config because quickfix.Settings is
// built from a QuickFIX-format file, not the coordinator's own YAML.
type SessionSettings struct {
	Settings     *quickfix.Settings
	StoreFactory quickfix.MessageStoreFactory
	LogFactory   quickfix.LogFactory
}

const (
	distributorConsumerName = "coordinator-queue"
	distributorBufferSize   = 4096
	symbolSyncInterval      = time.Minute
)

// Coordinator is the composition root (Module L). It owns the singleton
// session client, distributor, tick queue, persistence writer, broadcast
// hub, publisher, and matching engine, and is the only component that holds
// a reference to all of them — every other component communicates one-way
// through callbacks or channels, never back-references, per spec.md §9.
type Coordinator struct {
	cfg    Config
	logger *zap.Logger

	Session     *session.Client
	Parser      *marketdata.Parser
	Distributor *distributor.Distributor
	Queue       *tickqueue.Queue
	Flusher     *tickqueue.Flusher
	Writer      *persistence.Writer
	Hub         *broadcast.Hub
	Publisher   *publisher.Publisher
	Engine      *matching.Engine
	Orders      *OrderIndex

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New wires every singleton component per SPEC_FULL.md's Module L, without
// starting anything — Start does that.
func New(cfg Config, logger *zap.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coordinator: invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer, err := persistence.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("coordinator: open persistence: %w", err)
	}

	queue := tickqueue.New(cfg.Queue.MaxSize)
	flusher := tickqueue.NewFlusher(queue, writer, cfg.Queue.FlushInterval, cfg.Queue.BatchSize, logger)

	dist := distributor.New()
	hub := broadcast.NewHub()
	pub := publisher.New(cfg.Publisher.BusURI, cfg.Publisher.Exchange, cfg.Publisher.OutboxCapacity,
		cfg.Publisher.ReconnectBase, cfg.Publisher.ReconnectMax, logger)

	engine := matching.NewEngine()
	if cfg.Fees.MakerRate != "" {
		engine.MakerFeeRate = mdecimal.MustParse(cfg.Fees.MakerRate)
	}
	if cfg.Fees.TakerRate != "" {
		engine.TakerFeeRate = mdecimal.MustParse(cfg.Fees.TakerRate)
	}

	c := &Coordinator{
		cfg:         cfg,
		logger:      logger,
		Session:     session.New(cfg.sessionConfig()),
		Parser:      marketdata.NewParser(),
		Distributor: dist,
		Queue:       queue,
		Flusher:     flusher,
		Writer:      writer,
		Hub:         hub,
		Publisher:   pub,
		Engine:      engine,
		Orders:      NewOrderIndex(),
	}
	c.Session.OnMarketData = c.handleMarketData
	c.Session.OnSecurityList = c.handleSecurityList
	return c, nil
}

// handleMarketData is the session client's one-way callback: parse, then
// fan out to every tick consumer (distributor, queue, broadcast, publisher).
// No consumer failure here blocks another — each is independently bounded.
func (c *Coordinator) handleMarketData(msg *quickfix.Message, isSnapshot bool) {
	tick, ok := c.Parser.Parse(msg, isSnapshot)
	if !ok {
		return
	}
	c.Distributor.Publish(tick)
	c.Queue.Enqueue(tick)
	c.Hub.Publish(tick.SymbolName, tick)
	if err := c.Publisher.Publish(tick); err != nil {
		c.logger.Warn("coordinator: publisher enqueue failed", zap.Error(err))
	}
}

// runSymbolSync is spec.md §5's dedicated symbol sync timer task: on each
// tick it re-persists the session's last-known symbol directory, so a
// directory obtained once at startup still gets written even if no further
// Security List response ever arrives.
func (c *Coordinator) runSymbolSync(ctx context.Context) {
	ticker := time.NewTicker(symbolSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dir := c.Session.State.SymbolDirectory()
			if len(dir) == 0 {
				continue
			}
			records := make([]persistence.SymbolRecord, 0, len(dir))
			for _, info := range dir {
				records = append(records, persistence.SymbolRecord{
					NumericID: info.NumericID, Name: info.Name, Digits: info.Digits,
					TickSize: info.TickSize, UpdatedAt: time.Now().Unix(),
				})
			}
			if err := c.Writer.SyncSymbols(ctx, records); err != nil {
				c.logger.Warn("coordinator: periodic symbol sync failed", zap.Error(err))
			}
		}
	}
}

func (c *Coordinator) handleSecurityList(entries []session.SymbolInfo) {
	records := make([]persistence.SymbolRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, persistence.SymbolRecord{
			NumericID: e.NumericID,
			Name:      e.Name,
			Digits:    e.Digits,
			TickSize:  e.TickSize,
			UpdatedAt: time.Now().Unix(),
		})
	}
	if err := c.Writer.SyncSymbols(context.Background(), records); err != nil {
		c.logger.Warn("coordinator: symbol sync failed", zap.Error(err))
	}
}

// --- Control surface, spec.md §4.L ---

// StartSession brings the FIX session up and starts the background tasks
// (flush timer, publisher reconnect loop) that depend on it running.
func (c *Coordinator) StartSession(ctx context.Context, settings SessionSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("coordinator: session already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.Session.Start(runCtx, settings.Settings, settings.StoreFactory, settings.LogFactory); err != nil {
		cancel()
		c.cancel = nil
		return fmt.Errorf("coordinator: start session: %w", err)
	}

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.Flusher.Run(runCtx)
	}()
	go func() {
		defer c.wg.Done()
		if err := c.Publisher.Run(runCtx); err != nil && runCtx.Err() == nil {
			c.logger.Error("coordinator: publisher run exited", zap.Error(err))
		}
	}()
	go func() {
		defer c.wg.Done()
		c.runSymbolSync(runCtx)
	}()

	c.running = true
	return nil
}

// StopSession tears the session and its dependent background tasks down.
func (c *Coordinator) StopSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}

	err := c.Session.Stop(c.cfg.Session.ShutdownTimeout)
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.running = false
	return err
}

// Status reports the session phase and component telemetry for the
// operator console / external router's status endpoint.
type Status struct {
	SessionPhase    string
	QueueStats      tickqueue.Stats
	PublisherStats  publisher.Stats
	DistributorStat []distributor.Stats
}

func (c *Coordinator) Status() Status {
	return Status{
		SessionPhase:    c.Session.State.Phase().String(),
		QueueStats:      c.Queue.Stats(),
		PublisherStats:  c.Publisher.Stats(),
		DistributorStat: c.Distributor.Stats(),
	}
}

// SubmitOrder runs an order through the matching engine and records the
// outcome in the cross-book order index.
func (c *Coordinator) SubmitOrder(req matching.Request) (*matching.Outcome, error) {
	out, err := c.Engine.Submit(req)
	if err != nil {
		return nil, err
	}
	c.Orders.Record(out)
	for _, tr := range out.Trades {
		// broadcast.Hub's Frame carries a marketdata.Tick regardless of
		// FrameKind; for KindTrade the price/quantity fields double up on
		// both sides since a single trade has no separate bid/ask.
		c.Hub.PublishTrade(req.Symbol, marketdata.Tick{
			SymbolName: req.Symbol,
			BidPrice:   tr.Price, AskPrice: tr.Price,
			BidVolume: tr.Quantity, AskVolume: tr.Quantity,
			TickTime: tr.Time,
		})
	}
	return out, nil
}

// CancelOrder cancels a resting order and updates the order index.
func (c *Coordinator) CancelOrder(symbol string, id midentity.OrderId) (*orderbook.Order, error) {
	o, err := c.Engine.Cancel(symbol, id)
	if err != nil {
		return nil, err
	}
	c.Orders.MarkCancelled(o)
	return o, nil
}

// BookLevel is one price level in an order_book_snapshot response.
type BookLevel struct {
	Price    mdecimal.Decimal
	Quantity mdecimal.Decimal
}

// OrderBookSnapshot returns up to depth price levels per side, best first.
func (c *Coordinator) OrderBookSnapshot(symbol string, depth int) (bids, asks []BookLevel) {
	book := c.Engine.Book(symbol)
	collect := func(side orderbook.Side) []BookLevel {
		levels := make([]BookLevel, 0, depth)
		book.Walk(side, depth, func(lvl *orderbook.PriceLevel) bool {
			qty := mdecimal.Zero
			for el := lvl.Orders.Front(); el != nil; el = el.Next() {
				qty = qty.Add(el.Value.(*orderbook.Order).Remaining)
			}
			levels = append(levels, BookLevel{Price: lvl.Price, Quantity: qty})
			return true
		})
		return levels
	}
	return collect(orderbook.Buy), collect(orderbook.Sell)
}

// PublisherConnect starts the publisher's reconnect loop outside of
// StartSession, for operators who want the bus independent of the FIX leg.
func (c *Coordinator) PublisherConnect(ctx context.Context) error {
	return c.Publisher.Run(ctx)
}

// PublisherDisconnect reports the publisher's current outbox/telemetry state;
// the loop itself is stopped by cancelling the context passed to Run/Start.
func (c *Coordinator) PublisherDisconnect() publisher.Stats {
	return c.Publisher.Stats()
}

// QueueStats reports the tick queue's current depth and counters.
func (c *Coordinator) QueueStats() tickqueue.Stats {
	return c.Queue.Stats()
}

// Close releases the persistence writer's resources. Call after StopSession.
func (c *Coordinator) Close() error {
	return c.Writer.Close()
}
