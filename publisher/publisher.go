// Package publisher is the at-least-once bridge from ticks to the
// downstream message bus (Module I): a topic exchange, publisher confirms,
// and a bounded outbox that survives a broker reconnect. The reconnect loop
// is grounded on the polymarket-mm WSFeed.Run pattern (exponential backoff
// 1s→30s, resubscribe/redeclare on reconnect); the transport itself is
// amqp091-go, the only message-bus client library present in the pack.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"marketcore/marketdata"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	initialBackoff   = time.Second
	maxReconnectWait = 30 * time.Second
	defaultExchange  = "market.data"
)

// wirePayload is the stable JSON shape published to the bus, spec.md §6.
type wirePayload struct {
	SymbolID   uint32 `json:"symbol_id"`
	SymbolName string `json:"symbol_name"`
	BidPrice   string `json:"bid_price"`
	AskPrice   string `json:"ask_price"`
	BidVolume  string `json:"bid_volume"`
	AskVolume  string `json:"ask_volume"`
	TickTime   int64  `json:"tick_time"`
}

type outboxItem struct {
	routingKey string
	body       []byte
}

// Publisher batches ticks onto a bounded outbox and drains it to RabbitMQ.
// Publish is safe to call concurrently with Run.
type Publisher struct {
	url      string
	exchange string

	reconnectBase time.Duration
	reconnectMax  time.Duration

	outbox chan outboxItem

	logger *zap.Logger

	published  atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
}

// New builds a Publisher. reconnectBase/reconnectMax of zero fall back to
// the 1s/30s defaults grounded on the polymarket-mm WSFeed.Run pattern.
func New(url string, exchange string, outboxSize int, reconnectBase, reconnectMax time.Duration, logger *zap.Logger) *Publisher {
	if exchange == "" {
		exchange = defaultExchange
	}
	if outboxSize <= 0 {
		outboxSize = 10_000
	}
	if reconnectBase <= 0 {
		reconnectBase = initialBackoff
	}
	if reconnectMax <= 0 {
		reconnectMax = maxReconnectWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		url:           url,
		exchange:      exchange,
		reconnectBase: reconnectBase,
		reconnectMax:  reconnectMax,
		outbox:        make(chan outboxItem, outboxSize),
		logger:        logger,
	}
}

// Publish enqueues tick for delivery under routing key "tick.<symbol>". If
// the outbox is full, the oldest queued item is dropped to make room and
// the drop is counted — never blocks the caller.
func (p *Publisher) Publish(tick marketdata.Tick) error {
	body, err := json.Marshal(wirePayload{
		SymbolID:   tick.SymbolID,
		SymbolName: tick.SymbolName,
		BidPrice:   tick.BidPrice.String(),
		AskPrice:   tick.AskPrice.String(),
		BidVolume:  tick.BidVolume.String(),
		AskVolume:  tick.AskVolume.String(),
		TickTime:   int64(tick.TickTime),
	})
	if err != nil {
		return fmt.Errorf("publisher: marshal tick: %w", err)
	}
	item := outboxItem{routingKey: "tick." + tick.SymbolName, body: body}

	select {
	case p.outbox <- item:
		return nil
	default:
	}
	select {
	case <-p.outbox:
		p.dropped.Add(1)
	default:
	}
	select {
	case p.outbox <- item:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Run connects and redelivers the outbox until ctx is cancelled,
// reconnecting with exponential backoff on any connection failure.
func (p *Publisher) Run(ctx context.Context) error {
	backoff := p.reconnectBase
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := p.connectAndDrain(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		p.reconnects.Add(1)
		p.logger.Warn("publisher: disconnected, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > p.reconnectMax {
			backoff = p.reconnectMax
		}
	}
}

func (p *Publisher) connectAndDrain(ctx context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 64))
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	p.logger.Info("publisher: connected", zap.String("exchange", p.exchange))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("connection closed: %w", err)
			}
			return fmt.Errorf("connection closed")
		case item := <-p.outbox:
			if err := p.publishOne(ctx, ch, confirms, item); err != nil {
				// Put it back so the next connection attempt redelivers it —
				// at-least-once, duplicates are expected on reconnect.
				p.requeue(item)
				return err
			}
		}
	}
}

func (p *Publisher) publishOne(ctx context.Context, ch *amqp.Channel, confirms <-chan amqp.Confirmation, item outboxItem) error {
	err := ch.PublishWithContext(ctx, p.exchange, item.routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        item.body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("broker nacked publish")
		}
		p.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return fmt.Errorf("publish confirm timed out")
	}
}

func (p *Publisher) requeue(item outboxItem) {
	select {
	case p.outbox <- item:
	default:
		p.dropped.Add(1)
	}
}

// Stats reports outbox telemetry for operator status.
type Stats struct {
	Published  int64
	Dropped    int64
	Reconnects int64
	Queued     int
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published:  p.published.Load(),
		Dropped:    p.dropped.Load(),
		Reconnects: p.reconnects.Load(),
		Queued:     len(p.outbox),
	}
}
