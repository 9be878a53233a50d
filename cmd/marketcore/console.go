package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"marketcore/coordinator"
	"marketcore/matching"
	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"

	"github.com/chzyer/readline"
)

// console is the operator REPL, adapted from the teacher's fixclient.Repl:
// same readline completion tree and dispatch-on-first-token loop, but
// driving the coordinator's control surface instead of raw FIX builders.
type console struct {
	coord    *coordinator.Coordinator
	settings coordinator.SessionSettings
}

func newConsole(coord *coordinator.Coordinator, settings coordinator.SessionSettings) *console {
	return &console{coord: coord, settings: settings}
}

func (c *console) run(ctx context.Context) int {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("start"),
		readline.PcItem("stop"),
		readline.PcItem("subscribe"),
		readline.PcItem("unsubscribe"),
		readline.PcItem("order",
			readline.PcItem("buy"),
			readline.PcItem("sell"),
		),
		readline.PcItem("cancel"),
		readline.PcItem("orders"),
		readline.PcItem("book"),
		readline.PcItem("status"),
		readline.PcItem("queue"),
		readline.PcItem("pub",
			readline.PcItem("connect"),
			readline.PcItem("disconnect"),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "marketcore> ",
		HistoryFile:     "/tmp/marketcore_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("marketcore: failed to create readline: %v", err)
		return 1
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			c.coord.StopSession()
			return 0
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "start":
			c.handleStart(ctx)
		case "stop":
			c.handleStop()
		case "subscribe":
			c.handleSubscribe(parts)
		case "unsubscribe":
			c.handleUnsubscribe(parts)
		case "order":
			c.handleOrder(parts)
		case "cancel":
			c.handleCancel(parts)
		case "orders":
			c.handleOrders()
		case "book":
			c.handleBook(parts)
		case "status":
			c.handleStatus()
		case "queue":
			c.handleQueue()
		case "pub":
			c.handlePublisher(parts)
		case "help":
			c.displayHelp()
		case "exit":
			c.coord.StopSession()
			return 0
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

func (c *console) handleStart(ctx context.Context) {
	if err := c.coord.StartSession(ctx, c.settings); err != nil {
		fmt.Printf("start failed: %v\n", err)
		return
	}
	fmt.Println("session starting")
}

func (c *console) handleStop() {
	if err := c.coord.StopSession(); err != nil {
		fmt.Printf("stop failed: %v\n", err)
		return
	}
	fmt.Println("session stopped")
}

func (c *console) handleSubscribe(parts []string) {
	if len(parts) < 2 {
		fmt.Print(`Usage: subscribe <symbol1> [symbol2 ...]
`)
		return
	}
	reqID, err := c.coord.Session.Subscribe(parts[1:], nil)
	if err != nil {
		fmt.Printf("subscribe failed: %v\n", err)
		return
	}
	fmt.Printf("subscribed, MDReqID=%s\n", reqID)
}

func (c *console) handleUnsubscribe(parts []string) {
	if len(parts) < 3 {
		fmt.Print(`Usage: unsubscribe <mdReqId> <symbol1> [symbol2 ...]
`)
		return
	}
	if err := c.coord.Session.Unsubscribe(parts[1], parts[2:]); err != nil {
		fmt.Printf("unsubscribe failed: %v\n", err)
		return
	}
	fmt.Println("unsubscribed")
}

func (c *console) handleOrder(parts []string) {
	if len(parts) < 4 {
		fmt.Print(`Usage: order <buy|sell> <symbol> <qty> [price] [flags...]

Order Flags:
  --type <limit|market>   - Order type (default: limit if price given, else market)
  --tif <gtc|ioc|fok|day> - Time in force (default: gtc; market orders are rejected with gtc)
  --postonly              - Post-only order (maker only)
  --stp <mode>            - Self-trade prevention: none, resting, incoming, both, smallest, decrement

Examples:
  order buy BTC-USD 0.5 50000          - Limit buy 0.5 BTC at 50000
  order sell ETH-USD 2 --type market --tif ioc - Market sell 2 ETH
  order buy BTC-USD 1 49500 --tif ioc  - IOC limit buy
`)
		return
	}

	var side orderbook.Side
	switch strings.ToLower(parts[1]) {
	case "buy":
		side = orderbook.Buy
	case "sell":
		side = orderbook.Sell
	default:
		fmt.Printf("unknown side %q, expected buy or sell\n", parts[1])
		return
	}
	symbol := parts[2]

	qty, err := mdecimal.Parse(parts[3])
	if err != nil {
		fmt.Printf("invalid quantity %q: %v\n", parts[3], err)
		return
	}

	orderType := orderbook.Limit
	price := mdecimal.Zero
	rest := parts[4:]
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "--") {
		price, err = mdecimal.Parse(rest[0])
		if err != nil {
			fmt.Printf("invalid price %q: %v\n", rest[0], err)
			return
		}
		rest = rest[1:]
	} else {
		orderType = orderbook.Market
	}

	tif := matching.GTC
	postOnly := false
	stp := matching.STPNone
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--type":
			i++
			if i >= len(rest) {
				fmt.Println("--type requires a value")
				return
			}
			if rest[i] == "market" {
				orderType = orderbook.Market
			} else {
				orderType = orderbook.Limit
			}
		case "--tif":
			i++
			if i >= len(rest) {
				fmt.Println("--tif requires a value")
				return
			}
			switch strings.ToLower(rest[i]) {
			case "gtc":
				tif = matching.GTC
			case "ioc":
				tif = matching.IOC
			case "fok":
				tif = matching.FOK
			case "day":
				tif = matching.Day
			default:
				fmt.Printf("unknown tif %q\n", rest[i])
				return
			}
		case "--postonly":
			postOnly = true
		case "--stp":
			i++
			if i >= len(rest) {
				fmt.Println("--stp requires a value")
				return
			}
			switch strings.ToLower(rest[i]) {
			case "none":
				stp = matching.STPNone
			case "resting":
				stp = matching.CancelResting
			case "incoming":
				stp = matching.CancelIncoming
			case "both":
				stp = matching.CancelBoth
			case "smallest":
				stp = matching.CancelSmallest
			case "decrement":
				stp = matching.DecrementBoth
			default:
				fmt.Printf("unknown stp mode %q\n", rest[i])
				return
			}
		}
	}

	out, err := c.coord.SubmitOrder(matching.Request{
		OwnerID: "console", Symbol: symbol, Side: side, Type: orderType,
		Price: price, Quantity: qty, TimeInForce: tif, PostOnly: postOnly, STP: stp,
	})
	if err != nil {
		fmt.Printf("order rejected: %v\n", err)
		return
	}

	fmt.Printf("order %s: status=%s trades=%d\n", out.Order.ID, out.Status, len(out.Trades))
	for _, tr := range out.Trades {
		fmt.Printf("  trade %s: %s @ %s (maker fee %s, taker fee %s)\n",
			tr.ID, tr.Quantity, tr.Price, tr.MakerFee, tr.TakerFee)
	}
}

func (c *console) handleCancel(parts []string) {
	if len(parts) < 3 {
		fmt.Print(`Usage: cancel <symbol> <orderId>
`)
		return
	}
	id, err := midentity.ParseOrderId(parts[2])
	if err != nil {
		fmt.Printf("invalid order id %q: %v\n", parts[2], err)
		return
	}
	order, err := c.coord.CancelOrder(parts[1], id)
	if err != nil {
		fmt.Printf("cancel failed: %v\n", err)
		return
	}
	fmt.Printf("cancelled %s\n", order.ID)
}

func (c *console) handleOrders() {
	open := c.coord.Orders.Open()
	if len(open) == 0 {
		fmt.Println("no open orders")
		return
	}
	fmt.Print(`
Orders:
ID                                    Symbol       Side  Remaining     Status
`)
	for _, o := range open {
		fmt.Printf("%-37s %-12s %-5s %-13s %s\n", o.ID, o.Symbol, o.Side, o.Remaining, o.Status)
	}
}

func (c *console) handleBook(parts []string) {
	if len(parts) < 2 {
		fmt.Print(`Usage: book <symbol> [depth]
`)
		return
	}
	depth := 10
	if len(parts) >= 3 {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			depth = n
		}
	}
	bids, asks := c.coord.OrderBookSnapshot(parts[1], depth)
	fmt.Printf("\n%s book 📖\n", parts[1])
	fmt.Println("  Bids                 Asks")
	for i := 0; i < depth && (i < len(bids) || i < len(asks)); i++ {
		var bid, ask string
		if i < len(bids) {
			bid = fmt.Sprintf("%s @ %s", bids[i].Quantity, bids[i].Price)
		}
		if i < len(asks) {
			ask = fmt.Sprintf("%s @ %s", asks[i].Quantity, asks[i].Price)
		}
		fmt.Printf("  %-20s %s\n", bid, ask)
	}
}

func (c *console) handleStatus() {
	st := c.coord.Status()
	log.Printf("session phase: %s", st.SessionPhase)
	log.Printf("queue: len=%d capacity=%d dropped=%d flushed=%d", st.QueueStats.Len, st.QueueStats.Capacity, st.QueueStats.Dropped, st.QueueStats.Flushed)
	log.Printf("publisher: published=%d queued=%d dropped=%d reconnects=%d", st.PublisherStats.Published, st.PublisherStats.Queued, st.PublisherStats.Dropped, st.PublisherStats.Reconnects)
	for _, ds := range st.DistributorStat {
		log.Printf("distributor consumer %q: published=%d dropped=%d", ds.Name, ds.Published, ds.Dropped)
	}
}

func (c *console) handleQueue() {
	s := c.coord.QueueStats()
	fmt.Printf("queue len=%d capacity=%d dropped=%d flushed=%d\n", s.Len, s.Capacity, s.Dropped, s.Flushed)
}

func (c *console) handlePublisher(parts []string) {
	if len(parts) < 2 {
		fmt.Print(`Usage: pub <connect|disconnect>
`)
		return
	}
	switch strings.ToLower(parts[1]) {
	case "connect":
		go func() {
			if err := c.coord.PublisherConnect(context.Background()); err != nil {
				log.Printf("publisher exited: %v", err)
			}
		}()
		fmt.Println("publisher reconnect loop started")
	case "disconnect":
		s := c.coord.PublisherDisconnect()
		fmt.Printf("publisher published=%d queued=%d dropped=%d\n", s.Published, s.Queued, s.Dropped)
	default:
		fmt.Printf("unknown pub subcommand %q\n", parts[1])
	}
}

func (c *console) displayHelp() {
	fmt.Print(`Commands:
  --- Session ---
  start                          - Start the FIX session and background tasks
  stop                           - Stop the session and background tasks
  subscribe <symbol...>          - Subscribe to market data
  unsubscribe <reqId> <symbol...> - Cancel a subscription
  status                         - Show session/queue/publisher/distributor status

  --- Order Entry ---
  order <buy|sell> <symbol> <qty> [price] [flags...]  - Submit a new order
  cancel <symbol> <orderId>      - Cancel a resting order
  orders                         - List open orders
  book <symbol> [depth]          - Show the order book

  --- Infra ---
  queue                          - Show tick queue stats
  pub <connect|disconnect>       - Start the publisher loop / show publisher stats (does not stop the loop)

  help                           - Show this message
  exit                           - Stop the session and quit
`)
}
