package kraken

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// reconcileBackoff is the back-off window a subscription must clear before
// it is re-requested, matching the async reference variant's window (the
// blocking variant in original_source/src/ws/conn.rs uses 10s; this module
// encodes the async semantics per spec.md §9's Open Question).
const reconcileBackoff = 5 * time.Second

// livenessSilence and livenessPongTimeout are the two liveness thresholds
// from spec.md §4.2.1.
const (
	livenessSilence     = 2 * time.Second
	livenessPongTimeout = 1 * time.Second
)

// frameWriter is the subset of *websocket.Conn the Protocol Handler needs,
// so tests can substitute a fake peer.
type frameWriter interface {
	WriteJSON(v interface{}) error
}

// SubscriptionSet is the plain-data shape a caller passes to Open (which
// hands it to newProtocolHandler); cmd/krakenfeed builds it from
// config.Config, keeping this package decoupled from the config package.
type SubscriptionSet struct {
	BookPairs    []string
	BookDepth    int
	TradePairs   []string
	OHLCPairs    []string
	OHLCInterval int
	AuthToken    string
	OpenOrders   bool
	OwnTrades    bool
}

// RPCResult is the outcome delivered on the reply channel of an order RPC.
// Value carries the transaction id (empty for a validate-only order or a
// cancel); Err carries the literal exchange-reported failure message.
type RPCResult struct {
	Value string
	Err   error
}

// AddOrderRequest is the facade-facing shape of an order submission.
type AddOrderRequest struct {
	Side         BsType
	OrderType    OrderType
	Pair         string
	Volume       string
	Price        string
	Price2       string
	Leverage     string
	OFlags       string
	UserRef      int32
	ValidateOnly bool
}

type subKey struct {
	Kind ChannelKind
	Pair string
}

type subEntry struct {
	Kind ChannelKind
	Pair string
	Sub  wireSubscription
}

// subState is the per-channel-instance tracking record of spec.md §3
// "Subscription state". Owned exclusively by the event-loop goroutine —
// no lock needed.
type subState struct {
	status           SubscriptionStatus
	lastRequestAt    time.Time
	needsUnsubscribe bool
	sequence         *uint64
}

type pingState struct {
	sentAt time.Time
	reqID  uint64
}

// protocolHandler is the Protocol Handler: it decodes inbound frames,
// mutates the Store under per-entity locks, completes pending RPCs, and
// builds outbound frames. It is driven exclusively by the Event Loop
// goroutine.
type protocolHandler struct {
	log   zerolog.Logger
	store *Store
	conn  frameWriter
	token string

	configured      []subEntry
	configuredByKey map[subKey]subEntry
	tracked         map[subKey]*subState
	bookDepth       int

	pending   map[uint64]chan RPCResult
	nextReqID uint64

	lastInbound     time.Time
	outstandingPing *pingState
}

// newProtocolHandler builds the configured subscription set and its
// tracking state. openHost calls Reconcile once to issue the initial
// subscribe requests; the event loop calls it again on every tick.
func newProtocolHandler(subs SubscriptionSet, store *Store, conn frameWriter, log zerolog.Logger) *protocolHandler {
	depth := subs.BookDepth
	if depth <= 0 {
		depth = 10
	}

	p := &protocolHandler{
		log:             log,
		store:           store,
		conn:            conn,
		token:           subs.AuthToken,
		bookDepth:       depth,
		configuredByKey: make(map[subKey]subEntry),
		tracked:         make(map[subKey]*subState),
		pending:         make(map[uint64]chan RPCResult),
		lastInbound:     time.Now(),
	}

	add := func(e subEntry) {
		key := subKey{Kind: e.Kind, Pair: e.Pair}
		p.configured = append(p.configured, e)
		p.configuredByKey[key] = e
		p.tracked[key] = &subState{}
	}

	for _, pair := range subs.BookPairs {
		add(subEntry{Kind: ChannelBook, Pair: pair, Sub: wireSubscription{Name: "book", Depth: depth}})
	}
	for _, pair := range subs.TradePairs {
		add(subEntry{Kind: ChannelTrade, Pair: pair, Sub: wireSubscription{Name: "trade"}})
	}
	for _, pair := range subs.OHLCPairs {
		add(subEntry{Kind: ChannelOHLC, Pair: pair, Sub: wireSubscription{Name: "ohlc", Interval: subs.OHLCInterval}})
	}
	if subs.OpenOrders {
		add(subEntry{Kind: ChannelOpenOrders, Sub: wireSubscription{Name: "openOrders", Token: subs.AuthToken}})
	}
	if subs.OwnTrades {
		add(subEntry{Kind: ChannelOwnTrades, Sub: wireSubscription{Name: "ownTrades", Token: subs.AuthToken}})
	}

	return p
}

func (p *protocolHandler) nextRequestID() uint64 {
	p.nextReqID++
	return p.nextReqID
}

// Reconcile implements spec.md §4.2.2: unsubscribe anything flagged
// corrupt, subscribe anything configured but not currently subscribed,
// each gated by a 5s per-subscription back-off.
func (p *protocolHandler) Reconcile(now time.Time) error {
	recently := func(t time.Time) bool { return !t.IsZero() && now.Sub(t) < reconcileBackoff }

	for key, st := range p.tracked {
		if st.needsUnsubscribe && st.status == StatusSubscribed && !recently(st.lastRequestAt) {
			if err := p.sendUnsubscribe(key, now); err != nil {
				return err
			}
		}
	}

	for _, entry := range p.configured {
		key := subKey{Kind: entry.Kind, Pair: entry.Pair}
		st := p.tracked[key]
		if st.status != StatusSubscribed && !recently(st.lastRequestAt) {
			if err := p.sendSubscribe(entry, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *protocolHandler) sendSubscribe(entry subEntry, now time.Time) error {
	frame := subscribeFrame{Event: "subscribe", Subscription: entry.Sub}
	if entry.Pair != "" {
		frame.Pair = []string{entry.Pair}
	}
	if err := p.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	p.tracked[subKey{Kind: entry.Kind, Pair: entry.Pair}].lastRequestAt = now
	return nil
}

func (p *protocolHandler) sendUnsubscribe(key subKey, now time.Time) error {
	entry, ok := p.configuredByKey[key]
	if !ok {
		return nil
	}
	frame := unsubscribeFrame{Event: "unsubscribe", Subscription: entry.Sub}
	if key.Pair != "" {
		frame.Pair = []string{key.Pair}
	}
	if err := p.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	p.tracked[key].lastRequestAt = now
	return nil
}

// CheckLiveness implements spec.md §4.2.1. A non-nil error is
// ErrLiveness and fatal; the event loop tears the stream down.
func (p *protocolHandler) CheckLiveness(now time.Time) error {
	if p.outstandingPing == nil {
		if now.Sub(p.lastInbound) >= livenessSilence {
			id := p.nextRequestID()
			if err := p.conn.WriteJSON(pingFrame{Event: "ping", ReqID: id}); err != nil {
				return fmt.Errorf("%w: %v", ErrTransport, err)
			}
			p.outstandingPing = &pingState{sentAt: now, reqID: id}
		}
		return nil
	}
	if now.Sub(p.outstandingPing.sentAt) >= livenessPongTimeout {
		return ErrLiveness
	}
	return nil
}

// OnFrame dispatches one decoded text frame. A returned error is always
// ErrTransport-class and fatal; protocol- and integrity-level problems are
// logged and absorbed here per spec.md §7.
func (p *protocolHandler) OnFrame(raw []byte) error {
	if isArrayFrame(raw) {
		cf, err := parseChannelFrame(raw)
		if err != nil {
			p.log.Warn().Err(err).Msg("dropping malformed channel frame")
			return nil
		}
		p.lastInbound = time.Now()
		return p.applyChannelFrame(cf)
	}

	var ev eventFrame
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.log.Warn().Err(err).Msg("dropping malformed event frame")
		return nil
	}
	p.lastInbound = time.Now()
	return p.applyEventFrame(ev)
}

func (p *protocolHandler) applyEventFrame(ev eventFrame) error {
	switch ev.Event {
	case "systemStatus":
		p.store.SetSystemStatus(SystemStatus(ev.Status))
	case "subscriptionStatus":
		p.handleSubscriptionStatus(ev)
	case "pong":
		p.handlePong(ev)
	case "heartbeat":
		// no-op: lastInbound already updated by OnFrame.
	case "addOrderStatus", "cancelOrderStatus", "cancelAllStatus":
		p.completeRPC(ev)
	case "error":
		p.log.Warn().Str("message", ev.ErrorMessage).Msg("exchange error event")
	default:
		p.log.Warn().Str("event", ev.Event).Msg("unrecognized event frame")
	}
	return nil
}

func (p *protocolHandler) handleSubscriptionStatus(ev eventFrame) {
	kind, ok := channelKindOf(ev.ChannelName)
	if !ok {
		p.log.Warn().Str("channelName", ev.ChannelName).Msg("subscriptionStatus for unrecognized channel")
		return
	}
	key := subKey{Kind: kind, Pair: ev.Pair}
	st, ok := p.tracked[key]
	if !ok {
		st = &subState{}
		p.tracked[key] = st
	}

	status := SubscriptionStatus(ev.Status)
	if status == StatusError {
		p.log.Error().Str("channelName", ev.ChannelName).Str("pair", ev.Pair).Str("message", ev.ErrorMessage).Msg("subscription error")
		st.status = StatusError
		return
	}

	if status == st.status {
		p.log.Warn().Str("channelName", ev.ChannelName).Str("pair", ev.Pair).Str("status", ev.Status).Msg("repeated subscription status")
	}

	transitioningIn := status == StatusSubscribed && st.status != StatusSubscribed
	st.status = status
	if transitioningIn {
		st.needsUnsubscribe = false
		if kind.IsUserData() {
			zero := uint64(0)
			st.sequence = &zero
		}
	}
	if status == StatusUnsubscribed && kind.IsUserData() {
		st.sequence = nil
	}
}

func (p *protocolHandler) handlePong(ev eventFrame) {
	if p.outstandingPing != nil && p.outstandingPing.reqID == ev.ReqID {
		p.outstandingPing = nil
		return
	}
	p.log.Warn().Uint64("reqid", ev.ReqID).Msg("pong without matching outstanding ping")
}

func (p *protocolHandler) completeRPC(ev eventFrame) {
	ch, ok := p.pending[ev.ReqID]
	if !ok {
		p.log.Warn().Uint64("reqid", ev.ReqID).Str("event", ev.Event).Msg("status for unknown request id")
		return
	}
	delete(p.pending, ev.ReqID)

	if ev.Status == "error" {
		ch <- RPCResult{Err: errors.New(ev.ErrorMessage)}
		return
	}
	txid := ev.TxID
	if txid == "" {
		txid = ev.OrderID
	}
	ch <- RPCResult{Value: txid}
}

func (p *protocolHandler) flagNeedsUnsubscribe(key subKey) {
	if st, ok := p.tracked[key]; ok {
		st.needsUnsubscribe = true
	}
}

func (p *protocolHandler) applyChannelFrame(cf channelFrame) error {
	switch cf.Channel {
	case ChannelBook:
		return p.applyBookFrame(cf)
	case ChannelOHLC:
		return p.applyOHLCFrame(cf)
	case ChannelTrade:
		return p.applyTradeFrame(cf)
	case ChannelOpenOrders:
		return p.applyOpenOrdersFrame(cf)
	case ChannelOwnTrades:
		return p.applyOwnTradesFrame(cf)
	}
	return nil
}

func lessAsk(a, b BookEntry) bool { return a.Price.LessThan(b.Price) }
func lessBid(a, b BookEntry) bool { return a.Price.GreaterThan(b.Price) }

func parseLevel(lvl [3]string) (BookEntry, bool) {
	price, err := decimal.NewFromString(lvl[0])
	if err != nil {
		return BookEntry{}, false
	}
	volume, err := decimal.NewFromString(lvl[1])
	if err != nil {
		return BookEntry{}, false
	}
	ts, err := decimal.NewFromString(lvl[2])
	if err != nil {
		return BookEntry{}, false
	}
	return BookEntry{Price: price, Volume: volume, Timestamp: ts, PriceStr: lvl[0], VolumeStr: lvl[1]}, true
}

func buildSide(levels [][3]string, less func(a, b BookEntry) bool, depth int) []BookEntry {
	entries := make([]BookEntry, 0, len(levels))
	for _, lvl := range levels {
		if e, ok := parseLevel(lvl); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	if len(entries) > depth {
		entries = entries[:depth]
	}
	return entries
}

func removeLevel(side []BookEntry, price decimal.Decimal) []BookEntry {
	for i, e := range side {
		if e.Price.Equal(price) {
			return append(side[:i], side[i+1:]...)
		}
	}
	return side
}

func upsertLevel(side []BookEntry, e BookEntry, less func(a, b BookEntry) bool) []BookEntry {
	for i, cur := range side {
		if cur.Price.Equal(e.Price) {
			side[i] = e
			return side
		}
		if less(e, cur) {
			side = append(side, BookEntry{})
			copy(side[i+1:], side[i:])
			side[i] = e
			return side
		}
	}
	return append(side, e)
}

func applyLevels(side []BookEntry, updates [][3]string, less func(a, b BookEntry) bool, depth int) []BookEntry {
	for _, lvl := range updates {
		e, ok := parseLevel(lvl)
		if !ok {
			continue
		}
		if e.Volume.IsZero() {
			side = removeLevel(side, e.Price)
			continue
		}
		side = upsertLevel(side, e, less)
	}
	if len(side) > depth {
		side = side[:depth]
	}
	return side
}

// applyBookFrame implements spec.md §4.3.2 / §4.3.2.1.
func (p *protocolHandler) applyBookFrame(cf channelFrame) error {
	pair := cf.Pair
	depth := p.bookDepth
	var checksum string
	var sawChecksum bool
	var integrityFailed bool

	p.store.WithBook(pair, func(book *Book) {
		for _, raw := range cf.Data {
			var probe map[string]json.RawMessage
			if err := json.Unmarshal(raw, &probe); err != nil {
				p.log.Warn().Err(err).Msg("dropping malformed book message")
				continue
			}

			_, hasAs := probe["as"]
			_, hasBs := probe["bs"]
			if hasAs || hasBs {
				var snap bookSnapshot
				json.Unmarshal(raw, &snap)
				book.Asks = buildSide(snap.Asks, lessAsk, depth)
				book.Bids = buildSide(snap.Bids, lessBid, depth)
				book.ChecksumFailed = false
				continue
			}

			var upd bookUpdate
			json.Unmarshal(raw, &upd)
			if len(upd.Asks) > 0 {
				book.Asks = applyLevels(book.Asks, upd.Asks, lessAsk, depth)
			}
			if len(upd.Bids) > 0 {
				book.Bids = applyLevels(book.Bids, upd.Bids, lessBid, depth)
			}
			if upd.Checksum != "" {
				checksum = upd.Checksum
				sawChecksum = true
			}
		}

		if sawChecksum && !verifyChecksum(book.Asks, book.Bids, checksum) {
			book.ChecksumFailed = true
			integrityFailed = true
		}
		book.LastUpdate = time.Now()
	})

	if integrityFailed {
		p.log.Warn().Str("pair", pair).Msg("book checksum mismatch")
		p.flagNeedsUnsubscribe(subKey{Kind: ChannelBook, Pair: pair})
	}
	return nil
}

func decimalFromRaw(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Decimal{}, fmt.Errorf("not a decimal: %s", string(raw))
}

func intFromRaw(raw json.RawMessage) (int64, error) {
	var i int64
	if err := json.Unmarshal(raw, &i); err == nil {
		return i, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v int64
		if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("not an integer: %s", string(raw))
}

func (p *protocolHandler) applyOHLCFrame(cf channelFrame) error {
	for _, raw := range cf.Data {
		var row []json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil || len(row) < 9 {
			p.log.Warn().Msg("dropping malformed ohlc message")
			continue
		}
		last, err1 := decimalFromRaw(row[0])
		end, err2 := decimalFromRaw(row[1])
		open, err3 := decimalFromRaw(row[2])
		high, err4 := decimalFromRaw(row[3])
		low, err5 := decimalFromRaw(row[4])
		closeP, err6 := decimalFromRaw(row[5])
		vwap, err7 := decimalFromRaw(row[6])
		vol, err8 := decimalFromRaw(row[7])
		count, err9 := intFromRaw(row[8])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil || err7 != nil || err8 != nil || err9 != nil {
			p.log.Warn().Msg("dropping malformed ohlc fields")
			continue
		}
		p.store.AppendCandle(cf.Pair, Candle{
			LastUpdate: last, PeriodEnd: end, Open: open, High: high, Low: low,
			Close: closeP, VWAP: vwap, Volume: vol, Trades: count,
		})
	}
	return nil
}

func (p *protocolHandler) applyTradeFrame(cf channelFrame) error {
	for _, raw := range cf.Data {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			p.log.Warn().Msg("dropping malformed trade message")
			continue
		}
		for _, rowRaw := range rows {
			var row []json.RawMessage
			if err := json.Unmarshal(rowRaw, &row); err != nil || len(row) < 4 {
				continue
			}
			price, err1 := decimalFromRaw(row[0])
			volume, err2 := decimalFromRaw(row[1])
			ts, err3 := decimalFromRaw(row[2])
			var sideStr string
			json.Unmarshal(row[3], &sideStr)
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			side := Buy
			if sideStr == "s" || strings.EqualFold(sideStr, "sell") {
				side = Sell
			}
			p.store.AppendTrade(cf.Pair, PublicTrade{Price: price, Volume: volume, Side: side, Timestamp: ts})
		}
	}
	return nil
}

// checkSequence implements the sequence-gap check of spec.md §4.3.4,
// shared by openOrders and ownTrades.
func (p *protocolHandler) checkSequence(kind ChannelKind, cf channelFrame) bool {
	key := subKey{Kind: kind}
	st, ok := p.tracked[key]
	if !ok || cf.Seq == nil {
		return true
	}
	var expected uint64
	if st.sequence != nil {
		expected = *st.sequence + 1
	}
	if *cf.Seq != expected {
		p.log.Warn().Str("channel", string(kind)).Uint64("expected", expected).Uint64("got", *cf.Seq).Msg("sequence gap")
		p.flagNeedsUnsubscribe(key)
		return false
	}
	st.sequence = cf.Seq
	return true
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFlagSet(s string) map[OrderFlag]struct{} {
	if s == "" {
		return nil
	}
	out := make(map[OrderFlag]struct{})
	for _, tok := range strings.Split(s, ",") {
		out[OrderFlag(strings.TrimSpace(tok))] = struct{}{}
	}
	return out
}

func parseMiscSet(s string) map[MiscInfo]struct{} {
	if s == "" {
		return nil
	}
	out := make(map[MiscInfo]struct{})
	for _, tok := range strings.Split(s, ",") {
		out[MiscInfo(strings.TrimSpace(tok))] = struct{}{}
	}
	return out
}

func buildOpenOrder(id string, w openOrderWire) OpenOrder {
	order := OpenOrder{
		OrderID:        id,
		UserRef:        w.UserRef,
		Status:         w.Status,
		OpenTime:       parseDecimalOrZero(w.OpenTime),
		Volume:         parseDecimalOrZero(w.Volume),
		VolumeExecuted: parseDecimalOrZero(w.VolumeExecuted),
		Cost:           parseDecimalOrZero(w.Cost),
		Fee:            parseDecimalOrZero(w.Fee),
		AveragePrice:   parseDecimalOrZero(w.AveragePrice),
		Flags:          parseFlagSet(w.OFlags),
		Misc:           parseMiscSet(w.Misc),
		LastUpdate:     time.Now(),
	}
	if w.StartTime != "" {
		v := parseDecimalOrZero(w.StartTime)
		order.StartTime = &v
	}
	if w.ExpireTime != "" {
		v := parseDecimalOrZero(w.ExpireTime)
		order.ExpireTime = &v
	}
	if w.Description != nil {
		desc := OrderDescription{
			Pair:      w.Description.Pair,
			Side:      w.Description.Type,
			OrderType: OrderType(w.Description.OrderType),
			Price:     parseDecimalOrZero(w.Description.Price),
			Price2:    parseDecimalOrZero(w.Description.Price2),
			Order:     w.Description.Order,
		}
		if w.Description.Leverage != "" {
			lev := parseDecimalOrZero(w.Description.Leverage)
			desc.Leverage = &lev
		}
		order.Description = desc
	}
	return order
}

// applyOpenOrdersFrame implements spec.md §4.3.4's openOrders rules.
func (p *protocolHandler) applyOpenOrdersFrame(cf channelFrame) error {
	if !p.checkSequence(ChannelOpenOrders, cf) {
		return nil
	}
	for _, raw := range cf.Data {
		var patches []openOrderPayload
		if err := json.Unmarshal(raw, &patches); err != nil {
			p.log.Warn().Err(err).Msg("dropping malformed openOrders message")
			continue
		}
		for _, patch := range patches {
			for id, w := range patch {
				id, w := id, w
				p.store.WithOrders(func(table map[string]*OpenOrder) {
					existing, exists := table[id]
					if !exists {
						order := buildOpenOrder(id, w)
						if order.Status.IsTerminal() {
							return
						}
						table[id] = &order
						return
					}
					if w.Status != "" {
						if w.Status.IsTerminal() {
							delete(table, id)
							return
						}
						existing.Status = w.Status
						existing.LastUpdate = time.Now()
						return
					}
					p.log.Trace().Str("orderid", id).Msg("partial-fill patch ignored")
				})
			}
		}
	}
	return nil
}

// applyOwnTradesFrame implements spec.md §4.3.4's ownTrades rule.
func (p *protocolHandler) applyOwnTradesFrame(cf channelFrame) error {
	if !p.checkSequence(ChannelOwnTrades, cf) {
		return nil
	}
	for _, raw := range cf.Data {
		var patches []ownTradePayload
		if err := json.Unmarshal(raw, &patches); err != nil {
			p.log.Warn().Err(err).Msg("dropping malformed ownTrades message")
			continue
		}
		for _, patch := range patches {
			for _, w := range patch {
				p.store.AppendOwnTrade(OwnTrade{
					OrderID:   w.OrderTxID,
					Pair:      w.Pair,
					Side:      w.Type,
					OrderType: OrderType(w.OrderType),
					Time:      parseDecimalOrZero(w.Time),
					Price:     parseDecimalOrZero(w.Price),
					Volume:    parseDecimalOrZero(w.Volume),
					Cost:      parseDecimalOrZero(w.Cost),
					Fee:       parseDecimalOrZero(w.Fee),
				})
			}
		}
	}
	return nil
}

// SubmitAddOrder implements the AddOrder half of spec.md §4.3.3.
func (p *protocolHandler) SubmitAddOrder(req AddOrderRequest, reply chan RPCResult) error {
	id := p.nextRequestID()
	p.pending[id] = reply
	frame := addOrderFrame{
		Event: "addOrder", Token: p.token, ReqID: id, UserRef: req.UserRef,
		OrderType: req.OrderType, Type: req.Side, Pair: req.Pair,
		Price: req.Price, Price2: req.Price2, Volume: req.Volume,
		Leverage: req.Leverage, OFlags: req.OFlags, Validate: req.ValidateOnly,
	}
	if err := p.conn.WriteJSON(frame); err != nil {
		delete(p.pending, id)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// SubmitCancelOrder implements the CancelOrder half of spec.md §4.3.3.
func (p *protocolHandler) SubmitCancelOrder(txID string, reply chan RPCResult) error {
	id := p.nextRequestID()
	p.pending[id] = reply
	frame := cancelOrderFrame{Event: "cancelOrder", Token: p.token, ReqID: id, TxID: []string{txID}}
	if err := p.conn.WriteJSON(frame); err != nil {
		delete(p.pending, id)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// SubmitCancelAll implements the CancelAll half of spec.md §4.3.3.
func (p *protocolHandler) SubmitCancelAll(reply chan RPCResult) error {
	id := p.nextRequestID()
	p.pending[id] = reply
	frame := cancelAllFrame{Event: "cancelAll", Token: p.token, ReqID: id}
	if err := p.conn.WriteJSON(frame); err != nil {
		delete(p.pending, id)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}
