package kraken

import (
	"sync"
	"sync/atomic"
)

// Store is the process-wide state shared by reference between the event
// loop and every consumer of the Sync Facade. Every field group is
// protected by its own lock so that the loop never needs to hold two
// pair-locks at once and consumers never block each other across
// unrelated pairs, per original_source/src/ws/conn.rs's WsAPIResults
// (per-pair Mutex<BookData>, single AtomicBool for stream_closed)
// generalized to the full set of channels this module tracks.
type Store struct {
	booksMu sync.RWMutex
	books   map[string]*bookHolder

	tradesMu sync.RWMutex
	trades   map[string]*tradeHolder

	candlesMu sync.RWMutex
	candles   map[string]*candleHolder

	ordersMu sync.Mutex
	orders   map[string]*OpenOrder

	ownTradesMu sync.Mutex
	ownTrades   []OwnTrade

	statusMu sync.Mutex
	status   SystemStatus

	streamClosed atomic.Bool
}

type bookHolder struct {
	mu   sync.Mutex
	book Book
}

type tradeHolder struct {
	mu     sync.Mutex
	trades []PublicTrade
}

type candleHolder struct {
	mu      sync.Mutex
	candles []Candle
}

// NewStore returns an empty Store ready to be shared with an event loop.
func NewStore() *Store {
	return &Store{
		books:   make(map[string]*bookHolder),
		trades:  make(map[string]*tradeHolder),
		candles: make(map[string]*candleHolder),
		orders:  make(map[string]*OpenOrder),
	}
}

func (s *Store) bookFor(pair string) *bookHolder {
	s.booksMu.RLock()
	h, ok := s.books[pair]
	s.booksMu.RUnlock()
	if ok {
		return h
	}

	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	if h, ok := s.books[pair]; ok {
		return h
	}
	h = &bookHolder{}
	s.books[pair] = h
	return h
}

func (s *Store) tradesFor(pair string) *tradeHolder {
	s.tradesMu.RLock()
	h, ok := s.trades[pair]
	s.tradesMu.RUnlock()
	if ok {
		return h
	}

	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()
	if h, ok := s.trades[pair]; ok {
		return h
	}
	h = &tradeHolder{}
	s.trades[pair] = h
	return h
}

func (s *Store) candlesFor(pair string) *candleHolder {
	s.candlesMu.RLock()
	h, ok := s.candles[pair]
	s.candlesMu.RUnlock()
	if ok {
		return h
	}

	s.candlesMu.Lock()
	defer s.candlesMu.Unlock()
	if h, ok := s.candles[pair]; ok {
		return h
	}
	h = &candleHolder{}
	s.candles[pair] = h
	return h
}

// WithBook runs fn with pair's book locked for the duration of the call.
// Used exclusively by the Protocol Handler to apply an update batch under
// one short critical section.
func (s *Store) WithBook(pair string, fn func(*Book)) {
	h := s.bookFor(pair)
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.book)
}

// Book returns a lock-clone-return snapshot of pair's book.
func (s *Store) Book(pair string) (Book, bool) {
	s.booksMu.RLock()
	h, ok := s.books[pair]
	s.booksMu.RUnlock()
	if !ok {
		return Book{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneBook(h.book), true
}

// AllBooks returns a lock-clone-return snapshot of every tracked pair's
// book. Each pair's lock is taken and released independently; no two
// pair-locks are ever held at once.
func (s *Store) AllBooks() map[string]Book {
	s.booksMu.RLock()
	pairs := make([]string, 0, len(s.books))
	for pair := range s.books {
		pairs = append(pairs, pair)
	}
	s.booksMu.RUnlock()

	out := make(map[string]Book, len(pairs))
	for _, pair := range pairs {
		if b, ok := s.Book(pair); ok {
			out[pair] = b
		}
	}
	return out
}

func cloneBook(b Book) Book {
	out := Book{ChecksumFailed: b.ChecksumFailed, LastUpdate: b.LastUpdate}
	if b.Asks != nil {
		out.Asks = append([]BookEntry(nil), b.Asks...)
	}
	if b.Bids != nil {
		out.Bids = append([]BookEntry(nil), b.Bids...)
	}
	return out
}

// AppendTrade adds a trade to pair's public-trade buffer. Unbounded
// between drains by design (spec §9 "Unbounded buffers").
func (s *Store) AppendTrade(pair string, t PublicTrade) {
	h := s.tradesFor(pair)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades = append(h.trades, t)
}

// DrainTrades atomically returns and clears pair's trade buffer.
func (s *Store) DrainTrades(pair string) []PublicTrade {
	h := s.tradesFor(pair)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.trades
	h.trades = nil
	return out
}

// AppendCandle adds a candle record to pair's candle buffer.
func (s *Store) AppendCandle(pair string, c Candle) {
	h := s.candlesFor(pair)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.candles = append(h.candles, c)
}

// DrainCandles atomically returns and clears pair's candle buffer.
func (s *Store) DrainCandles(pair string) []Candle {
	h := s.candlesFor(pair)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.candles
	h.candles = nil
	return out
}

// WithOrders runs fn with the open-order table locked. Used by the
// Protocol Handler to apply openOrders patches (insert, status update, or
// terminal-status removal) under a single critical section.
func (s *Store) WithOrders(fn func(map[string]*OpenOrder)) {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	fn(s.orders)
}

// OpenOrders returns a lock-clone-return snapshot of the open-order table.
func (s *Store) OpenOrders() map[string]OpenOrder {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	out := make(map[string]OpenOrder, len(s.orders))
	for id, o := range s.orders {
		out[id] = *o
	}
	return out
}

// AppendOwnTrade adds a trade to the own-trades buffer.
func (s *Store) AppendOwnTrade(t OwnTrade) {
	s.ownTradesMu.Lock()
	defer s.ownTradesMu.Unlock()
	s.ownTrades = append(s.ownTrades, t)
}

// DrainOwnTrades atomically returns and clears the own-trades buffer.
func (s *Store) DrainOwnTrades() []OwnTrade {
	s.ownTradesMu.Lock()
	defer s.ownTradesMu.Unlock()
	out := s.ownTrades
	s.ownTrades = nil
	return out
}

// SetSystemStatus records the exchange-wide operating mode.
func (s *Store) SetSystemStatus(st SystemStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = st
}

// SystemStatus returns the last-observed exchange-wide operating mode.
func (s *Store) SystemStatus() SystemStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// SetStreamClosed marks the stream terminally closed. Monotonic: once
// true, it never reverts.
func (s *Store) SetStreamClosed() {
	s.streamClosed.Store(true)
}

// StreamClosed reports whether the event loop has exited.
func (s *Store) StreamClosed() bool {
	return s.streamClosed.Load()
}
