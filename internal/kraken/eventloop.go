package kraken

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// tickInterval is the event loop's timer cadence for liveness checks and
// subscription reconciliation (spec.md §4.2, "≥ 1s cadence").
const tickInterval = 1 * time.Second

type requestKind int

const (
	requestAddOrder requestKind = iota
	requestCancelOrder
	requestCancelAll
	requestStop
)

// facadeRequest is the MPSC message shape flowing from Sync Facade callers
// into the Event Loop goroutine, standing in for the Rust reference's
// LocalRequest enum (Stop / AddOrder / CancelOrder / CancelAll).
type facadeRequest struct {
	kind     requestKind
	addOrder AddOrderRequest
	txID     string
	reply    chan RPCResult
}

type inboundMessage struct {
	data []byte
	err  error
}

// eventLoop is the single-goroutine scheduler that owns the socket
// exclusively, per spec.md §4.2 and §5. It is never run on more than one
// goroutine at a time.
type eventLoop struct {
	conn     *websocket.Conn
	handler  *protocolHandler
	store    *Store
	requests chan facadeRequest
	log      zerolog.Logger
	done     chan struct{}
}

func newEventLoop(conn *websocket.Conn, handler *protocolHandler, store *Store, log zerolog.Logger) *eventLoop {
	return &eventLoop{
		conn:     conn,
		handler:  handler,
		store:    store,
		requests: make(chan facadeRequest),
		log:      log,
		done:      make(chan struct{}),
	}
}

// run drives the loop until a fatal condition or an explicit Stop request.
// It always marks the store stream-closed and closes the socket before
// returning, and closes l.done so Close() can observe termination.
func (l *eventLoop) run() {
	defer close(l.done)
	defer l.store.SetStreamClosed()
	defer l.conn.Close()

	inbound := make(chan inboundMessage, 1)
	go l.readPump(inbound)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-inbound:
			if msg.err != nil {
				l.log.Error().Err(msg.err).Msg("transport error, closing stream")
				return
			}
			if err := l.handler.OnFrame(msg.data); err != nil {
				l.log.Error().Err(err).Msg("fatal protocol error, closing stream")
				return
			}

		case req := <-l.requests:
			if l.handleRequest(req) {
				return
			}

		case now := <-ticker.C:
			if err := l.handler.CheckLiveness(now); err != nil {
				l.log.Error().Err(err).Msg("liveness timeout, closing stream")
				return
			}
			if err := l.handler.Reconcile(now); err != nil {
				l.log.Error().Err(err).Msg("transport error during reconciliation, closing stream")
				return
			}
		}
	}
}

// handleRequest applies one outbound facade request. It returns true when
// the loop must terminate (Stop, or a transport failure while submitting).
func (l *eventLoop) handleRequest(req facadeRequest) bool {
	switch req.kind {
	case requestStop:
		return true

	case requestAddOrder:
		if err := l.handler.SubmitAddOrder(req.addOrder, req.reply); err != nil {
			req.reply <- RPCResult{Err: err}
			l.log.Error().Err(err).Msg("transport error submitting addOrder, closing stream")
			return true
		}

	case requestCancelOrder:
		if err := l.handler.SubmitCancelOrder(req.txID, req.reply); err != nil {
			req.reply <- RPCResult{Err: err}
			l.log.Error().Err(err).Msg("transport error submitting cancelOrder, closing stream")
			return true
		}

	case requestCancelAll:
		if err := l.handler.SubmitCancelAll(req.reply); err != nil {
			req.reply <- RPCResult{Err: err}
			l.log.Error().Err(err).Msg("transport error submitting cancelAll, closing stream")
			return true
		}
	}
	return false
}

// readPump is the dedicated reader goroutine feeding the loop's select.
// It terminates on the first error, which includes the close this loop
// itself triggers via conn.Close() on the way out.
func (l *eventLoop) readPump(inbound chan<- inboundMessage) {
	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case inbound <- inboundMessage{err: err}:
			case <-l.done:
			}
			return
		}
		if msgType != websocket.TextMessage {
			l.log.Warn().Int("type", msgType).Msg("ignoring non-text frame")
			continue
		}
		select {
		case inbound <- inboundMessage{data: data}:
		case <-l.done:
			return
		}
	}
}
