package kraken

import "errors"

// Sentinel errors for the four non-RPC error kinds from the streaming
// core's error design. RPC failures are not sentinels: they are delivered
// as the literal exchange error string on the originating reply channel.
var (
	// ErrTransport covers TLS/dial/IO/framing failures. Fatal: the event
	// loop closes the socket and sets the store's stream-closed flag.
	ErrTransport = errors.New("kraken: transport error")

	// ErrProtocol covers malformed JSON, missing fields, and unexpected
	// channel messages. Non-fatal: the offending frame is dropped.
	ErrProtocol = errors.New("kraken: protocol error")

	// ErrIntegrity covers book checksum mismatches and user-channel
	// sequence gaps. Non-fatal at the stream level: the affected
	// subscription is flagged for a resubscribe cycle.
	ErrIntegrity = errors.New("kraken: integrity error")

	// ErrLiveness is returned when no inbound message arrives in the
	// expected interval and an outstanding ping goes unanswered. Fatal.
	ErrLiveness = errors.New("kraken: liveness error")

	// ErrStreamClosed is returned to callers whose request reaches a
	// facade whose event loop has already exited.
	ErrStreamClosed = errors.New("kraken: stream closed")
)
