package kraken

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Outbound request frames. Field tags and omitempty choices follow
// original_source/src/ws/messages.rs's serde attributes on AddOrderRequest
// and the subscribe/unsubscribe shapes in src/ws/conn.rs.

type wireSubscription struct {
	Name     string `json:"name"`
	Depth    int    `json:"depth,omitempty"`
	Interval int    `json:"interval,omitempty"`
	Token    string `json:"token,omitempty"`
}

type subscribeFrame struct {
	Event        string           `json:"event"`
	ReqID        uint64           `json:"reqid,omitempty"`
	Pair         []string         `json:"pair,omitempty"`
	Subscription wireSubscription `json:"subscription"`
}

type unsubscribeFrame struct {
	Event        string           `json:"event"`
	ReqID        uint64           `json:"reqid,omitempty"`
	Pair         []string         `json:"pair,omitempty"`
	Subscription wireSubscription `json:"subscription"`
}

type pingFrame struct {
	Event string `json:"event"`
	ReqID uint64 `json:"reqid,omitempty"`
}

type addOrderFrame struct {
	Event     string    `json:"event"`
	Token     string    `json:"token"`
	ReqID     uint64    `json:"reqid,omitempty"`
	UserRef   int32     `json:"userref,omitempty"`
	OrderType OrderType `json:"ordertype"`
	Type      BsType    `json:"type"`
	Pair      string    `json:"pair"`
	Price     string    `json:"price,omitempty"`
	Price2    string    `json:"price2,omitempty"`
	Volume    string    `json:"volume,omitempty"`
	Leverage  string    `json:"leverage,omitempty"`
	OFlags    string    `json:"oflags,omitempty"`
	Validate  bool      `json:"validate,omitempty"`
}

type cancelOrderFrame struct {
	Event string   `json:"event"`
	Token string   `json:"token"`
	ReqID uint64   `json:"reqid,omitempty"`
	TxID  []string `json:"txid"`
}

type cancelAllFrame struct {
	Event string `json:"event"`
	Token string `json:"token"`
	ReqID uint64 `json:"reqid,omitempty"`
}

// Inbound object-tagged event frame. Kraken multiplexes several distinct
// event shapes onto the same flat JSON object; rather than a sum type this
// mirrors the teacher's user_data_stream.go approach of decoding once into
// a superset struct and switching on the discriminant field.
type eventFrame struct {
	Event        string `json:"event"`
	ReqID        uint64 `json:"reqid,omitempty"`
	Status       string `json:"status,omitempty"`
	Version      string `json:"version,omitempty"`
	ChannelName  string `json:"channelName,omitempty"`
	Pair         string `json:"pair,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	TxID         string `json:"txid,omitempty"`
	OrderID      string `json:"orderid,omitempty"` // synonym kraken uses for addOrderStatus
	CountOk      int    `json:"count,omitempty"`

	Subscription *wireSubscription `json:"subscription,omitempty"`
}

// bookSnapshot is the "as"/"bs" keyed payload of a book channel snapshot
// message. Each level is [price, volume, timestamp] as wire strings.
type bookSnapshot struct {
	Asks [][3]string `json:"as"`
	Bids [][3]string `json:"bs"`
}

// bookUpdate is an incremental book message: any subset of ask/bid levels
// plus the running checksum.
type bookUpdate struct {
	Asks     [][3]string `json:"a,omitempty"`
	Bids     [][3]string `json:"b,omitempty"`
	Checksum string      `json:"c,omitempty"`
}

// ohlcPayload is the nine-element ohlc channel tuple:
// [time, etime, open, high, low, close, vwap, volume, count].
type ohlcPayload [9]string

// tradePayload is one row of the trade channel's array of trades:
// [price, volume, time, side, ordertype, misc].
type tradePayload [6]string

// openOrderPayload wraps one open-order update: a single-key map from
// order ID to its fields, mirroring Kraken's wire shape.
type openOrderPayload map[string]openOrderWire

type openOrderWire struct {
	UserRef        int32                  `json:"userref,omitempty"`
	Status         OrderStatus            `json:"status,omitempty"`
	OpenTime       string                 `json:"opentm,omitempty"`
	StartTime      string                 `json:"starttm,omitempty"`
	ExpireTime     string                 `json:"expiretm,omitempty"`
	Description    *orderDescriptionWire  `json:"descr,omitempty"`
	Volume         string                 `json:"vol,omitempty"`
	VolumeExecuted string                 `json:"vol_exec,omitempty"`
	Cost           string                 `json:"cost,omitempty"`
	Fee            string                 `json:"fee,omitempty"`
	AveragePrice   string                 `json:"avg_price,omitempty"`
	OFlags         string                 `json:"oflags,omitempty"`
	Misc           string                 `json:"misc,omitempty"`
	LastUpdated    string                 `json:"lastupdated,omitempty"`
}

type orderDescriptionWire struct {
	Pair      string `json:"pair,omitempty"`
	Type      BsType `json:"type,omitempty"`
	OrderType string `json:"ordertype,omitempty"`
	Price     string `json:"price,omitempty"`
	Price2    string `json:"price2,omitempty"`
	Leverage  string `json:"leverage,omitempty"`
	Order     string `json:"order,omitempty"`
}

// ownTradePayload wraps one own-trade update: a single-key map from trade
// ID to its fields.
type ownTradePayload map[string]ownTradeWire

type ownTradeWire struct {
	OrderTxID string `json:"ordertxid,omitempty"`
	Pair      string `json:"pair,omitempty"`
	Type      BsType `json:"type,omitempty"`
	OrderType string `json:"ordertype,omitempty"`
	Time      string `json:"time,omitempty"`
	Price     string `json:"price,omitempty"`
	Volume    string `json:"vol,omitempty"`
	Cost      string `json:"cost,omitempty"`
	Fee       string `json:"fee,omitempty"`
}

// isArrayFrame reports whether a raw websocket text frame is a
// channel-message array, as opposed to an object-tagged event.
func isArrayFrame(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

// channelKindOf maps a Kraken channelName string to a ChannelKind. Book and
// ohlc channel names carry a depth/interval suffix ("book-10", "ohlc-5").
func channelKindOf(name string) (ChannelKind, bool) {
	switch {
	case name == "trade":
		return ChannelTrade, true
	case name == "openOrders":
		return ChannelOpenOrders, true
	case name == "ownTrades":
		return ChannelOwnTrades, true
	case strings.HasPrefix(name, "book-"):
		return ChannelBook, true
	case strings.HasPrefix(name, "ohlc-"):
		return ChannelOHLC, true
	}
	return "", false
}

// channelFrame is the parsed shape of an inbound array message, independent
// of which channel produced it.
type channelFrame struct {
	Channel ChannelKind
	Pair    string // empty for private (user-data) channels
	Seq     *uint64
	Data    []json.RawMessage
}

// parseChannelFrame decomposes a raw channel-message array. Public channel
// frames end in [..., channelName, pair]; private channel frames end in
// [..., channelName] or, when the channel carries sequence numbers,
// [..., channelName, {"sequence": N}].
func parseChannelFrame(raw []byte) (channelFrame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return channelFrame{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if len(elems) < 3 {
		return channelFrame{}, fmt.Errorf("%w: channel frame too short", ErrProtocol)
	}

	last := bytes.TrimSpace(elems[len(elems)-1])
	if len(last) > 0 && last[0] == '{' {
		var seqWrap struct {
			Sequence uint64 `json:"sequence"`
		}
		if err := json.Unmarshal(last, &seqWrap); err != nil {
			return channelFrame{}, fmt.Errorf("%w: bad sequence wrapper: %v", ErrProtocol, err)
		}
		var name string
		if err := json.Unmarshal(elems[len(elems)-2], &name); err != nil {
			return channelFrame{}, fmt.Errorf("%w: bad channel name: %v", ErrProtocol, err)
		}
		kind, ok := channelKindOf(name)
		if !ok {
			return channelFrame{}, fmt.Errorf("%w: unrecognized channel %q", ErrProtocol, name)
		}
		// User-data channels carry no leading channelID element: the shape
		// is [data, channelName, {sequence}], not [channelID, data, ...].
		return channelFrame{Channel: kind, Seq: &seqWrap.Sequence, Data: elems[:len(elems)-2]}, nil
	}

	var lastStr string
	if err := json.Unmarshal(elems[len(elems)-1], &lastStr); err != nil {
		return channelFrame{}, fmt.Errorf("%w: bad trailing element: %v", ErrProtocol, err)
	}

	if len(elems) >= 4 {
		var name string
		if err := json.Unmarshal(elems[len(elems)-2], &name); err == nil {
			if kind, ok := channelKindOf(name); ok {
				return channelFrame{Channel: kind, Pair: lastStr, Data: elems[1 : len(elems)-2]}, nil
			}
		}
	}

	if kind, ok := channelKindOf(lastStr); ok {
		return channelFrame{Channel: kind, Data: elems[:len(elems)-1]}, nil
	}

	return channelFrame{}, fmt.Errorf("%w: unrecognized channel frame", ErrProtocol)
}
