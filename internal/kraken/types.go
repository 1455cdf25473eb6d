package kraken

import (
	"time"

	"github.com/shopspring/decimal"
)

// BsType is the buy/sell side of an order or trade.
type BsType string

const (
	Buy  BsType = "buy"
	Sell BsType = "sell"
)

// SystemStatus is the exchange-wide operating mode reported on the
// systemStatus event.
type SystemStatus string

const (
	SystemOnline      SystemStatus = "online"
	SystemMaintenance SystemStatus = "maintenance"
	SystemCancelOnly  SystemStatus = "cancel_only"
	SystemLimitOnly   SystemStatus = "limit_only"
	SystemPostOnly    SystemStatus = "post_only"
)

// SubscriptionStatus is the last-reported status of a subscription.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "subscribed"
	StatusUnsubscribed SubscriptionStatus = "unsubscribed"
	StatusError        SubscriptionStatus = "error"
)

// ChannelKind identifies the class of a subscribed channel.
type ChannelKind string

const (
	ChannelBook       ChannelKind = "book"
	ChannelOHLC       ChannelKind = "ohlc"
	ChannelTrade      ChannelKind = "trade"
	ChannelOpenOrders ChannelKind = "openOrders"
	ChannelOwnTrades  ChannelKind = "ownTrades"
)

// IsUserData reports whether a channel kind carries per-message sequence
// numbers and requires an auth token.
func (k ChannelKind) IsUserData() bool {
	return k == ChannelOpenOrders || k == ChannelOwnTrades
}

// OrderType is the Kraken order type.
type OrderType string

const (
	OrderMarket          OrderType = "market"
	OrderLimit           OrderType = "limit"
	OrderStopLoss        OrderType = "stop-loss"
	OrderTakeProfit      OrderType = "take-profit"
	OrderStopLossLimit   OrderType = "stop-loss-limit"
	OrderTakeProfitLimit OrderType = "take-profit-limit"
	OrderSettlePosition  OrderType = "settle-position"
)

// OrderStatus is the lifecycle status of an order in the open-order table.
// Per the table invariant, an order is present in the table iff its last
// observed status is Pending or Open.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderOpen     OrderStatus = "open"
	OrderClosed   OrderStatus = "closed"
	OrderCanceled OrderStatus = "canceled"
	OrderExpired  OrderStatus = "expired"
)

// IsTerminal reports whether the status removes the order from the table.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderClosed || s == OrderCanceled || s == OrderExpired
}

// OrderFlag is a per-order option flag, supplemented from
// original_source/src/ws/messages.rs (OrderInfo.oflags) — the distilled
// spec does not name these individually but requires "flag sets" to be
// preserved on open-order records.
type OrderFlag string

const (
	FlagPost  OrderFlag = "post"
	FlagFcib  OrderFlag = "fcib"
	FlagFciq  OrderFlag = "fciq"
	FlagNompp OrderFlag = "nompp"
)

// MiscInfo is a per-order miscellaneous status flag, supplemented from the
// same source as OrderFlag.
type MiscInfo string

const (
	MiscStopped     MiscInfo = "stopped"
	MiscTouched     MiscInfo = "touched"
	MiscLiquidated  MiscInfo = "liquidated"
	MiscPartialFill MiscInfo = "partial"
)

// BookEntry is one price level of an order book. Volume and Timestamp are
// parsed decimals for ordering and arithmetic; PriceStr and VolumeStr are
// the exchange's original digit strings, retained verbatim because the
// book checksum is computed over the raw string form, not a re-formatted
// decimal (see checksum.go).
type BookEntry struct {
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp decimal.Decimal
	PriceStr  string
	VolumeStr string
}

// Book is the reconstructed order book for one subscribed pair.
type Book struct {
	Asks           []BookEntry // ascending by price
	Bids           []BookEntry // descending by price
	ChecksumFailed bool
	LastUpdate     time.Time
}

// Candle is one OHLC record. Kraken may send several partial candles for
// the same PeriodEnd; the record with the greatest LastUpdate supersedes
// earlier ones for that period (spec.md §3).
type Candle struct {
	LastUpdate decimal.Decimal
	PeriodEnd  decimal.Decimal
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	VWAP       decimal.Decimal
	Volume     decimal.Decimal
	Trades     int64
}

// PublicTrade is one trade print on a public trade channel.
type PublicTrade struct {
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Side      BsType
	Timestamp decimal.Decimal
}

// OrderDescription is the human-readable order description Kraken attaches
// to open-order records, supplemented from
// original_source/src/ws/messages.rs OrderDescriptionInfo.
type OrderDescription struct {
	Pair      string
	Side      BsType
	OrderType OrderType
	Price     decimal.Decimal
	Price2    decimal.Decimal
	Leverage  *decimal.Decimal
	Order     string
}

// OpenOrder is one entry of the open-order table.
type OpenOrder struct {
	OrderID        string
	UserRef        int32
	Status         OrderStatus
	OpenTime       decimal.Decimal
	StartTime      *decimal.Decimal
	ExpireTime     *decimal.Decimal
	Description    OrderDescription
	Volume         decimal.Decimal
	VolumeExecuted decimal.Decimal
	Cost           decimal.Decimal
	Fee            decimal.Decimal
	AveragePrice   decimal.Decimal
	Flags          map[OrderFlag]struct{}
	Misc           map[MiscInfo]struct{}
	LastUpdate     time.Time
}

// OwnTrade is one entry of the own-trades buffer.
type OwnTrade struct {
	OrderID   string
	Pair      string
	Side      BsType
	OrderType OrderType
	Time      decimal.Decimal
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Cost      decimal.Decimal
	Fee       decimal.Decimal
}
