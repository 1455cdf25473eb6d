// Package audit persists own-trade fills and closed orders to Postgres for
// durable record-keeping beyond the in-memory drain buffers
// internal/kraken.Store holds. Grounded on
// _examples/koshedutech-binance-trading-app/internal/database/db.go's DB
// (pgxpool.Pool wrapper, pool tuning constants, ping-on-construct) and
// repository.go's pattern of one exec-with-args method per write.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"krakenws/internal/kraken"
)

// Sink is a pgx-backed write path for own trades and terminal order states.
type Sink struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New opens a connection pool against dsn and verifies it with a ping,
// using the same pool-tuning values as the teacher's NewDB.
func New(ctx context.Context, dsn string, log zerolog.Logger) (*Sink, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: parse dsn: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("audit: create pool: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	log.Info().Msg("audit sink connected to postgres")
	return &Sink{pool: pool, log: log}, nil
}

// Migrate creates the own_trades and closed_orders tables if absent.
func (s *Sink) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS own_trades (
			trade_id TEXT PRIMARY KEY,
			order_tx_id TEXT NOT NULL,
			pair TEXT NOT NULL,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			price NUMERIC(20,8) NOT NULL,
			volume NUMERIC(20,8) NOT NULL,
			cost NUMERIC(20,8) NOT NULL,
			fee NUMERIC(20,8) NOT NULL,
			traded_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS closed_orders (
			order_id TEXT PRIMARY KEY,
			pair TEXT NOT NULL,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			status TEXT NOT NULL,
			volume NUMERIC(20,8) NOT NULL,
			volume_executed NUMERIC(20,8) NOT NULL,
			average_price NUMERIC(20,8),
			closed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("audit: migrate: %w", err)
		}
	}
	return nil
}

// RecordOwnTrade inserts a fill, ignoring a duplicate trade id.
func (s *Sink) RecordOwnTrade(ctx context.Context, tradeID string, t kraken.OwnTrade) error {
	const q = `
		INSERT INTO own_trades (trade_id, order_tx_id, pair, side, order_type, price, volume, cost, fee, traded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (trade_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		tradeID, t.OrderID, t.Pair, t.Side, t.OrderType,
		t.Price, t.Volume, t.Cost, t.Fee, decimalToTime(t.Time))
	if err != nil {
		return fmt.Errorf("audit: record own trade: %w", err)
	}
	return nil
}

// RecordClosedOrder upserts a terminal order's final state.
func (s *Sink) RecordClosedOrder(ctx context.Context, orderID string, o kraken.OpenOrder) error {
	const q = `
		INSERT INTO closed_orders (order_id, pair, side, order_type, status, volume, volume_executed, average_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			volume_executed = EXCLUDED.volume_executed,
			average_price = EXCLUDED.average_price,
			closed_at = now()`
	_, err := s.pool.Exec(ctx, q,
		orderID, o.Description.Pair, o.Description.Side, o.Description.OrderType, o.Status,
		o.Volume, o.VolumeExecuted, o.AveragePrice)
	if err != nil {
		return fmt.Errorf("audit: record closed order: %w", err)
	}
	return nil
}

// decimalToTime interprets a Kraken wire timestamp (seconds since epoch,
// fractional) as a time.Time.
func decimalToTime(d decimal.Decimal) time.Time {
	secs := d.IntPart()
	frac := d.Sub(decimal.NewFromInt(secs))
	nanos := frac.Mul(decimal.NewFromInt(1e9)).IntPart()
	return time.Unix(secs, nanos)
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}
