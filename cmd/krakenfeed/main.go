// Command krakenfeed is a demonstration entrypoint: it loads configuration,
// opens a streaming session against Kraken's websockets API, optionally
// wires the mirror/audit collaborators around it (each guarded by its
// Enabled flag), and always starts the introspection server on :8090.
// Grounded on _examples/koshedutech-binance-trading-app/main.go's shape
// (Load config → construct optional collaborators → run until
// SIGINT/SIGTERM → graceful shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"krakenws/config"
	"krakenws/internal/audit"
	"krakenws/internal/introspect"
	"krakenws/internal/kraken"
	"krakenws/internal/krakenrest"
	"krakenws/internal/logging"
	"krakenws/internal/mirror"
	"krakenws/internal/tokenstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Logging)
	log.Info().Msg("configuration loaded")

	if cfg.SubscribeOpenOrders || cfg.SubscribeOwnTrades {
		if err := ensureToken(&cfg, log); err != nil {
			log.Fatal().Err(err).Msg("failed to obtain websockets token")
		}
	}

	subs := translateSubscriptions(cfg)

	api, err := kraken.Open(subs, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open kraken stream")
	}
	defer api.Close()
	log.Info().Msg("kraken stream opened")

	var mirrorPub *mirror.Publisher
	if cfg.Redis.Enabled {
		mirrorPub, err = mirror.NewPublisher(cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis mirror disabled: construction failed")
		} else {
			defer mirrorPub.Close()
			log.Info().Bool("healthy", mirrorPub.IsHealthy()).Msg("redis mirror enabled")
		}
	}

	var auditSink *audit.Sink
	if cfg.Postgres.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		auditSink, err = audit.New(ctx, cfg.Postgres.DSN, log)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("postgres audit sink disabled: construction failed")
		} else {
			defer auditSink.Close()
			if err := auditSink.Migrate(context.Background()); err != nil {
				log.Warn().Err(err).Msg("audit sink migration failed")
			}
		}
	}

	introspectSrv := introspect.New(api)
	httpSrv := &http.Server{Addr: ":8090", Handler: introspectSrv.Handler()}
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("introspection server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("introspection server stopped")
		}
	}()

	go pollAndMirror(api, mirrorPub, auditSink, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("introspection server shutdown error")
	}
}

// ensureToken obtains a websockets token via internal/krakenrest and, if a
// vault is configured, caches it there for reuse across restarts.
func ensureToken(cfg *config.Config, log zerolog.Logger) error {
	rest := krakenrest.New(os.Getenv("KRAKEN_API_KEY"), os.Getenv("KRAKEN_API_SECRET"), log)

	store, err := tokenstore.NewVaultStore(cfg.Vault)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cached, err := store.Get(ctx, "default"); err == nil && !cached.Expired(time.Now()) {
		cfg.AuthToken = cached.Value
		return nil
	}

	tok, err := rest.GetWebSocketsToken(ctx)
	if err != nil {
		return err
	}
	cfg.AuthToken = tok.Token

	expiry := time.Now().Add(time.Duration(tok.Expires) * time.Second)
	return store.Put(ctx, "default", tokenstore.Token{Value: tok.Token, ExpiresAt: expiry})
}

// translateSubscriptions maps the config-layer request onto the streaming
// core's plain-data SubscriptionSet, keeping internal/kraken decoupled from
// the config package.
func translateSubscriptions(cfg config.Config) kraken.SubscriptionSet {
	return kraken.SubscriptionSet{
		BookPairs:    cfg.BookPairs,
		BookDepth:    cfg.BookDepth,
		TradePairs:   cfg.TradePairs,
		OHLCPairs:    cfg.OHLCPairs,
		OHLCInterval: cfg.OHLCInterval,
		OpenOrders:   cfg.SubscribeOpenOrders,
		OwnTrades:    cfg.SubscribeOwnTrades,
		AuthToken:    cfg.AuthToken,
	}
}

// pollAndMirror periodically drains buffers and republishes them to the
// optional collaborators. A real deployment would drive this from the
// caller's own event loop; this is the demo's minimal polling shape.
func pollAndMirror(api *kraken.API, pub *mirror.Publisher, sink *audit.Sink, log zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prevOrders := make(map[string]kraken.OrderStatus)

	for range ticker.C {
		if api.StreamClosed() {
			log.Warn().Msg("stream closed, stopping poll loop")
			return
		}

		books := api.AllBooks()
		if pub != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			for pair, book := range books {
				if err := pub.Publish(ctx, "book", pair, book); err != nil {
					log.Debug().Err(err).Str("pair", pair).Msg("mirror publish failed")
				}
			}
			cancel()
		}

		trades := api.OwnTrades()
		if sink != nil && len(trades) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for i, t := range trades {
				tradeID := t.OrderID + "-" + time.Now().Format("150405.000000") + "-" + strconv.Itoa(i)
				if err := sink.RecordOwnTrade(ctx, tradeID, t); err != nil {
					log.Warn().Err(err).Msg("audit record own trade failed")
				}
			}
			cancel()
		}

		if sink != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			recordClosedOrders(ctx, sink, prevOrders, api.OpenOrders(), log)
			cancel()
		}
	}
}

// closedOrderRecorder is the slice of *audit.Sink that recordClosedOrders
// needs, kept narrow so the diff logic can be tested without a Postgres pool.
type closedOrderRecorder interface {
	RecordClosedOrder(ctx context.Context, orderID string, o kraken.OpenOrder) error
}

// recordClosedOrders diffs the current open-order table against the
// previous poll's statuses and records every order that newly reached a
// terminal status (closed, canceled, expired) to the audit sink. Every
// order still present updates prevOrders for the next poll; orders no
// longer in the table are dropped from prevOrders without being recorded.
// The store removes an order from its table as soon as a terminal status
// arrives, so a kraken.API.OpenOrders snapshot holds no terminal orders and
// this records nothing when fed from one.
func recordClosedOrders(ctx context.Context, sink closedOrderRecorder, prevOrders map[string]kraken.OrderStatus, orders map[string]kraken.OpenOrder, log zerolog.Logger) {
	seen := make(map[string]bool, len(orders))
	for orderID, o := range orders {
		seen[orderID] = true
		prevStatus, tracked := prevOrders[orderID]
		if o.Status.IsTerminal() && (!tracked || prevStatus != o.Status) {
			if err := sink.RecordClosedOrder(ctx, orderID, o); err != nil {
				log.Warn().Err(err).Str("order_id", orderID).Msg("audit record closed order failed")
			}
		}
		prevOrders[orderID] = o.Status
	}
	for orderID := range prevOrders {
		if !seen[orderID] {
			delete(prevOrders, orderID)
		}
	}
}
