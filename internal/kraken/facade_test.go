package kraken

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startFakeServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func TestFacadeAddOrderSuccess(t *testing.T) {
	url := startFakeServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		reqid := msg["reqid"]
		conn.WriteJSON(map[string]interface{}{
			"event": "addOrderStatus", "status": "ok", "txid": "T1", "reqid": reqid,
		})
	})

	api, err := openHost(url, SubscriptionSet{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}
	defer api.Close()

	reply := api.AddMarketOrder(Buy, mustDecimal(t, "1.0"), "XBT/USD")
	select {
	case res := <-reply:
		if res.Err != nil || res.Value != "T1" {
			t.Fatalf("expected Ok(T1), got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply")
	}
}

func TestFacadeAddOrderFailure(t *testing.T) {
	url := startFakeServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"event": "addOrderStatus", "status": "error",
			"errorMessage": "insufficient funds", "reqid": msg["reqid"],
		})
	})

	api, err := openHost(url, SubscriptionSet{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}
	defer api.Close()

	reply := api.AddLimitOrder(Sell, mustDecimal(t, "2.0"), mustDecimal(t, "50000"), "XBT/USD")
	select {
	case res := <-reply:
		if res.Err == nil || res.Err.Error() != "insufficient funds" {
			t.Fatalf("expected Err(insufficient funds), got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply")
	}
	if api.StreamClosed() {
		t.Fatalf("an RPC failure must not close the stream")
	}
}

func TestFacadeBookSubscribeAndSnapshot(t *testing.T) {
	url := startFakeServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"event": "subscriptionStatus", "status": "subscribed",
			"channelName": "book-10", "pair": "XBT/USD",
		})
		conn.WriteJSON([]interface{}{
			0,
			map[string]interface{}{
				"as": [][3]string{{"100.0", "1.0", "1"}},
				"bs": [][3]string{{"99.0", "1.0", "1"}},
			},
			"book-10", "XBT/USD",
		})
		var raw json.RawMessage
		conn.ReadJSON(&raw) // keep the connection open until the test closes it
	})

	api, err := openHost(url, SubscriptionSet{BookPairs: []string{"XBT/USD"}, BookDepth: 10}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}
	defer api.Close()

	deadline := time.Now().Add(2 * time.Second)
	var book Book
	var ok bool
	for time.Now().Before(deadline) {
		if book, ok = api.Book("XBT/USD"); ok && len(book.Asks) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ok || len(book.Asks) != 1 || book.Asks[0].PriceStr != "100.0" {
		t.Fatalf("expected book snapshot to populate asks, got %+v", book)
	}
}

func TestFacadeStreamClosedOnTransportClose(t *testing.T) {
	url := startFakeServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	api, err := openHost(url, SubscriptionSet{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !api.StreamClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !api.StreamClosed() {
		t.Fatalf("expected StreamClosed() to become true after server closed the connection")
	}
}

func TestFacadeCloseStopsLoop(t *testing.T) {
	url := startFakeServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	api, err := openHost(url, SubscriptionSet{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}

	done := make(chan struct{})
	go func() {
		api.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return promptly")
	}
	if !api.StreamClosed() {
		t.Fatalf("expected stream closed after Close")
	}
}

func TestFacadeLivenessTimeoutClosesStream(t *testing.T) {
	pinged := make(chan struct{}, 1)
	url := startFakeServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["event"] == "ping" {
				select {
				case pinged <- struct{}{}:
				default:
				}
				// Deliberately never reply with a pong: the client must
				// treat the silence as fatal after livenessPongTimeout.
			}
		}
	})

	api, err := openHost(url, SubscriptionSet{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openHost: %v", err)
	}
	defer api.Close()

	select {
	case <-pinged:
	case <-time.After(livenessSilence + 500*time.Millisecond):
		t.Fatalf("expected a ping after %s of silence", livenessSilence)
	}

	deadline := time.Now().Add(livenessPongTimeout + time.Second)
	for !api.StreamClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !api.StreamClosed() {
		t.Fatalf("expected StreamClosed() after an unanswered ping")
	}
}
