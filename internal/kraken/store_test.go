package kraken

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return d
}

func TestStoreBookSnapshotReplacesEntirely(t *testing.T) {
	s := NewStore()
	s.WithBook("XBT/USD", func(b *Book) {
		b.Asks = []BookEntry{{Price: mustDecimal(t, "100"), PriceStr: "100", VolumeStr: "1"}}
	})
	s.WithBook("XBT/USD", func(b *Book) {
		b.Asks = []BookEntry{{Price: mustDecimal(t, "200"), PriceStr: "200", VolumeStr: "2"}}
		b.Bids = []BookEntry{{Price: mustDecimal(t, "199"), PriceStr: "199", VolumeStr: "3"}}
	})

	book, ok := s.Book("XBT/USD")
	if !ok {
		t.Fatalf("expected book to exist")
	}
	if len(book.Asks) != 1 || book.Asks[0].PriceStr != "200" {
		t.Fatalf("snapshot did not entirely replace asks: %+v", book.Asks)
	}
	if len(book.Bids) != 1 || book.Bids[0].PriceStr != "199" {
		t.Fatalf("snapshot did not set bids: %+v", book.Bids)
	}
}

func TestStoreBookSnapshotIsIsolatedFromFutureMutation(t *testing.T) {
	s := NewStore()
	s.WithBook("XBT/USD", func(b *Book) {
		b.Asks = []BookEntry{{Price: mustDecimal(t, "100"), PriceStr: "100", VolumeStr: "1"}}
	})

	snap, _ := s.Book("XBT/USD")
	s.WithBook("XBT/USD", func(b *Book) {
		b.Asks[0].PriceStr = "mutated"
	})

	if snap.Asks[0].PriceStr == "mutated" {
		t.Fatalf("snapshot shared backing array with live book")
	}
}

func TestStoreTradeBufferDrainedOnRead(t *testing.T) {
	s := NewStore()
	s.AppendTrade("XBT/USD", PublicTrade{Side: Buy})
	s.AppendTrade("XBT/USD", PublicTrade{Side: Sell})

	first := s.DrainTrades("XBT/USD")
	if len(first) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(first))
	}

	second := s.DrainTrades("XBT/USD")
	if len(second) != 0 {
		t.Fatalf("expected drained buffer to be empty, got %d", len(second))
	}
}

func TestStoreOwnTradesDrainedOnRead(t *testing.T) {
	s := NewStore()
	s.AppendOwnTrade(OwnTrade{OrderID: "O1"})

	if got := s.DrainOwnTrades(); len(got) != 1 {
		t.Fatalf("expected 1 own trade, got %d", len(got))
	}
	if got := s.DrainOwnTrades(); len(got) != 0 {
		t.Fatalf("expected drained own-trades buffer to be empty, got %d", len(got))
	}
}

func TestStoreOpenOrdersSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.WithOrders(func(table map[string]*OpenOrder) {
		table["O1"] = &OpenOrder{OrderID: "O1", Status: OrderOpen}
	})

	snap := s.OpenOrders()
	snap["O1"] = OpenOrder{OrderID: "O1", Status: OrderClosed}

	s.WithOrders(func(table map[string]*OpenOrder) {
		if table["O1"].Status != OrderOpen {
			t.Fatalf("mutating the snapshot affected the live table")
		}
	})
}

func TestStoreStreamClosedIsMonotonic(t *testing.T) {
	s := NewStore()
	if s.StreamClosed() {
		t.Fatalf("new store should not start closed")
	}
	s.SetStreamClosed()
	if !s.StreamClosed() {
		t.Fatalf("expected stream closed after SetStreamClosed")
	}
}
