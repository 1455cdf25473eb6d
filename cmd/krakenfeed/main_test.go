package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"krakenws/internal/kraken"
)

type fakeRecorder struct {
	recorded []string
}

func (f *fakeRecorder) RecordClosedOrder(_ context.Context, orderID string, _ kraken.OpenOrder) error {
	f.recorded = append(f.recorded, orderID)
	return nil
}

func TestRecordClosedOrdersSkipsNonTerminal(t *testing.T) {
	rec := &fakeRecorder{}
	prev := make(map[string]kraken.OrderStatus)
	orders := map[string]kraken.OpenOrder{
		"O1": {OrderID: "O1", Status: kraken.OrderOpen},
	}

	recordClosedOrders(context.Background(), rec, prev, orders, zerolog.Nop())

	if len(rec.recorded) != 0 {
		t.Fatalf("expected no records for a non-terminal order, got %v", rec.recorded)
	}
	if prev["O1"] != kraken.OrderOpen {
		t.Fatalf("expected prevOrders to track open status, got %v", prev["O1"])
	}
}

func TestRecordClosedOrdersRecordsNewTerminalTransition(t *testing.T) {
	rec := &fakeRecorder{}
	prev := map[string]kraken.OrderStatus{"O1": kraken.OrderOpen}
	orders := map[string]kraken.OpenOrder{
		"O1": {OrderID: "O1", Status: kraken.OrderClosed},
	}

	recordClosedOrders(context.Background(), rec, prev, orders, zerolog.Nop())

	if len(rec.recorded) != 1 || rec.recorded[0] != "O1" {
		t.Fatalf("expected O1 recorded once, got %v", rec.recorded)
	}
}

func TestRecordClosedOrdersDoesNotRecordTwice(t *testing.T) {
	rec := &fakeRecorder{}
	prev := make(map[string]kraken.OrderStatus)
	orders := map[string]kraken.OpenOrder{
		"O1": {OrderID: "O1", Status: kraken.OrderCanceled},
	}

	recordClosedOrders(context.Background(), rec, prev, orders, zerolog.Nop())
	recordClosedOrders(context.Background(), rec, prev, orders, zerolog.Nop())

	if len(rec.recorded) != 1 {
		t.Fatalf("expected a single record across repeated polls, got %v", rec.recorded)
	}
}

func TestRecordClosedOrdersPrunesDisappearedOrders(t *testing.T) {
	rec := &fakeRecorder{}
	prev := map[string]kraken.OrderStatus{"O1": kraken.OrderOpen}

	recordClosedOrders(context.Background(), rec, prev, map[string]kraken.OpenOrder{}, zerolog.Nop())

	if _, ok := prev["O1"]; ok {
		t.Fatalf("expected O1 pruned from prevOrders once absent from the table")
	}
}
