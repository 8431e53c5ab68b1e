package stock_test

import (
	"context"
	"testing"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

func TestEventHandlersObserveUpdatedState(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)

	var seen []stock.ReservedEvent
	l.On(stock.TopicStockReserved, func(payload interface{}) {
		evt, ok := payload.(stock.ReservedEvent)
		if !ok {
			t.Errorf("payload type got=%T want=stock.ReservedEvent", payload)
			return
		}

		// Handlers fire synchronously after the mutation, so a read-back
		// through the ledger must already show the hold.
		lock, _ := l.GetStockInfo(evt.ProductID)
		if lock.LockedQuantity != evt.Quantity {
			t.Errorf("handler saw stale state: locked=%d want=%d", lock.LockedQuantity, evt.Quantity)
		}
		seen = append(seen, evt)
	})

	if _, err := l.Reserve(context.Background(), stock.ReservationRequest{
		ProductID: "P100", Quantity: 10, ReservedBy: "user1", Type: stock.Cart,
	}); err != nil {
		t.Fatal(err)
	}

	if len(seen) != 1 {
		t.Fatalf("event count got=%d want=1", len(seen))
	}
	if seen[0].AvailableStock != 90 {
		t.Errorf("availableStock got=%d want=90", seen[0].AvailableStock)
	}
	if seen[0].ReservationID == "" {
		t.Error("reservationId not set on event")
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)

	l.On(stock.TopicStockUpdated, func(payload interface{}) {
		panic("subscriber bug")
	})

	var delivered int
	l.On(stock.TopicStockUpdated, func(payload interface{}) {
		delivered++
	})

	result, err := l.ProcessSale(context.Background(), stock.SaleEvent{
		ProductID: "P100", Quantity: 5, OrderID: "ORDER-001",
	})
	if err != nil {
		t.Fatalf("panicking subscriber failed the operation: %v", err)
	}
	if result.NewStock != 95 {
		t.Errorf("newStock got=%d want=95", result.NewStock)
	}
	if delivered != 1 {
		t.Errorf("healthy subscriber delivery count got=%d want=1", delivered)
	}
}

func TestOffStopsDelivery(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)
	ctx := context.Background()

	var count int
	id := l.On(stock.TopicStockUpdated, func(payload interface{}) {
		count++
	})

	if _, err := l.ProcessSale(ctx, stock.SaleEvent{ProductID: "P100", Quantity: 1, OrderID: "ORDER-001"}); err != nil {
		t.Fatal(err)
	}

	l.Off(stock.TopicStockUpdated, id)

	if _, err := l.ProcessSale(ctx, stock.SaleEvent{ProductID: "P100", Quantity: 1, OrderID: "ORDER-002"}); err != nil {
		t.Fatal(err)
	}

	if count != 1 {
		t.Errorf("delivery count got=%d want=1 after unsubscribe", count)
	}
}

func TestSaleAndReturnEventPayloads(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)
	ctx := context.Background()

	var updates []stock.UpdatedEvent
	l.On(stock.TopicStockUpdated, func(payload interface{}) {
		updates = append(updates, payload.(stock.UpdatedEvent))
	})

	if _, err := l.ProcessSale(ctx, stock.SaleEvent{ProductID: "P100", Quantity: 5, OrderID: "ORDER-001"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ProcessReturn(ctx, "P100", 2, "ORDER-001", "damaged"); err != nil {
		t.Fatal(err)
	}

	if len(updates) != 2 {
		t.Fatalf("event count got=%d want=2", len(updates))
	}

	sale := updates[0]
	if sale.Sale == nil {
		t.Fatal("sale update missing sale details")
	}
	if sale.Sale.OrderID != "ORDER-001" {
		t.Errorf("sale orderId got=%s want=ORDER-001", sale.Sale.OrderID)
	}
	if sale.NewStock != 95 {
		t.Errorf("sale newStock got=%d want=95", sale.NewStock)
	}

	ret := updates[1]
	if ret.Type != "return" {
		t.Errorf("return event type got=%q want=%q", ret.Type, "return")
	}
	if ret.Sale != nil {
		t.Error("return update should not carry sale details")
	}
	if ret.NewStock != 97 {
		t.Errorf("return newStock got=%d want=97", ret.NewStock)
	}
}

func TestReleaseEvent(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)
	ctx := context.Background()

	var released []stock.ReleasedEvent
	l.On(stock.TopicStockReleased, func(payload interface{}) {
		released = append(released, payload.(stock.ReleasedEvent))
	})

	res, err := l.Reserve(ctx, stock.ReservationRequest{ProductID: "P100", Quantity: 10, ReservedBy: "user1", Type: stock.Cart})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Release(ctx, res.ID); err != nil {
		t.Fatal(err)
	}

	if len(released) != 1 {
		t.Fatalf("event count got=%d want=1", len(released))
	}
	if released[0].ReservationID != res.ID {
		t.Errorf("reservationId got=%s want=%s", released[0].ReservationID, res.ID)
	}
	if released[0].AvailableStock != 100 {
		t.Errorf("availableStock got=%d want=100", released[0].AvailableStock)
	}
}
