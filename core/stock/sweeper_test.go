package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

func TestSweeperExpiresOverdueReservations(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan stock.ExpiredEvent, 1)
	l.On(stock.TopicReservationExpired, func(payload interface{}) {
		expired <- payload.(stock.ExpiredEvent)
	})

	// Already past its horizon when the sweeper first ticks.
	res, err := l.Reserve(ctx, stock.ReservationRequest{
		ProductID:  "P100",
		Quantity:   10,
		ReservedBy: "user1",
		Type:       stock.Cart,
		Expiration: -time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	txnsBefore := len(l.GetProductTransactions("P100", 0))

	l.StartSweeper(ctx, 10*time.Millisecond)

	var evt stock.ExpiredEvent
	select {
	case evt = <-expired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for expiration event")
	}

	if evt.ReservationID != res.ID {
		t.Errorf("reservationId got=%s want=%s", evt.ReservationID, res.ID)
	}
	if evt.Quantity != 10 {
		t.Errorf("quantity got=%d want=10", evt.Quantity)
	}

	lock, _ := l.GetStockInfo("P100")
	if lock.LockedQuantity != 0 {
		t.Errorf("lockedQuantity got=%d want=0", lock.LockedQuantity)
	}
	if lock.AvailableQuantity != 100 {
		t.Errorf("availableQuantity got=%d want=100", lock.AvailableQuantity)
	}
	if got := len(l.GetProductReservations("P100")); got != 0 {
		t.Errorf("active reservation count got=%d want=0", got)
	}

	// Expiry only emits an event; unlike release it writes no ledger entry.
	if got := len(l.GetProductTransactions("P100", 0)); got != txnsBefore {
		t.Errorf("transaction count got=%d want=%d", got, txnsBefore)
	}
}

func TestSweeperLeavesUnexpiredReservationsAlone(t *testing.T) {
	l, _, _ := newTestLedger(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	overdue, err := l.Reserve(ctx, stock.ReservationRequest{
		ProductID: "P100", Quantity: 10, ReservedBy: "user1", Type: stock.Cart, Expiration: -time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reserve(ctx, stock.ReservationRequest{
		ProductID: "P100", Quantity: 15, ReservedBy: "user2", Type: stock.Cart, Expiration: time.Hour,
	}); err != nil {
		t.Fatal(err)
	}

	expired := make(chan stock.ExpiredEvent, 2)
	l.On(stock.TopicReservationExpired, func(payload interface{}) {
		expired <- payload.(stock.ExpiredEvent)
	})

	l.StartSweeper(ctx, 10*time.Millisecond)

	select {
	case evt := <-expired:
		if evt.ReservationID != overdue.ID {
			t.Errorf("expired reservation got=%s want=%s", evt.ReservationID, overdue.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for expiration event")
	}

	lock, _ := l.GetStockInfo("P100")
	if lock.LockedQuantity != 15 {
		t.Errorf("lockedQuantity got=%d want=15", lock.LockedQuantity)
	}
	if got := len(l.GetProductReservations("P100")); got != 1 {
		t.Errorf("active reservation count got=%d want=1", got)
	}

	// Releasing the expired reservation is a lifecycle error now.
	if _, err := l.Release(ctx, overdue.ID); err == nil {
		t.Error("expected release of expired reservation to fail")
	}
}
