package stock_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

func TestSnapshotRoundTrip(t *testing.T) {
	repo := stock.NewMockProductRepo()
	repo.GetProductFunc = func(ctx context.Context, id string) (stock.Product, error) {
		return stock.Product{ID: id, Stock: 100}, nil
	}

	var saved *stock.Snapshot
	store := stock.NewMockSnapshotStore()
	store.SaveFunc = func(ctx context.Context, snap *stock.Snapshot) error {
		saved = snap
		return nil
	}

	ctx := context.Background()
	l := stock.NewLedger(ctx, repo, store)

	res, err := l.Reserve(ctx, stock.ReservationRequest{ProductID: "P100", Quantity: 10, ReservedBy: "user1", Type: stock.Cart})
	if err != nil {
		t.Fatal(err)
	}
	released, err := l.Reserve(ctx, stock.ReservationRequest{ProductID: "P100", Quantity: 5, ReservedBy: "user2", Type: stock.Cart})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Release(ctx, released.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ProcessSale(ctx, stock.SaleEvent{ProductID: "P100", Quantity: 20, OrderID: "ORDER-001"}); err != nil {
		t.Fatal(err)
	}

	if saved == nil {
		t.Fatal("no snapshot persisted")
	}

	// Round-trip through JSON like a real store would.
	data, err := json.Marshal(saved)
	if err != nil {
		t.Fatal(err)
	}

	store2 := stock.NewMockSnapshotStore()
	store2.LoadFunc = func(ctx context.Context) (*stock.Snapshot, error) {
		var snap stock.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	}

	restored := stock.NewLedger(ctx, repo, store2)

	wantLock, _ := l.GetStockInfo("P100")
	gotLock, ok := restored.GetStockInfo("P100")
	if !ok {
		t.Fatal("restored ledger missing stock lock")
	}
	if gotLock.TotalStock != wantLock.TotalStock {
		t.Errorf("totalStock got=%d want=%d", gotLock.TotalStock, wantLock.TotalStock)
	}
	if gotLock.LockedQuantity != wantLock.LockedQuantity {
		t.Errorf("lockedQuantity got=%d want=%d", gotLock.LockedQuantity, wantLock.LockedQuantity)
	}
	if gotLock.AvailableQuantity != wantLock.AvailableQuantity {
		t.Errorf("availableQuantity got=%d want=%d", gotLock.AvailableQuantity, wantLock.AvailableQuantity)
	}

	active := restored.GetProductReservations("P100")
	if len(active) != 1 {
		t.Fatalf("active reservation count got=%d want=1", len(active))
	}
	if active[0].ID != res.ID {
		t.Errorf("reservation id got=%s want=%s", active[0].ID, res.ID)
	}
	if !active[0].Expires.Equal(res.Expires) {
		t.Errorf("expiresAt got=%s want=%s", active[0].Expires, res.Expires)
	}

	wantTxns := l.GetProductTransactions("P100", 0)
	gotTxns := restored.GetProductTransactions("P100", 0)
	if len(gotTxns) != len(wantTxns) {
		t.Fatalf("transaction count got=%d want=%d", len(gotTxns), len(wantTxns))
	}
	for i := range wantTxns {
		if gotTxns[i].ID != wantTxns[i].ID || gotTxns[i].Type != wantTxns[i].Type ||
			gotTxns[i].Quantity != wantTxns[i].Quantity ||
			!gotTxns[i].Timestamp.Equal(wantTxns[i].Timestamp) {
			t.Errorf("transaction %d mismatch: got=%+v want=%+v", i, gotTxns[i], wantTxns[i])
		}
	}

	// Released reservations restore as history, not as active holds.
	if _, err := restored.Release(ctx, released.ID); !errors.Is(err, stock.ErrReservationNotFound) {
		t.Errorf("released reservation resurrected after restore: err=%v", err)
	}
}

func TestSnapshotPairArrayShape(t *testing.T) {
	snap := &stock.Snapshot{
		StockLocks: []stock.LockEntry{{
			ID:   "P100",
			Lock: stock.StockLock{ProductID: "P100", TotalStock: 80, Reservations: []*stock.Reservation{}},
		}},
		Reservations: []stock.ReservationEntry{{
			ID:          "r1",
			Reservation: stock.Reservation{ID: "r1", ProductID: "P100", Quantity: 5, Status: stock.Active},
		}},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}

	var raw struct {
		StockLocks   [][]json.RawMessage `json:"stockLocks"`
		Reservations [][]json.RawMessage `json:"reservations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("entries did not serialize as pair arrays: %v", err)
	}

	if len(raw.StockLocks) != 1 || len(raw.StockLocks[0]) != 2 {
		t.Fatalf("stock lock entry shape got=%s", data)
	}
	var lockID string
	if err := json.Unmarshal(raw.StockLocks[0][0], &lockID); err != nil || lockID != "P100" {
		t.Errorf("pair id got=%q err=%v", lockID, err)
	}

	if len(raw.Reservations) != 1 || len(raw.Reservations[0]) != 2 {
		t.Fatalf("reservation entry shape got=%s", data)
	}

	var back stock.Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.StockLocks[0].Lock.TotalStock != 80 {
		t.Errorf("totalStock got=%d want=80", back.StockLocks[0].Lock.TotalStock)
	}
}

func TestSnapshotEntryRejectsMalformedPair(t *testing.T) {
	var entry stock.LockEntry
	if err := json.Unmarshal([]byte(`["only-id"]`), &entry); err == nil {
		t.Error("expected error for one-element pair")
	}

	var res stock.ReservationEntry
	if err := json.Unmarshal([]byte(`{"id":"r1"}`), &res); err == nil {
		t.Error("expected error for object instead of pair")
	}
}

func TestReleaseReservationWithoutLock(t *testing.T) {
	repo := stock.NewMockProductRepo()
	repo.GetProductFunc = func(ctx context.Context, id string) (stock.Product, error) {
		return stock.Product{ID: id, Stock: 100}, nil
	}

	// A snapshot carrying an active reservation but no lock entry for its
	// product. Releasing it must fail cleanly instead of panicking.
	store := stock.NewMockSnapshotStore()
	store.LoadFunc = func(ctx context.Context) (*stock.Snapshot, error) {
		return &stock.Snapshot{
			Reservations: []stock.ReservationEntry{{
				ID: "orphan1",
				Reservation: stock.Reservation{
					ID:        "orphan1",
					ProductID: "P100",
					Quantity:  10,
					Status:    stock.Active,
				},
			}},
		}, nil
	}

	l := stock.NewLedger(context.Background(), repo, store)

	_, err := l.Release(context.Background(), "orphan1")
	if !errors.Is(err, stock.ErrReservationNotFound) {
		t.Errorf("error got=%v want=%v", err, stock.ErrReservationNotFound)
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	repo := stock.NewMockProductRepo()
	repo.GetProductFunc = func(ctx context.Context, id string) (stock.Product, error) {
		return stock.Product{ID: id, Stock: 100}, nil
	}

	store := stock.NewMockSnapshotStore()
	store.LoadFunc = func(ctx context.Context) (*stock.Snapshot, error) {
		return nil, errors.New("corrupt snapshot")
	}

	l := stock.NewLedger(context.Background(), repo, store)

	if _, ok := l.GetStockInfo("P100"); ok {
		t.Error("ledger should start empty after a failed load")
	}

	// The ledger still works after the failed load.
	if _, err := l.Reserve(context.Background(), stock.ReservationRequest{
		ProductID: "P100", Quantity: 10, ReservedBy: "user1", Type: stock.Cart,
	}); err != nil {
		t.Errorf("reserve after failed load: %v", err)
	}
}
