package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/snapshot"
	"github.com/pinto1232/pos-stock-ledger/test"
)

func TestMain(m *testing.M) {
	test.ConfigLogging()
	os.Exit(m.Run())
}

func TestFileStoreMissingFile(t *testing.T) {
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot got=%+v want=nil", snap)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.json")
	store := snapshot.NewFileStore(path)
	ctx := context.Background()

	want := &stock.Snapshot{
		StockLocks: []stock.LockEntry{{
			ID: "P100",
			Lock: stock.StockLock{
				ProductID:         "P100",
				TotalStock:        80,
				LockedQuantity:    10,
				AvailableQuantity: 70,
				Reservations:      []*stock.Reservation{},
			},
		}},
		Reservations: []stock.ReservationEntry{{
			ID:          "r1",
			Reservation: stock.Reservation{ID: "r1", ProductID: "P100", Quantity: 10, Status: stock.Active},
		}},
		Transactions: []stock.Transaction{
			{ID: "t1", ProductID: "P100", Type: stock.TxnSale, Quantity: -20, PreviousStock: 100, NewStock: 80},
		},
	}

	if err := store.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a snapshot")
	}

	if len(got.StockLocks) != 1 || got.StockLocks[0].Lock.TotalStock != 80 {
		t.Errorf("stock locks got=%+v", got.StockLocks)
	}
	if len(got.Reservations) != 1 || got.Reservations[0].Reservation.Status != stock.Active {
		t.Errorf("reservations got=%+v", got.Reservations)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Quantity != -20 {
		t.Errorf("transactions got=%+v", got.Transactions)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := snapshot.NewFileStore(path)
	if _, err := store.Load(context.Background()); err == nil {
		t.Error("expected parse error for corrupt file")
	}
}

func TestFileStoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.json")
	store := snapshot.NewFileStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, &stock.Snapshot{
		Transactions: []stock.Transaction{{ID: "t1"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, &stock.Snapshot{
		Transactions: []stock.Transaction{{ID: "t2"}},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].ID != "t2" {
		t.Errorf("latest snapshot not retained: %+v", got.Transactions)
	}
}
