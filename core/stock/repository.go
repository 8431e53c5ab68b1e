package stock

import (
	"context"
	"time"
)

// ProductRepository is the system of record for the product stock baseline. The
// ledger reads products by id on first reference and writes stock and sale/return
// aggregates back after each stock-affecting operation.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	SetProductStock(ctx context.Context, id string, stock int64) error
	RecordSale(ctx context.Context, id string, quantity int64, soldAt time.Time, totalAmount float64) error
	RecordReturn(ctx context.Context, id string, quantity int64) error
}

// SnapshotStore persists the ledger state as a single durable document. Saves are
// best-effort: the ledger logs failures and keeps going on its in-memory state.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
