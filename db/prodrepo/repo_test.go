package prodrepo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"

	"github.com/pinto1232/pos-stock-ledger/core"
	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/db"
	"github.com/pinto1232/pos-stock-ledger/db/prodrepo"
	"github.com/pinto1232/pos-stock-ledger/test"
)

func TestMain(m *testing.M) {
	test.ConfigLogging()
	os.Exit(m.Run())
}

type productRow struct {
	product stock.Product
	err     error
}

func (r *productRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}

	*dest[0].(*string) = r.product.ID
	*dest[1].(*string) = r.product.Name
	*dest[2].(*int64) = r.product.Stock
	*dest[3].(*int64) = r.product.SalesCount
	*dest[4].(*time.Time) = r.product.LastSoldDate
	*dest[5].(*float64) = r.product.TotalRevenue
	*dest[6].(*int64) = r.product.ReturnCount
	return nil
}

func TestGetProduct(t *testing.T) {
	want := stock.Product{ID: "P100", Name: "Espresso Beans", Stock: 100, SalesCount: 3, TotalRevenue: 32.97}

	conn := db.NewMockConn()
	conn.QueryRowFunc = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
		if args[0] != "P100" {
			t.Errorf("query arg got=%v want=P100", args[0])
		}
		return &productRow{product: want}
	}

	repo := prodrepo.NewPostgresRepo(&conn)

	got, err := repo.GetProduct(context.Background(), "P100")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || got.Stock != want.Stock || got.Name != want.Name {
		t.Errorf("product got=%+v want=%+v", got, want)
	}

	// Second lookup is served from cache.
	if _, err := repo.GetProduct(context.Background(), "P100"); err != nil {
		t.Fatal(err)
	}
	key := "github.com/pinto1232/pos-stock-ledger/db.(*MockConn).QueryRow"
	if count := conn.GetCallCount(key); count != 1 {
		t.Errorf("query count got=%d want=1 (cache miss on second read)", count)
	}
}

func TestGetProductNotFound(t *testing.T) {
	conn := db.NewMockConn()
	conn.QueryRowFunc = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
		return &productRow{err: pgx.ErrNoRows}
	}

	repo := prodrepo.NewPostgresRepo(&conn)

	_, err := repo.GetProduct(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error got=%v want=%v", err, core.ErrNotFound)
	}
}

func TestUpdatesRequireExistingRow(t *testing.T) {
	tests := []struct {
		name string
		call func(repo stock.ProductRepository, ctx context.Context) error
	}{
		{
			name: "SetProductStock",
			call: func(repo stock.ProductRepository, ctx context.Context) error {
				return repo.SetProductStock(ctx, "missing", 50)
			},
		},
		{
			name: "RecordSale",
			call: func(repo stock.ProductRepository, ctx context.Context) error {
				return repo.RecordSale(ctx, "missing", 2, time.Now(), 21.98)
			},
		},
		{
			name: "RecordReturn",
			call: func(repo stock.ProductRepository, ctx context.Context) error {
				return repo.RecordReturn(ctx, "missing", 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := db.NewMockConn()
			conn.ExecFunc = func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.CommandTag("UPDATE 0"), nil
			}

			repo := prodrepo.NewPostgresRepo(&conn)
			if err := tt.call(repo, context.Background()); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("error got=%v want=%v", err, core.ErrNotFound)
			}
		})
	}
}

func TestRecordSaleUpdatesAggregates(t *testing.T) {
	soldAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	conn := db.NewMockConn()
	var gotArgs []interface{}
	conn.ExecFunc = func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
		gotArgs = args
		return pgconn.CommandTag("UPDATE 1"), nil
	}

	repo := prodrepo.NewPostgresRepo(&conn)
	if err := repo.RecordSale(context.Background(), "P100", 2, soldAt, 21.98); err != nil {
		t.Fatal(err)
	}

	if len(gotArgs) != 4 {
		t.Fatalf("exec arg count got=%d want=4", len(gotArgs))
	}
	if gotArgs[0] != "P100" || gotArgs[1] != int64(2) || gotArgs[3] != 21.98 {
		t.Errorf("exec args got=%v", gotArgs)
	}
}
