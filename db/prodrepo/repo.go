// Package prodrepo is the Postgres implementation of the ledger's product
// repository, with an lru read cache in front of product lookups.
package prodrepo

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pinto1232/pos-stock-ledger/core"
	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/db"
)

const cacheSize = 256

type dbRepo struct {
	conn  core.Conn
	cache *lru.Cache
}

func NewPostgresRepo(conn core.Conn) stock.ProductRepository {
	cache, err := lru.New(cacheSize)
	if err != nil {
		log.Warn().Err(err).Msg("unable to create product cache")
	}
	return &dbRepo{
		conn:  conn,
		cache: cache,
	}
}

func (d *dbRepo) GetProduct(ctx context.Context, id string) (stock.Product, error) {
	m := db.StartMetric("GetProduct")

	if d.cache != nil {
		if cached, ok := d.cache.Get(id); ok {
			m.Complete(nil)
			return cached.(stock.Product), nil
		}
	}

	product := stock.Product{}
	err := d.conn.QueryRow(ctx, `
		SELECT id, name, stock, sales_count, last_sold_date, total_revenue, return_count
          FROM products
         WHERE id = $1;`, id).
		Scan(&product.ID, &product.Name, &product.Stock, &product.SalesCount,
			&product.LastSoldDate, &product.TotalRevenue, &product.ReturnCount)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return product, errors.WithStack(core.ErrNotFound)
		}
		return product, errors.WithStack(err)
	}

	if d.cache != nil {
		d.cache.Add(id, product)
	}

	m.Complete(nil)
	return product, nil
}

func (d *dbRepo) SetProductStock(ctx context.Context, id string, stockLevel int64) error {
	m := db.StartMetric("SetProductStock")
	d.evict(id)

	ct, err := d.conn.Exec(ctx, `
		UPDATE products
           SET stock = $2
         WHERE id = $1;`, id, stockLevel)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) RecordSale(ctx context.Context, id string, quantity int64, soldAt time.Time, totalAmount float64) error {
	m := db.StartMetric("RecordSale")
	d.evict(id)

	ct, err := d.conn.Exec(ctx, `
		UPDATE products
           SET sales_count = sales_count + $2,
               last_sold_date = $3,
               total_revenue = total_revenue + $4
         WHERE id = $1;`, id, quantity, soldAt, totalAmount)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) RecordReturn(ctx context.Context, id string, quantity int64) error {
	m := db.StartMetric("RecordReturn")
	d.evict(id)

	ct, err := d.conn.Exec(ctx, `
		UPDATE products
           SET return_count = return_count + $2
         WHERE id = $1;`, id, quantity)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		m.Complete(nil)
		return errors.WithStack(core.ErrNotFound)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) evict(id string) {
	if d.cache != nil {
		d.cache.Remove(id)
	}
}
