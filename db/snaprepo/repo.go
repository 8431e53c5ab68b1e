// Package snaprepo is the Postgres implementation of the ledger's snapshot
// store: one JSONB row per storage key.
package snaprepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"

	"github.com/pinto1232/pos-stock-ledger/core"
	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/db"
)

type dbRepo struct {
	conn core.Conn
	key  string
}

func NewPostgresRepo(conn core.Conn, key string) stock.SnapshotStore {
	return &dbRepo{conn: conn, key: key}
}

func (d *dbRepo) Load(ctx context.Context) (*stock.Snapshot, error) {
	m := db.StartMetric("LoadSnapshot")

	var data []byte
	err := d.conn.QueryRow(ctx, `SELECT snapshot FROM stock_snapshots WHERE key = $1;`, d.key).
		Scan(&data)
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	snap := &stock.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		m.Complete(err)
		return nil, errors.WithMessage(err, "failed to parse snapshot row")
	}

	m.Complete(nil)
	return snap, nil
}

func (d *dbRepo) Save(ctx context.Context, snap *stock.Snapshot) error {
	m := db.StartMetric("SaveSnapshot")

	data, err := json.Marshal(snap)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	ct, err := d.conn.Exec(ctx, `
		UPDATE stock_snapshots
           SET snapshot = $2, updated = $3
         WHERE key = $1;`, d.key, data, time.Now())
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		_, err := d.conn.Exec(ctx, `
		INSERT INTO stock_snapshots (key, snapshot, updated)
                      VALUES ($1, $2, $3);`, d.key, data, time.Now())
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}

	m.Complete(nil)
	return nil
}
