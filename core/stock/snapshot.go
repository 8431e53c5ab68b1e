package stock

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	// MemoryTxnLimit bounds the in-memory transaction log.
	MemoryTxnLimit = 1000
	// PersistTxnLimit bounds the transactions carried in a persisted snapshot.
	PersistTxnLimit = 500
)

// Snapshot is the durable representation of the ledger state. Locks and
// reservations serialize as arrays of [id, record] pairs; timestamps round-trip
// as RFC 3339 strings through the time.Time JSON encoding.
type Snapshot struct {
	StockLocks   []LockEntry        `json:"stockLocks"`
	Reservations []ReservationEntry `json:"reservations"`
	Transactions []Transaction      `json:"transactions"`
}

type LockEntry struct {
	ID   string
	Lock StockLock
}

func (e LockEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.ID, e.Lock})
}

func (e *LockEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.WithStack(err)
	}
	if len(pair) != 2 {
		return errors.Errorf("stock lock entry: expected [id, lock] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return errors.WithStack(err)
	}
	if err := json.Unmarshal(pair[1], &e.Lock); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

type ReservationEntry struct {
	ID          string
	Reservation Reservation
}

func (e ReservationEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.ID, e.Reservation})
}

func (e *ReservationEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.WithStack(err)
	}
	if len(pair) != 2 {
		return errors.Errorf("reservation entry: expected [id, reservation] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return errors.WithStack(err)
	}
	if err := json.Unmarshal(pair[1], &e.Reservation); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// snapshotLocked builds a deep copy of the current state suitable for persisting.
// Callers must hold l.mu.
func (l *Ledger) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		StockLocks:   make([]LockEntry, 0, len(l.locks)),
		Reservations: make([]ReservationEntry, 0, len(l.reservations)),
	}

	for id, lock := range l.locks {
		snap.StockLocks = append(snap.StockLocks, LockEntry{ID: id, Lock: copyLock(lock)})
	}
	for id, res := range l.reservations {
		snap.Reservations = append(snap.Reservations, ReservationEntry{ID: id, Reservation: *res})
	}

	txns := l.transactions
	if len(txns) > PersistTxnLimit {
		txns = txns[len(txns)-PersistTxnLimit:]
	}
	snap.Transactions = append(snap.Transactions, txns...)

	return snap
}

// restore rebuilds the in-memory indexes from a snapshot. The per-lock
// reservation lists are re-pointed at the entries in the global reservation
// table so status changes stay visible in both.
func (l *Ledger) restore(snap *Snapshot) {
	for i := range snap.Reservations {
		res := snap.Reservations[i].Reservation
		l.reservations[snap.Reservations[i].ID] = &res
	}

	for _, entry := range snap.StockLocks {
		lock := entry.Lock
		active := make([]*Reservation, 0, len(lock.Reservations))
		for _, res := range lock.Reservations {
			if shared, ok := l.reservations[res.ID]; ok && shared.Status == Active {
				active = append(active, shared)
			}
		}
		lock.Reservations = active
		lock.recompute()
		l.locks[entry.ID] = &lock
	}

	l.transactions = append(l.transactions, snap.Transactions...)
}

func copyLock(lock *StockLock) StockLock {
	c := *lock
	c.Reservations = make([]*Reservation, 0, len(lock.Reservations))
	for _, res := range lock.Reservations {
		r := *res
		c.Reservations = append(c.Reservations, &r)
	}
	return c
}
