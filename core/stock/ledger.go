package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pinto1232/pos-stock-ledger/core"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrReservationNotFound = errors.New("reservation not found or already processed")
	ErrInsufficientStock   = errors.New("insufficient stock")
)

const (
	// DefaultReservationExpiry is the reservation horizon applied when a request
	// does not carry its own.
	DefaultReservationExpiry = 30 * time.Minute

	// DefaultTxnPageSize bounds GetProductTransactions when no limit is given.
	DefaultTxnPageSize = 50
)

// Ledger owns all reservation, locking, sale and return state for one process.
// Construct it once at the composition root and hand references to consumers.
//
// Every public operation takes a single mutex for the whole check-then-act
// sequence, so availability checks and the mutations they guard never interleave.
// Event handlers fire after the mutex is dropped, still synchronously within the
// triggering call, so they observe state already updated.
type Ledger struct {
	mu            sync.Mutex
	products      ProductRepository
	store         SnapshotStore
	locks         map[string]*StockLock
	reservations  map[string]*Reservation
	transactions  []Transaction
	events        *emitter
	defaultExpiry time.Duration
}

type Option func(*Ledger)

// WithDefaultExpiry overrides the default reservation horizon.
func WithDefaultExpiry(d time.Duration) Option {
	return func(l *Ledger) {
		l.defaultExpiry = d
	}
}

// NewLedger builds a ledger and rehydrates it from the snapshot store. A failed
// or missing snapshot load is logged and the ledger starts empty.
func NewLedger(ctx context.Context, products ProductRepository, store SnapshotStore, options ...Option) *Ledger {
	l := &Ledger{
		products:      products,
		store:         store,
		locks:         make(map[string]*StockLock),
		reservations:  make(map[string]*Reservation),
		events:        newEmitter(),
		defaultExpiry: DefaultReservationExpiry,
	}

	for _, option := range options {
		option(l)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load stock snapshot, starting empty")
	} else if snap != nil {
		l.restore(snap)
		log.Info().
			Int("locks", len(l.locks)).
			Int("reservations", len(l.reservations)).
			Int("transactions", len(l.transactions)).
			Msg("stock ledger restored from snapshot")
	}

	return l
}

// On subscribes the handler to a topic and returns a handle for Off.
func (l *Ledger) On(topic Topic, h Handler) SubID {
	return l.events.On(topic, h)
}

// Off removes a subscription.
func (l *Ledger) Off(topic Topic, id SubID) {
	l.events.Off(topic, id)
}

// Reserve holds quantity against a product until released or expired. The
// requested quantity must not exceed the product's available (unlocked) stock.
// Calls are never deduplicated; every successful call creates a new reservation.
func (l *Ledger) Reserve(ctx context.Context, rr ReservationRequest) (Reservation, error) {
	const funcName = "Reserve"

	log.Info().
		Str("func", funcName).
		Str("productId", rr.ProductID).
		Str("reservedBy", rr.ReservedBy).
		Str("type", string(rr.Type)).
		Int64("quantity", rr.Quantity).
		Msg("reserving stock")

	if rr.Quantity < 1 {
		return Reservation{}, errors.New("quantity must be greater than zero")
	}

	res, evt, err := l.reserve(ctx, rr)
	if err != nil {
		return Reservation{}, err
	}

	l.events.emit(TopicStockReserved, evt)
	return res, nil
}

func (l *Ledger) reserve(ctx context.Context, rr ReservationRequest) (Reservation, ReservedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.lockFor(ctx, rr.ProductID)
	if err != nil {
		return Reservation{}, ReservedEvent{}, err
	}

	if rr.Quantity > lock.AvailableQuantity {
		return Reservation{}, ReservedEvent{}, errors.WithMessagef(ErrInsufficientStock,
			"%d available, %d requested", lock.AvailableQuantity, rr.Quantity)
	}

	expiry := rr.Expiration
	if expiry == 0 {
		expiry = l.defaultExpiry
	}

	now := time.Now()
	res := &Reservation{
		ID:         uuid.NewString(),
		ProductID:  rr.ProductID,
		Quantity:   rr.Quantity,
		ReservedBy: rr.ReservedBy,
		Type:       rr.Type,
		Status:     Active,
		Created:    now,
		Expires:    now.Add(expiry),
	}

	l.reservations[res.ID] = res
	lock.Reservations = append(lock.Reservations, res)
	lock.LockedQuantity += rr.Quantity
	lock.recompute()

	l.append(Transaction{
		ID:            uuid.NewString(),
		ProductID:     rr.ProductID,
		Type:          TxnReservation,
		Quantity:      -rr.Quantity,
		PreviousStock: lock.TotalStock,
		NewStock:      lock.TotalStock,
		Timestamp:     now,
		Reference:     res.ID,
		UserID:        rr.ReservedBy,
	})
	l.persist(ctx)

	evt := ReservedEvent{
		ProductID:      rr.ProductID,
		Quantity:       rr.Quantity,
		ReservationID:  res.ID,
		AvailableStock: lock.AvailableQuantity,
	}
	return *res, evt, nil
}

// Release returns a reservation's quantity to the available pool. Only active
// reservations may be released; releasing twice fails.
func (l *Ledger) Release(ctx context.Context, reservationID string) (Reservation, error) {
	const funcName = "Release"

	log.Info().
		Str("func", funcName).
		Str("reservationId", reservationID).
		Msg("releasing reservation")

	res, evt, err := l.release(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}

	l.events.emit(TopicStockReleased, evt)
	return res, nil
}

func (l *Ledger) release(ctx context.Context, reservationID string) (Reservation, ReleasedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, ok := l.reservations[reservationID]
	if !ok || res.Status != Active {
		return Reservation{}, ReleasedEvent{}, errors.WithStack(ErrReservationNotFound)
	}

	// A restored snapshot can carry a reservation whose lock entry is gone.
	lock, ok := l.locks[res.ProductID]
	if !ok {
		return Reservation{}, ReleasedEvent{}, errors.WithStack(ErrReservationNotFound)
	}

	res.Status = Released

	lock.Reservations = removeReservation(lock.Reservations, res.ID)
	lock.LockedQuantity -= res.Quantity
	if lock.LockedQuantity < 0 {
		lock.LockedQuantity = 0
	}
	lock.recompute()

	l.append(Transaction{
		ID:            uuid.NewString(),
		ProductID:     res.ProductID,
		Type:          TxnRelease,
		Quantity:      res.Quantity,
		PreviousStock: lock.TotalStock,
		NewStock:      lock.TotalStock,
		Timestamp:     time.Now(),
		Reference:     res.ID,
		UserID:        res.ReservedBy,
	})
	l.persist(ctx)

	evt := ReleasedEvent{
		ProductID:      res.ProductID,
		Quantity:       res.Quantity,
		ReservationID:  res.ID,
		AvailableStock: lock.AvailableQuantity,
	}
	return *res, evt, nil
}

// ProcessSale decrements total stock for a completed checkout. The sale is
// checked against gross total stock rather than unlocked stock: an order whose
// items were reserved elsewhere, or never reserved, can still be fulfilled as
// long as total stock covers it.
func (l *Ledger) ProcessSale(ctx context.Context, sale SaleEvent) (SaleResult, error) {
	const funcName = "ProcessSale"

	log.Info().
		Str("func", funcName).
		Str("productId", sale.ProductID).
		Str("orderId", sale.OrderID).
		Int64("quantity", sale.Quantity).
		Msg("processing sale")

	if sale.Quantity < 1 {
		return SaleResult{}, errors.New("quantity must be greater than zero")
	}

	result, evt, err := l.processSale(ctx, sale)
	if err != nil {
		return SaleResult{}, err
	}

	l.events.emit(TopicStockUpdated, evt)
	return result, nil
}

func (l *Ledger) processSale(ctx context.Context, sale SaleEvent) (SaleResult, UpdatedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.lockFor(ctx, sale.ProductID)
	if err != nil {
		return SaleResult{}, UpdatedEvent{}, err
	}

	if lock.TotalStock < sale.Quantity {
		return SaleResult{}, UpdatedEvent{}, errors.WithMessagef(ErrInsufficientStock,
			"%d on hand, %d requested", lock.TotalStock, sale.Quantity)
	}

	previous := lock.TotalStock
	lock.TotalStock -= sale.Quantity
	lock.recompute()

	soldAt := sale.Timestamp
	if soldAt.IsZero() {
		soldAt = time.Now()
	}

	l.writeBackStock(ctx, sale.ProductID, lock.TotalStock)
	if err := l.products.RecordSale(ctx, sale.ProductID, sale.Quantity, soldAt, sale.TotalAmount); err != nil {
		log.Warn().Err(err).Str("productId", sale.ProductID).Msg("failed to record sale aggregates")
	}

	l.append(Transaction{
		ID:            uuid.NewString(),
		ProductID:     sale.ProductID,
		Type:          TxnSale,
		Quantity:      -sale.Quantity,
		PreviousStock: previous,
		NewStock:      lock.TotalStock,
		Timestamp:     soldAt,
		Reference:     sale.OrderID,
		UserID:        sale.CustomerID,
	})
	l.persist(ctx)

	result := SaleResult{
		ProductID:      sale.ProductID,
		NewStock:       lock.TotalStock,
		AvailableStock: lock.AvailableQuantity,
	}
	evt := UpdatedEvent{
		ProductID:      sale.ProductID,
		NewStock:       lock.TotalStock,
		AvailableStock: lock.AvailableQuantity,
		Sale:           &sale,
	}
	return result, evt, nil
}

// ProcessReturn adds returned quantity back to total stock. Returns are always
// accepted; there is no upper bound check.
func (l *Ledger) ProcessReturn(ctx context.Context, productID string, quantity int64, orderID, reason string) (SaleResult, error) {
	const funcName = "ProcessReturn"

	log.Info().
		Str("func", funcName).
		Str("productId", productID).
		Str("orderId", orderID).
		Int64("quantity", quantity).
		Msg("processing return")

	if quantity < 1 {
		return SaleResult{}, errors.New("quantity must be greater than zero")
	}

	result, evt, err := l.processReturn(ctx, productID, quantity, orderID, reason)
	if err != nil {
		return SaleResult{}, err
	}

	l.events.emit(TopicStockUpdated, evt)
	return result, nil
}

func (l *Ledger) processReturn(ctx context.Context, productID string, quantity int64, orderID, reason string) (SaleResult, UpdatedEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.lockFor(ctx, productID)
	if err != nil {
		return SaleResult{}, UpdatedEvent{}, err
	}

	previous := lock.TotalStock
	lock.TotalStock += quantity
	lock.recompute()

	l.writeBackStock(ctx, productID, lock.TotalStock)
	if err := l.products.RecordReturn(ctx, productID, quantity); err != nil {
		log.Warn().Err(err).Str("productId", productID).Msg("failed to record return aggregates")
	}

	l.append(Transaction{
		ID:            uuid.NewString(),
		ProductID:     productID,
		Type:          TxnReturn,
		Quantity:      quantity,
		PreviousStock: previous,
		NewStock:      lock.TotalStock,
		Timestamp:     time.Now(),
		Reference:     orderID,
		Notes:         reason,
	})
	l.persist(ctx)

	result := SaleResult{
		ProductID:      productID,
		NewStock:       lock.TotalStock,
		AvailableStock: lock.AvailableQuantity,
	}
	evt := UpdatedEvent{
		ProductID:      productID,
		NewStock:       lock.TotalStock,
		AvailableStock: lock.AvailableQuantity,
		Type:           "return",
	}
	return result, evt, nil
}

// GetStockInfo returns a copy of the product's lock state. ok is false when the
// ledger has never referenced the product, which says nothing about its stock.
func (l *Ledger) GetStockInfo(productID string) (StockLock, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[productID]
	if !ok {
		return StockLock{}, false
	}
	return copyLock(lock), true
}

// GetProductReservations returns the currently active reservations for a product.
func (l *Ledger) GetProductReservations(productID string) []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[productID]
	if !ok {
		return []Reservation{}
	}

	reservations := make([]Reservation, 0, len(lock.Reservations))
	for _, res := range lock.Reservations {
		reservations = append(reservations, *res)
	}
	return reservations
}

// GetProductTransactions returns the product's most recent transactions,
// newest first. limit defaults to DefaultTxnPageSize when not positive.
func (l *Ledger) GetProductTransactions(productID string, limit int) []Transaction {
	if limit <= 0 {
		limit = DefaultTxnPageSize
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	transactions := make([]Transaction, 0, limit)
	for i := len(l.transactions) - 1; i >= 0 && len(transactions) < limit; i-- {
		if l.transactions[i].ProductID == productID {
			transactions = append(transactions, l.transactions[i])
		}
	}
	return transactions
}

// lockFor returns the product's lock, creating it from the product repository on
// first reference. Callers must hold l.mu.
func (l *Ledger) lockFor(ctx context.Context, productID string) (*StockLock, error) {
	if lock, ok := l.locks[productID]; ok {
		return lock, nil
	}

	product, err := l.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errors.WithStack(ErrProductNotFound)
		}
		return nil, errors.WithStack(err)
	}

	lock := &StockLock{
		ProductID:    productID,
		TotalStock:   product.Stock,
		Reservations: []*Reservation{},
	}
	lock.recompute()
	l.locks[productID] = lock

	return lock, nil
}

// append adds a ledger entry, dropping the oldest entries beyond the retention
// window. The bounded window is a contract, not an incidental detail.
func (l *Ledger) append(txn Transaction) {
	l.transactions = append(l.transactions, txn)
	if len(l.transactions) > MemoryTxnLimit {
		l.transactions = l.transactions[len(l.transactions)-MemoryTxnLimit:]
	}
}

// persist saves a snapshot, best-effort. Callers must hold l.mu.
func (l *Ledger) persist(ctx context.Context) {
	if err := l.store.Save(ctx, l.snapshotLocked()); err != nil {
		log.Warn().Err(err).Msg("failed to persist stock snapshot")
	}
}

func (l *Ledger) writeBackStock(ctx context.Context, productID string, stock int64) {
	if err := l.products.SetProductStock(ctx, productID, stock); err != nil {
		log.Warn().Err(err).Str("productId", productID).Msg("failed to write stock back to product repository")
	}
}

func removeReservation(reservations []*Reservation, id string) []*Reservation {
	for i, res := range reservations {
		if res.ID == id {
			return append(reservations[:i], reservations[i+1:]...)
		}
	}
	return reservations
}
