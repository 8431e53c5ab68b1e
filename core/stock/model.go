// Package stock implements the point-of-sale stock ledger: per-product stock locks,
// time-limited reservations, sale and return processing, an append-only transaction
// log, and in-process event notification for live UI updates.
package stock

import (
	"time"

	"github.com/pkg/errors"
)

type ReservationType string

const (
	Cart   ReservationType = "cart"
	Order  ReservationType = "order"
	Manual ReservationType = "manual"
)

func ParseReservationType(v string) (ReservationType, error) {
	switch v {
	case string(Cart):
		return Cart, nil
	case string(Order):
		return Order, nil
	case string(Manual), "":
		return Manual, nil
	default:
		return "", errors.New("invalid reservation type")
	}
}

type ReservationStatus string

const (
	Active   ReservationStatus = "active"
	Expired  ReservationStatus = "expired"
	Released ReservationStatus = "released"
	// Fulfilled is declared in the reservation lifecycle but no operation assigns
	// it yet. Kept for callers that persist the status field.
	Fulfilled ReservationStatus = "fulfilled"
)

// ReservationRequest is a value object. A request to hold quantity against a product.
type ReservationRequest struct {
	ProductID  string          `json:"productId"`
	Quantity   int64           `json:"quantity"`
	ReservedBy string          `json:"reservedBy"`
	Type       ReservationType `json:"type"`
	// Expiration overrides the ledger's default reservation horizon when non-zero.
	Expiration time.Duration `json:"-"`
}

// Reservation is an entity. A time-bounded hold on a quantity of stock. It prevents
// the quantity from being counted as available without reducing total stock.
type Reservation struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"productId"`
	Quantity   int64             `json:"quantity"`
	ReservedBy string            `json:"reservedBy"`
	Type       ReservationType   `json:"reservationType"`
	Status     ReservationStatus `json:"status"`
	Created    time.Time         `json:"createdAt"`
	Expires    time.Time         `json:"expiresAt"`
}

type TransactionType string

const (
	TxnSale        TransactionType = "sale"
	TxnReturn      TransactionType = "return"
	TxnRestock     TransactionType = "restock"
	TxnAdjustment  TransactionType = "adjustment"
	TxnReservation TransactionType = "reservation"
	TxnRelease     TransactionType = "release"
)

// Transaction is an immutable ledger entry recording a stock-affecting event.
// Quantity is signed: negative for sale and reservation, positive for return and
// release. NewStock of one entry equals PreviousStock of the next entry for the
// same product.
type Transaction struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"productId"`
	Type          TransactionType `json:"type"`
	Quantity      int64           `json:"quantity"`
	PreviousStock int64           `json:"previousStock"`
	NewStock      int64           `json:"newStock"`
	Timestamp     time.Time       `json:"timestamp"`
	Reference     string          `json:"reference,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// StockLock is the per-product aggregate of total, locked and available quantities
// plus the reservations currently holding quantity against the product. One lock is
// created lazily per product on first reference.
//
// Invariants: LockedQuantity equals the sum of active reservation quantities, and
// AvailableQuantity equals max(0, TotalStock-LockedQuantity), after every operation.
type StockLock struct {
	ProductID         string         `json:"productId"`
	TotalStock        int64          `json:"totalStock"`
	LockedQuantity    int64          `json:"lockedQuantity"`
	AvailableQuantity int64          `json:"availableQuantity"`
	Reservations      []*Reservation `json:"reservations"`
}

func (l *StockLock) recompute() {
	l.AvailableQuantity = l.TotalStock - l.LockedQuantity
	if l.AvailableQuantity < 0 {
		l.AvailableQuantity = 0
	}
}

// SaleEvent is a value object carrying the details of a completed checkout.
type SaleEvent struct {
	ProductID   string    `json:"productId"`
	Quantity    int64     `json:"quantity"`
	OrderID     string    `json:"orderId"`
	Timestamp   time.Time `json:"timestamp"`
	CustomerID  string    `json:"customerId,omitempty"`
	UnitPrice   float64   `json:"unitPrice,omitempty"`
	TotalAmount float64   `json:"totalAmount,omitempty"`
}

// SaleResult reports the stock position after a sale or return.
type SaleResult struct {
	ProductID      string `json:"productId"`
	NewStock       int64  `json:"newStock"`
	AvailableStock int64  `json:"availableStock"`
}

// Product is the external product record the ledger reads its stock baseline from
// and writes sale and return aggregates back to.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Stock        int64     `json:"stock"`
	SalesCount   int64     `json:"salesCount"`
	LastSoldDate time.Time `json:"lastSoldDate"`
	TotalRevenue float64   `json:"totalRevenue"`
	ReturnCount  int64     `json:"returnCount"`
}
