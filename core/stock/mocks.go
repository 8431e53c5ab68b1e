package stock

import (
	"context"
	"time"

	"github.com/pinto1232/pos-stock-ledger/test"
)

type MockProductRepo struct {
	GetProductFunc      func(ctx context.Context, id string) (Product, error)
	SetProductStockFunc func(ctx context.Context, id string, stock int64) error
	RecordSaleFunc      func(ctx context.Context, id string, quantity int64, soldAt time.Time, totalAmount float64) error
	RecordReturnFunc    func(ctx context.Context, id string, quantity int64) error
	*test.CallWatcher
}

func NewMockProductRepo() *MockProductRepo {
	return &MockProductRepo{
		GetProductFunc: func(ctx context.Context, id string) (Product, error) { return Product{}, nil },
		SetProductStockFunc: func(ctx context.Context, id string, stock int64) error {
			return nil
		},
		RecordSaleFunc: func(ctx context.Context, id string, quantity int64, soldAt time.Time, totalAmount float64) error {
			return nil
		},
		RecordReturnFunc: func(ctx context.Context, id string, quantity int64) error { return nil },
		CallWatcher:      test.NewCallWatcher(),
	}
}

func (m *MockProductRepo) GetProduct(ctx context.Context, id string) (Product, error) {
	m.AddCall(ctx, id)
	return m.GetProductFunc(ctx, id)
}

func (m *MockProductRepo) SetProductStock(ctx context.Context, id string, stock int64) error {
	m.AddCall(ctx, id, stock)
	return m.SetProductStockFunc(ctx, id, stock)
}

func (m *MockProductRepo) RecordSale(ctx context.Context, id string, quantity int64, soldAt time.Time, totalAmount float64) error {
	m.AddCall(ctx, id, quantity, soldAt, totalAmount)
	return m.RecordSaleFunc(ctx, id, quantity, soldAt, totalAmount)
}

func (m *MockProductRepo) RecordReturn(ctx context.Context, id string, quantity int64) error {
	m.AddCall(ctx, id, quantity)
	return m.RecordReturnFunc(ctx, id, quantity)
}

type MockSnapshotStore struct {
	LoadFunc func(ctx context.Context) (*Snapshot, error)
	SaveFunc func(ctx context.Context, snap *Snapshot) error
	*test.CallWatcher
}

func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{
		LoadFunc:    func(ctx context.Context) (*Snapshot, error) { return nil, nil },
		SaveFunc:    func(ctx context.Context, snap *Snapshot) error { return nil },
		CallWatcher: test.NewCallWatcher(),
	}
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	m.AddCall(ctx)
	return m.LoadFunc(ctx)
}

func (m *MockSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	m.AddCall(ctx, snap)
	return m.SaveFunc(ctx, snap)
}

type MockLedgerService struct {
	ReserveFunc                func(ctx context.Context, rr ReservationRequest) (Reservation, error)
	ReleaseFunc                func(ctx context.Context, reservationID string) (Reservation, error)
	ProcessSaleFunc            func(ctx context.Context, sale SaleEvent) (SaleResult, error)
	ProcessReturnFunc          func(ctx context.Context, productID string, quantity int64, orderID, reason string) (SaleResult, error)
	GetStockInfoFunc           func(productID string) (StockLock, bool)
	GetProductReservationsFunc func(productID string) []Reservation
	GetProductTransactionsFunc func(productID string, limit int) []Transaction
	OnFunc                     func(topic Topic, h Handler) SubID
	OffFunc                    func(topic Topic, id SubID)
}

func NewMockLedgerService() MockLedgerService {
	return MockLedgerService{
		ReserveFunc: func(ctx context.Context, rr ReservationRequest) (Reservation, error) {
			return Reservation{}, nil
		},
		ReleaseFunc: func(ctx context.Context, reservationID string) (Reservation, error) {
			return Reservation{}, nil
		},
		ProcessSaleFunc: func(ctx context.Context, sale SaleEvent) (SaleResult, error) {
			return SaleResult{}, nil
		},
		ProcessReturnFunc: func(ctx context.Context, productID string, quantity int64, orderID, reason string) (SaleResult, error) {
			return SaleResult{}, nil
		},
		GetStockInfoFunc:           func(productID string) (StockLock, bool) { return StockLock{}, false },
		GetProductReservationsFunc: func(productID string) []Reservation { return []Reservation{} },
		GetProductTransactionsFunc: func(productID string, limit int) []Transaction { return []Transaction{} },
		OnFunc:                     func(topic Topic, h Handler) SubID { return "" },
		OffFunc:                    func(topic Topic, id SubID) {},
	}
}

func (m *MockLedgerService) Reserve(ctx context.Context, rr ReservationRequest) (Reservation, error) {
	return m.ReserveFunc(ctx, rr)
}

func (m *MockLedgerService) Release(ctx context.Context, reservationID string) (Reservation, error) {
	return m.ReleaseFunc(ctx, reservationID)
}

func (m *MockLedgerService) ProcessSale(ctx context.Context, sale SaleEvent) (SaleResult, error) {
	return m.ProcessSaleFunc(ctx, sale)
}

func (m *MockLedgerService) ProcessReturn(ctx context.Context, productID string, quantity int64, orderID, reason string) (SaleResult, error) {
	return m.ProcessReturnFunc(ctx, productID, quantity, orderID, reason)
}

func (m *MockLedgerService) GetStockInfo(productID string) (StockLock, bool) {
	return m.GetStockInfoFunc(productID)
}

func (m *MockLedgerService) GetProductReservations(productID string) []Reservation {
	return m.GetProductReservationsFunc(productID)
}

func (m *MockLedgerService) GetProductTransactions(productID string, limit int) []Transaction {
	return m.GetProductTransactionsFunc(productID, limit)
}

func (m *MockLedgerService) On(topic Topic, h Handler) SubID {
	return m.OnFunc(topic, h)
}

func (m *MockLedgerService) Off(topic Topic, id SubID) {
	m.OffFunc(topic, id)
}
