package queue

import (
	"context"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/test"
)

type MockQueue struct {
	PublishStockUpdateFunc      func(ctx context.Context, evt stock.UpdatedEvent) error
	PublishReservationEventFunc func(ctx context.Context, topic stock.Topic, payload interface{}) error
	*test.CallWatcher
}

func NewMockQueue() *MockQueue {
	return &MockQueue{
		PublishStockUpdateFunc: func(ctx context.Context, evt stock.UpdatedEvent) error {
			return nil
		},
		PublishReservationEventFunc: func(ctx context.Context, topic stock.Topic, payload interface{}) error {
			return nil
		},
		CallWatcher: test.NewCallWatcher(),
	}
}

func (m *MockQueue) PublishStockUpdate(ctx context.Context, evt stock.UpdatedEvent) error {
	m.AddCall(ctx, evt)
	return m.PublishStockUpdateFunc(ctx, evt)
}

func (m *MockQueue) PublishReservationEvent(ctx context.Context, topic stock.Topic, payload interface{}) error {
	m.AddCall(ctx, topic, payload)
	return m.PublishReservationEventFunc(ctx, topic, payload)
}
