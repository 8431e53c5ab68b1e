package stock

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Topic is a named event channel. One channel per concern.
type Topic string

const (
	TopicStockReserved      Topic = "stockReserved"
	TopicStockReleased      Topic = "stockReleased"
	TopicStockUpdated       Topic = "stockUpdated"
	TopicReservationExpired Topic = "reservationExpired"
)

// ReservedEvent is published on TopicStockReserved.
type ReservedEvent struct {
	ProductID      string `json:"productId"`
	Quantity       int64  `json:"quantity"`
	ReservationID  string `json:"reservationId"`
	AvailableStock int64  `json:"availableStock"`
}

// ReleasedEvent is published on TopicStockReleased.
type ReleasedEvent struct {
	ProductID      string `json:"productId"`
	Quantity       int64  `json:"quantity"`
	ReservationID  string `json:"reservationId"`
	AvailableStock int64  `json:"availableStock"`
}

// UpdatedEvent is published on TopicStockUpdated after sales and returns. Sale is
// set for sales, Type is "return" for returns.
type UpdatedEvent struct {
	ProductID      string     `json:"productId"`
	NewStock       int64      `json:"newStock"`
	AvailableStock int64      `json:"availableStock"`
	Sale           *SaleEvent `json:"saleEvent,omitempty"`
	Type           string     `json:"type,omitempty"`
}

// ExpiredEvent is published on TopicReservationExpired by the sweep.
type ExpiredEvent struct {
	ReservationID string `json:"reservationId"`
	ProductID     string `json:"productId"`
	Quantity      int64  `json:"quantity"`
}

// Handler receives the payload published on the subscribed topic. Handlers run
// synchronously on the goroutine performing the mutation, after state has been
// updated. A panicking handler is recovered and logged; it never affects the
// triggering operation or the remaining subscribers.
type Handler func(payload interface{})

type SubID string

type emitter struct {
	mu   sync.RWMutex
	subs map[Topic]map[SubID]Handler
}

func newEmitter() *emitter {
	return &emitter{subs: make(map[Topic]map[SubID]Handler)}
}

func (e *emitter) On(topic Topic, h Handler) SubID {
	id := SubID(uuid.NewString())

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs[topic] == nil {
		e.subs[topic] = make(map[SubID]Handler)
	}
	e.subs[topic][id] = h

	log.Debug().Str("topic", string(topic)).Str("subId", string(id)).Msg("subscribing")
	return id
}

func (e *emitter) Off(topic Topic, id SubID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subs[topic], id)
	log.Debug().Str("topic", string(topic)).Str("subId", string(id)).Msg("unsubscribing")
}

func (e *emitter) emit(topic Topic, payload interface{}) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.subs[topic]))
	for _, h := range e.subs[topic] {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		dispatch(topic, h, payload)
	}
}

func dispatch(topic Topic, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", string(topic)).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()

	h(payload)
}
