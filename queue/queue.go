// Package queue relays stock ledger events to RabbitMQ so other services can
// react to stock movements.
package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"
	"github.com/streadway/amqp"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

// Publisher sends ledger events to the broker.
type Publisher interface {
	PublishStockUpdate(ctx context.Context, evt stock.UpdatedEvent) error
	PublishReservationEvent(ctx context.Context, topic stock.Topic, payload interface{}) error
}

type stockQueue struct {
	queue               *bunnyq.BunnyQ
	stockExchange       string
	reservationExchange string
}

func New(bq *bunnyq.BunnyQ, stockExchange, reservationExchange string) Publisher {
	return &stockQueue{queue: bq, stockExchange: stockExchange, reservationExchange: reservationExchange}
}

func (q *stockQueue) PublishStockUpdate(ctx context.Context, evt stock.UpdatedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize stock update for queue")
	}
	if err = q.queue.Publish(ctx, q.stockExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send stock update to queue")
	}
	return nil
}

func (q *stockQueue) PublishReservationEvent(ctx context.Context, topic stock.Topic, payload interface{}) error {
	envelope := struct {
		Topic   stock.Topic `json:"topic"`
		Payload interface{} `json:"payload"`
	}{Topic: topic, Payload: payload}

	body, err := json.Marshal(envelope)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize reservation event for queue")
	}
	if err = q.queue.Publish(ctx, q.reservationExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send reservation event to queue")
	}
	return nil
}

type SaleQueue struct {
	queue           *bunnyq.BunnyQ
	saleQueue       string
	saleDltExchange string
}

func NewSaleQueue(bq *bunnyq.BunnyQ, saleQueue, saleDltExchange string) *SaleQueue {
	return &SaleQueue{queue: bq, saleQueue: saleQueue, saleDltExchange: saleDltExchange}
}

type SaleHandler interface {
	ProcessSale(ctx context.Context, sale stock.SaleEvent) (stock.SaleResult, error)
}

// ConsumeSales applies checkout events arriving from the order service to the
// ledger. Malformed or unprocessable deliveries go to the dead letter exchange.
func (q *SaleQueue) ConsumeSales(ctx context.Context, handler SaleHandler) {
	q.queue.Stream(ctx, q.saleQueue, func(delivery amqp.Delivery) {
		sale := stock.SaleEvent{}
		err := json.Unmarshal(delivery.Body, &sale)
		if err != nil {
			log.Error().Err(err).Msg("error unmarshalling sale, writing to dlt")
			q.sendToDlt(ctx, delivery.Body)
			return
		}

		if _, err = handler.ProcessSale(ctx, sale); err != nil {
			log.Error().Err(err).Str("orderId", sale.OrderID).Msg("error handling sale, writing to dlt")
			q.sendToDlt(ctx, delivery.Body)
		}
	}, bunnyq.StreamOpAutoAck)
}

func (q *SaleQueue) sendToDlt(ctx context.Context, data []byte) {
	err := q.queue.Publish(ctx, q.saleDltExchange, data)
	if err != nil {
		log.Error().Err(err).Msg("error writing to dlt")
	}
}

// EventSource is the slice of the ledger the relay subscribes through.
type EventSource interface {
	On(topic stock.Topic, h stock.Handler) stock.SubID
	Off(topic stock.Topic, id stock.SubID)
}

// Relay forwards ledger events to a Publisher. Publish failures are logged and
// never propagate back into the triggering ledger operation.
type Relay struct {
	source EventSource
	subs   map[stock.Topic]stock.SubID
}

func NewRelay(ctx context.Context, source EventSource, pub Publisher) *Relay {
	r := &Relay{source: source, subs: make(map[stock.Topic]stock.SubID)}

	r.subs[stock.TopicStockUpdated] = source.On(stock.TopicStockUpdated, func(payload interface{}) {
		evt, ok := payload.(stock.UpdatedEvent)
		if !ok {
			return
		}
		if err := pub.PublishStockUpdate(ctx, evt); err != nil {
			log.Error().Err(err).Msg("failed to relay stock update")
		}
	})

	for _, topic := range []stock.Topic{stock.TopicStockReserved, stock.TopicStockReleased, stock.TopicReservationExpired} {
		topic := topic
		r.subs[topic] = source.On(topic, func(payload interface{}) {
			if err := pub.PublishReservationEvent(ctx, topic, payload); err != nil {
				log.Error().Err(err).Str("topic", string(topic)).Msg("failed to relay reservation event")
			}
		})
	}

	return r
}

func (r *Relay) Stop() {
	for topic, id := range r.subs {
		r.source.Off(topic, id)
	}
}
