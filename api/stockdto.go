package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

type ReserveStockRequest struct {
	Quantity          int64  `json:"quantity"`
	ReservedBy        string `json:"reservedBy"`
	Type              string `json:"reservationType"`
	ExpirationMinutes int    `json:"expirationMinutes"`

	reservationType stock.ReservationType
}

func (d *ReserveStockRequest) Bind(_ *http.Request) error {
	if d.ReservedBy == "" {
		return errors.New("reservedBy is required")
	}
	if d.Quantity < 1 {
		return errors.New("requested quantity must be greater than zero")
	}
	if d.ExpirationMinutes < 0 {
		return errors.New("expirationMinutes must not be negative")
	}

	rt, err := stock.ParseReservationType(d.Type)
	if err != nil {
		return err
	}
	d.reservationType = rt

	return nil
}

func (d *ReserveStockRequest) toRequest(productID string) stock.ReservationRequest {
	return stock.ReservationRequest{
		ProductID:  productID,
		Quantity:   d.Quantity,
		ReservedBy: d.ReservedBy,
		Type:       d.reservationType,
		Expiration: time.Duration(d.ExpirationMinutes) * time.Minute,
	}
}

type SaleRequest struct {
	stock.SaleEvent
}

func (d *SaleRequest) Bind(_ *http.Request) error {
	if d.OrderID == "" {
		return errors.New("orderId is required")
	}
	if d.Quantity < 1 {
		return errors.New("sale quantity must be greater than zero")
	}
	return nil
}

type ReturnRequest struct {
	Quantity int64  `json:"quantity"`
	OrderID  string `json:"orderId"`
	Reason   string `json:"reason,omitempty"`
}

func (d *ReturnRequest) Bind(_ *http.Request) error {
	if d.OrderID == "" {
		return errors.New("orderId is required")
	}
	if d.Quantity < 1 {
		return errors.New("return quantity must be greater than zero")
	}
	return nil
}

type StockResponse struct {
	stock.StockLock
}

func (r *StockResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type ReservationResponse struct {
	stock.Reservation
}

func (r *ReservationResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewReservationListResponse(reservations []stock.Reservation) []render.Renderer {
	list := make([]render.Renderer, 0, len(reservations))
	for _, res := range reservations {
		res := res
		list = append(list, &ReservationResponse{Reservation: res})
	}
	return list
}

type SaleResponse struct {
	stock.SaleResult
}

func (r *SaleResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type TransactionResponse struct {
	stock.Transaction
}

func (r *TransactionResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewTransactionListResponse(transactions []stock.Transaction) []render.Renderer {
	list := make([]render.Renderer, 0, len(transactions))
	for _, txn := range transactions {
		txn := txn
		list = append(list, &TransactionResponse{Transaction: txn})
	}
	return list
}

// StockEventMessage is the envelope streamed to websocket subscribers.
type StockEventMessage struct {
	Topic   stock.Topic `json:"topic"`
	Payload interface{} `json:"payload"`
}
