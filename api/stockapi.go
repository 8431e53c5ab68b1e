package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog/log"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

// StockService is the slice of the stock ledger the HTTP layer consumes.
type StockService interface {
	Reserve(ctx context.Context, rr stock.ReservationRequest) (stock.Reservation, error)
	Release(ctx context.Context, reservationID string) (stock.Reservation, error)
	ProcessSale(ctx context.Context, sale stock.SaleEvent) (stock.SaleResult, error)
	ProcessReturn(ctx context.Context, productID string, quantity int64, orderID, reason string) (stock.SaleResult, error)

	GetStockInfo(productID string) (stock.StockLock, bool)
	GetProductReservations(productID string) []stock.Reservation
	GetProductTransactions(productID string, limit int) []stock.Transaction

	On(topic stock.Topic, h stock.Handler) stock.SubID
	Off(topic stock.Topic, id stock.SubID)
}

type StockApi struct {
	service StockService
}

func NewStockApi(service StockService) *StockApi {
	return &StockApi{service: service}
}

const (
	CtxKeyProductID CtxKey = "productId"
)

func (a *StockApi) ConfigureRouter(r chi.Router) {
	r.HandleFunc("/subscribe", a.Subscribe)

	r.Route("/{productId}", func(r chi.Router) {
		r.Use(a.ProductIDCtx)
		r.Get("/", a.GetStockInfo)
		r.Get("/reservations", a.GetReservations)
		r.With(Paginate).Get("/transactions", a.GetTransactions)
		r.Put("/reservation", a.Reserve)
		r.Post("/sale", a.ProcessSale)
		r.Post("/return", a.ProcessReturn)
	})
}

func (a *StockApi) ProductIDCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productId")
		if productID == "" {
			Render(w, r, ErrInvalidRequest(errors.New("product id is required")))
			return
		}

		ctx := context.WithValue(r.Context(), CtxKeyProductID, productID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *StockApi) GetStockInfo(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	lock, ok := a.service.GetStockInfo(productID)
	if !ok {
		Render(w, r, ErrNotFound)
		return
	}

	render.Status(r, http.StatusOK)
	Render(w, r, &StockResponse{StockLock: lock})
}

func (a *StockApi) GetReservations(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	reservations := a.service.GetProductReservations(productID)
	RenderList(w, r, NewReservationListResponse(reservations))
}

func (a *StockApi) GetTransactions(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	limit := r.Context().Value(CtxKeyLimit).(int)

	transactions := a.service.GetProductTransactions(productID, limit)
	RenderList(w, r, NewTransactionListResponse(transactions))
}

func (a *StockApi) Reserve(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	data := &ReserveStockRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	res, err := a.service.Reserve(r.Context(), data.toRequest(productID))
	if err != nil {
		renderLedgerErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, &ReservationResponse{Reservation: res})
}

func (a *StockApi) ProcessSale(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	data := &SaleRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	sale := data.SaleEvent
	sale.ProductID = productID

	result, err := a.service.ProcessSale(r.Context(), sale)
	if err != nil {
		renderLedgerErr(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	Render(w, r, &SaleResponse{SaleResult: result})
}

func (a *StockApi) ProcessReturn(w http.ResponseWriter, r *http.Request) {
	productID := r.Context().Value(CtxKeyProductID).(string)

	data := &ReturnRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	result, err := a.service.ProcessReturn(r.Context(), productID, data.Quantity, data.OrderID, data.Reason)
	if err != nil {
		renderLedgerErr(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	Render(w, r, &SaleResponse{SaleResult: result})
}

// Subscribe streams ledger events to the client over a websocket connection.
//
// Note: updates are only those observed by this instance; scaling beyond a
// single process is explicitly out of scope for the ledger.
func (a *StockApi) Subscribe(w http.ResponseWriter, r *http.Request) {
	log.Info().Msg("client requesting stock subscription")

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Err(err).Msg("failed to establish stock subscription connection")
		Render(w, r, ErrInternalServer)
		return
	}

	go func() {
		defer conn.Close()

		events := make(chan StockEventMessage, 16)
		topics := []stock.Topic{
			stock.TopicStockReserved,
			stock.TopicStockReleased,
			stock.TopicStockUpdated,
			stock.TopicReservationExpired,
		}

		subs := make(map[stock.Topic]stock.SubID, len(topics))
		for _, topic := range topics {
			topic := topic
			subs[topic] = a.service.On(topic, func(payload interface{}) {
				select {
				case events <- StockEventMessage{Topic: topic, Payload: payload}:
				default:
					log.Warn().Str("topic", string(topic)).Msg("slow subscriber, dropping event")
				}
			})
		}
		defer func() {
			for topic, id := range subs {
				a.service.Off(topic, id)
			}
		}()

		for evt := range events {
			body, err := json.Marshal(evt)
			if err != nil {
				log.Err(err).Msg("failed to marshal stock event")
				continue
			}

			log.Debug().Str("topic", string(evt.Topic)).Msg("sending stock event to client")
			if err := wsutil.WriteServerText(conn, body); err != nil {
				log.Err(err).Msg("failed to write server message, disconnecting client")
				return
			}
		}
	}()
}

func renderLedgerErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, stock.ErrProductNotFound), errors.Is(err, stock.ErrReservationNotFound):
		Render(w, r, ErrNotFoundMsg(err))
	case errors.Is(err, stock.ErrInsufficientStock):
		Render(w, r, ErrConflict(err))
	default:
		log.Err(err).Send()
		Render(w, r, ErrInternalServer)
	}
}

type ReservationApi struct {
	service StockService
}

func NewReservationApi(service StockService) *ReservationApi {
	return &ReservationApi{service: service}
}

func (a *ReservationApi) ConfigureRouter(r chi.Router) {
	r.Route("/{ID}", func(r chi.Router) {
		r.Delete("/", a.Release)
	})
}

func (a *ReservationApi) Release(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ID")
	if id == "" {
		Render(w, r, ErrInvalidRequest(errors.New("reservation id is required")))
		return
	}

	res, err := a.service.Release(r.Context(), id)
	if err != nil {
		renderLedgerErr(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	Render(w, r, &ReservationResponse{Reservation: res})
}
