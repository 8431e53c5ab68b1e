package stock

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often the background sweep looks for reservations
// past their horizon. A reservation may appear active for up to one interval
// after expiring; expiry is a soft bound, not a hard guarantee.
const DefaultSweepInterval = time.Minute

// StartSweeper runs the expiration sweep on a fixed interval until the context
// is cancelled.
func (l *Ledger) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	log.Info().Dur("interval", interval).Msg("starting reservation sweeper")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reservation sweeper stopped")
				return
			case now := <-ticker.C:
				l.sweep(ctx, now)
			}
		}
	}()
}

// sweep expires every active reservation whose horizon has passed and releases
// its held quantity back to the available pool. Functionally a release, but the
// reservation is tagged expired, a reservationExpired event is emitted instead
// of stockReleased, and no transaction entry is written.
func (l *Ledger) sweep(ctx context.Context, now time.Time) {
	const funcName = "sweep"

	l.mu.Lock()

	var expired []ExpiredEvent
	for _, res := range l.reservations {
		if res.Status != Active || res.Expires.After(now) {
			continue
		}

		res.Status = Expired

		if lock, ok := l.locks[res.ProductID]; ok {
			lock.Reservations = removeReservation(lock.Reservations, res.ID)
			lock.LockedQuantity -= res.Quantity
			if lock.LockedQuantity < 0 {
				lock.LockedQuantity = 0
			}
			lock.recompute()
		}

		log.Info().
			Str("func", funcName).
			Str("reservationId", res.ID).
			Str("productId", res.ProductID).
			Int64("quantity", res.Quantity).
			Msg("reservation expired")

		expired = append(expired, ExpiredEvent{
			ReservationID: res.ID,
			ProductID:     res.ProductID,
			Quantity:      res.Quantity,
		})
	}

	if len(expired) > 0 {
		l.persist(ctx)
	}

	l.mu.Unlock()

	for _, evt := range expired {
		l.events.emit(TopicReservationExpired, evt)
	}
}
