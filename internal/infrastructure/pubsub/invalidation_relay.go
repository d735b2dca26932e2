package pubsub

import (
	"sync"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/infrastructure/metrics"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// InvalidationRelay holds at most one pending invalidation signal per shop.
// Signals live only in this process: they are lost on restart and are not
// visible to other instances.
type InvalidationRelay struct {
	mu      sync.Mutex
	signals map[string]*domain.InvalidationSignal
	logger  zerolog.Logger
	now     func() time.Time
}

var _ ports.InvalidationRelay = (*InvalidationRelay)(nil)

// NewInvalidationRelay creates an empty in-memory relay
func NewInvalidationRelay(logger zerolog.Logger) *InvalidationRelay {
	return &InvalidationRelay{
		signals: make(map[string]*domain.InvalidationSignal),
		logger:  logger,
		now:     time.Now,
	}
}

// Publish records a signal for shop, replacing any signal not yet polled
func (r *InvalidationRelay) Publish(shop string, changes map[string]interface{}, invalidationType string) *domain.InvalidationSignal {
	if changes == nil {
		changes = map[string]interface{}{}
	}
	signal := &domain.InvalidationSignal{
		Shop:          shop,
		InvalidatedAt: r.now().UTC(),
		Changes:       changes,
		Type:          invalidationType,
	}

	r.mu.Lock()
	_, replaced := r.signals[shop]
	r.signals[shop] = signal
	r.mu.Unlock()

	metrics.RecordInvalidationPublished(invalidationType)
	r.logger.Info().
		Str("shop", shop).
		Str("type", invalidationType).
		Bool("replaced", replaced).
		Msg("Cache invalidation signal published")

	return signal
}

// Poll returns the pending signal for shop and removes it. It returns nil when
// nothing is pending.
func (r *InvalidationRelay) Poll(shop string) *domain.InvalidationSignal {
	r.mu.Lock()
	signal, ok := r.signals[shop]
	if ok {
		delete(r.signals, shop)
	}
	r.mu.Unlock()

	if ok {
		metrics.RecordInvalidationConsumed()
		r.logger.Debug().
			Str("shop", shop).
			Str("type", signal.Type).
			Msg("Cache invalidation signal consumed")
	}
	return signal
}

// Pending returns the number of signals waiting to be polled
func (r *InvalidationRelay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}
