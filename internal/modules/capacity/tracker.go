// Package capacity enforces per-product yearly limits on how much new
// production capacity technology switches may add. A fresh tracker is created
// at the start of every simulated year and consulted sequentially as units
// decide, so earlier deciders consume headroom that later deciders no longer
// see.
package capacity

import (
	"github.com/rs/zerolog"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// Tracker accumulates capacity added by technology switches within one year
// and answers whether another addition still fits under the limit. A share of
// each limit is reserved for greenfield plant construction and is never
// available to switches.
type Tracker struct {
	limits   map[domain.Product]float64
	reserved float64 // fraction of each limit held back for new plants
	added    map[domain.Product]float64

	log zerolog.Logger
}

// NewTracker returns a tracker for one simulation year. Limits are t/year per
// product; reservedShare is the fraction of each limit held back for
// greenfield construction.
func NewTracker(limits map[domain.Product]float64, reservedShare float64, log zerolog.Logger) *Tracker {
	t := &Tracker{
		limits:   make(map[domain.Product]float64, len(limits)),
		reserved: reservedShare,
		added:    make(map[domain.Product]float64, len(limits)),
		log:      log.With().Str("component", "capacity_tracker").Logger(),
	}
	for product, limit := range limits {
		t.limits[product] = limit
	}
	return t
}

// Allows reports whether adding the candidate capacity for the product stays
// within the switch headroom: already added + candidate must not exceed the
// limit minus the reserved greenfield share. Products without a configured
// limit are unconstrained.
func (t *Tracker) Allows(product domain.Product, candidate float64) bool {
	limit, ok := t.limits[product]
	if !ok {
		return true
	}
	headroom := limit * (1 - t.reserved)
	return t.added[product]+candidate <= headroom
}

// Commit records an accepted addition. Callers must check Allows first;
// Commit does not re-validate.
func (t *Tracker) Commit(product domain.Product, added float64) {
	t.added[product] += added
	t.log.Debug().
		Str("product", string(product)).
		Float64("added", added).
		Float64("total", t.added[product]).
		Msg("Capacity addition committed")
}

// Added returns the capacity committed so far for a product.
func (t *Tracker) Added(product domain.Product) float64 {
	return t.added[product]
}
