package feed

import (
	"github.com/rs/zerolog"

	"github.com/lensworks/go-optics-backend/internal/querycache"
)

// FamilyFor maps a store table to the entity family whose cached queries it
// affects. Tables outside the cache's interest return ok=false.
func FamilyFor(table string) (querycache.Family, bool) {
	switch table {
	case "frames", "stock_movements":
		return querycache.FamilyInventory, true
	case "brands", "groups", "sub_brands", "descriptions":
		return querycache.FamilyCatalog, true
	case "customers", "companies", "prescriptions":
		return querycache.FamilyCustomers, true
	case "sale_notes", "sale_items":
		return querycache.FamilySales, true
	case "cash_sessions", "cash_movements":
		return querycache.FamilyCashBox, true
	case "campaigns":
		return querycache.FamilyCampaigns, true
	default:
		return "", false
	}
}

// Notifier receives a user-facing notification for each reconciled change.
// The websocket stream handler implements it to push changes to clients.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ev Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// Reconciler subscribes to the whole change feed and reconciles the query
// cache with out-of-band changes: each event invalidates the affected
// entity family (idempotently, so an event racing a local mutation's own
// invalidation converges to the same state) and is forwarded to the
// notifier.
type Reconciler struct {
	cache    *querycache.Cache
	notifier Notifier
	logger   zerolog.Logger
	sub      *Subscription
}

// NewReconciler starts reconciling bus events into cache invalidations.
// notifier may be nil.
func NewReconciler(bus *Bus, cache *querycache.Cache, notifier Notifier, policy ReconnectPolicy, logger zerolog.Logger) *Reconciler {
	r := &Reconciler{cache: cache, notifier: notifier, logger: logger}
	r.sub = bus.Subscribe("", r.apply, policy, logger)
	return r
}

// apply handles one change event. Invalidation is idempotent: applying the
// same event twice leaves the cache in the same state as applying it once.
func (r *Reconciler) apply(ev Event) {
	family, ok := FamilyFor(ev.Table)
	if !ok {
		return
	}
	n := r.cache.Invalidate(querycache.FamilyPattern(family))
	r.logger.Info().
		Str("table", ev.Table).
		Str("action", string(ev.Action)).
		Str("row_id", ev.RowID).
		Int("invalidated", n).
		Msg("realtime change reconciled")
	if r.notifier != nil {
		r.notifier.Notify(ev)
	}
}

// Subscription exposes the underlying feed subscription (state inspection,
// manual reconnect).
func (r *Reconciler) Subscription() *Subscription { return r.sub }

// Close stops reconciliation deterministically.
func (r *Reconciler) Close() { r.sub.Close() }
