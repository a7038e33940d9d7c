package storefront

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"phone8/internal/catalog"
	"phone8/internal/models"
)

// Event types published for storefront activity.
const (
	EventCatalogLoaded = "catalog.loaded"
	EventCatalogFailed = "catalog.failed"
	EventCartChanged   = "cart.changed"
)

// EventPublisher delivers storefront events to an external sink.
type EventPublisher interface {
	PublishEvent(eventType string, payload interface{}) error
}

// CatalogEvent describes how a session's catalog load settled.
type CatalogEvent struct {
	SessionID string `json:"session_id"`
	Products  int    `json:"products"`
	Attempts  int    `json:"attempts"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// CartLine is one cart entry in a CartEvent.
type CartLine struct {
	ProductID models.ProductID `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
}

// CartEvent is the full cart after a change.
type CartEvent struct {
	SessionID string          `json:"session_id"`
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
}

// NewEventForwarder returns a subscriber that publishes settled catalog
// loads and cart changes. Publish failures are logged and dropped.
func NewEventForwarder(pub EventPublisher, logger *zap.Logger) func(Snapshot) {
	return func(snap Snapshot) {
		eventType, payload, ok := eventFor(snap)
		if !ok {
			return
		}
		if err := pub.PublishEvent(eventType, payload); err != nil {
			logger.Warn("failed to publish storefront event",
				zap.String("type", eventType),
				zap.String("session", snap.SessionID),
				zap.Error(err))
		}
	}
}

func eventFor(snap Snapshot) (string, interface{}, bool) {
	switch snap.Change {
	case ChangeCatalog:
		switch snap.Catalog.Phase {
		case catalog.PhaseLoaded:
			return EventCatalogLoaded, CatalogEvent{
				SessionID: snap.SessionID,
				Products:  len(snap.Products),
				Attempts:  snap.Catalog.Attempts,
			}, true
		case catalog.PhaseFailed:
			ev := CatalogEvent{SessionID: snap.SessionID, Attempts: snap.Catalog.Attempts}
			if snap.Catalog.Err != nil {
				ev.Status = snap.Catalog.Err.StatusCode
				ev.Error = snap.Catalog.Err.Message()
				ev.Endpoint = snap.Catalog.Err.Endpoint
			}
			return EventCatalogFailed, ev, true
		}
	case ChangeCart:
		entries := snap.Cart.Entries()
		lines := make([]CartLine, len(entries))
		for i, e := range entries {
			lines[i] = CartLine{ProductID: e.ID, Quantity: e.Quantity, Price: e.Price}
		}
		return EventCartChanged, CartEvent{
			SessionID: snap.SessionID,
			Lines:     lines,
			Total:     snap.Cart.Total(),
		}, true
	}
	return "", nil, false
}
