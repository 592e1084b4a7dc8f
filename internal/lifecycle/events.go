package lifecycle

import "context"

// Event types emitted by the lifecycle service.
const (
	EventBidAccepted       = "bid_accepted"
	EventBidRejected       = "bid_rejected"
	EventBidCountered      = "bid_countered"
	EventCounterAccepted   = "counter_accepted"
	EventDeliveryCreated   = "delivery_created"
	EventDeliveryAdvanced  = "delivery_advanced"
	EventDeliveryCompleted = "delivery_completed"
	EventOfferCancelled    = "offer_cancelled"
)

// Event describes a lifecycle state change for downstream fan-out
// (websocket push, persisted notifications, tracking broadcast).
type Event struct {
	Type       string   `json:"event"`
	OfferID    string   `json:"offerID,omitempty"`
	BidID      string   `json:"bidID,omitempty"`
	DeliveryID string   `json:"deliveryID,omitempty"`
	Status     string   `json:"status,omitempty"`
	Recipients []string `json:"-"`
}

// Notifier receives lifecycle events. Delivery of an event is best-effort;
// the state change has already been committed when Notify is called.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
