package lifecycle

import (
	"context"
	"time"

	"cargo-connect-api-server/internal/models"
)

// Store is the persistence boundary of the lifecycle service. Conditional
// updates filter on the expected current status and report whether a
// document was modified, so two racing writers cannot both win the same
// transition. The MongoDB implementation lives in internal/store.
type Store interface {
	FindOffer(ctx context.Context, offerID string) (*models.Offer, error)
	FindBid(ctx context.Context, bidID string) (*models.Bid, error)
	FindDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error)

	// SetOfferAssigned moves an ACTIVE offer to ASSIGNED, recording the
	// winning bid and the delivery. Returns false if the offer was not
	// ACTIVE anymore.
	SetOfferAssigned(ctx context.Context, offerID, bidID, deliveryID string) (bool, error)
	// SetOfferStatus performs a compare-and-swap on the offer status.
	SetOfferStatus(ctx context.Context, offerID, from, to string) (bool, error)

	// SetBidStatus performs a compare-and-swap on the bid status.
	SetBidStatus(ctx context.Context, bidID, from, to string) (bool, error)
	// SetBidCountered moves a PENDING bid to COUNTERED with the proposed amount.
	SetBidCountered(ctx context.Context, bidID string, counterAmount float64) (bool, error)
	// SetCounterAccepted moves a COUNTERED bid back to PENDING, promoting
	// the counter amount to the bid amount.
	SetCounterAccepted(ctx context.Context, bidID string) (bool, error)
	// RejectPendingBids rejects every PENDING bid on the offer except the
	// given one, returning the provider IDs of the rejected bids.
	RejectPendingBids(ctx context.Context, offerID, exceptBidID string) ([]string, error)

	InsertDelivery(ctx context.Context, d *models.Delivery) error
	// AdvanceDelivery performs a compare-and-swap on the delivery status
	// and appends the tracking point. Returns false if the delivery was
	// no longer in the expected status.
	AdvanceDelivery(ctx context.Context, deliveryID, from, to string, pt models.TrackingPoint, at time.Time) (bool, error)
	// SpendCodeAttempt burns one confirmation attempt and returns how many
	// remain.
	SpendCodeAttempt(ctx context.Context, deliveryID string) (int, error)
}
