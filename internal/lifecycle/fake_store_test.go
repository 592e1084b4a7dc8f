package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
)

// fakeStore is an in-memory Store with the same compare-and-swap
// semantics as the MongoDB implementation.
type fakeStore struct {
	mu         sync.Mutex
	offers     map[string]*models.Offer
	bids       map[string]*models.Bid
	deliveries map[string]*models.Delivery

	failInsertDelivery bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offers:     make(map[string]*models.Offer),
		bids:       make(map[string]*models.Bid),
		deliveries: make(map[string]*models.Delivery),
	}
}

func (f *fakeStore) putOffer(o models.Offer)    { f.offers[o.OfferID] = &o }
func (f *fakeStore) putBid(b models.Bid)        { f.bids[b.BidID] = &b }
func (f *fakeStore) putDelivery(d models.Delivery) {
	f.deliveries[d.DeliveryID] = &d
}

func (f *fakeStore) offer(id string) models.Offer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.offers[id]
}

func (f *fakeStore) bid(id string) models.Bid {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.bids[id]
}

func (f *fakeStore) delivery(id string) models.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.deliveries[id]
}

func (f *fakeStore) FindOffer(_ context.Context, offerID string) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[offerID]
	if !ok {
		return nil, lifecycle.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindBid(_ context.Context, bidID string) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bids[bidID]
	if !ok {
		return nil, lifecycle.ErrBidNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) FindDelivery(_ context.Context, deliveryID string) (*models.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[deliveryID]
	if !ok {
		return nil, lifecycle.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) SetOfferAssigned(_ context.Context, offerID, bidID, deliveryID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[offerID]
	if !ok || o.Status != models.OfferActive {
		return false, nil
	}
	o.Status = models.OfferAssigned
	o.AcceptedBidID = bidID
	o.DeliveryID = deliveryID
	return true, nil
}

func (f *fakeStore) SetOfferStatus(_ context.Context, offerID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[offerID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (f *fakeStore) SetBidStatus(_ context.Context, bidID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bids[bidID]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f *fakeStore) SetBidCountered(_ context.Context, bidID string, counterAmount float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bids[bidID]
	if !ok || b.Status != models.BidPending {
		return false, nil
	}
	b.Status = models.BidCountered
	b.CounterAmount = counterAmount
	return true, nil
}

func (f *fakeStore) SetCounterAccepted(_ context.Context, bidID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bids[bidID]
	if !ok || b.Status != models.BidCountered {
		return false, nil
	}
	b.Status = models.BidPending
	b.Amount = b.CounterAmount
	b.CounterAmount = 0
	return true, nil
}

func (f *fakeStore) RejectPendingBids(_ context.Context, offerID, exceptBidID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var providers []string
	for _, b := range f.bids {
		if b.OfferID == offerID && b.BidID != exceptBidID && b.Status == models.BidPending {
			b.Status = models.BidRejected
			providers = append(providers, b.ProviderID)
		}
	}
	return providers, nil
}

func (f *fakeStore) InsertDelivery(_ context.Context, d *models.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertDelivery {
		return errors.New("insert failed")
	}
	cp := *d
	f.deliveries[d.DeliveryID] = &cp
	return nil
}

func (f *fakeStore) AdvanceDelivery(_ context.Context, deliveryID, from, to string, pt models.TrackingPoint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[deliveryID]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	d.TrackingHistory = append(d.TrackingHistory, pt)
	d.UpdatedAt = at
	switch to {
	case models.DeliveryPickedUp:
		d.PickupTime = &at
	case models.DeliveryDelivered:
		d.DeliveryTime = &at
	}
	return true, nil
}

func (f *fakeStore) SpendCodeAttempt(_ context.Context, deliveryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[deliveryID]
	if !ok || d.CodeAttemptsLeft <= 0 {
		return 0, nil
	}
	d.CodeAttemptsLeft--
	return d.CodeAttemptsLeft, nil
}

// recorder captures emitted events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (r *recorder) Notify(_ context.Context, evt lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
