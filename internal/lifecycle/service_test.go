package lifecycle_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
)

func seedOfferWithBids(store *fakeStore) {
	store.putOffer(models.Offer{
		OfferID:     "OFR-TEST0001",
		RequesterID: "USR-REQ1",
		Status:      models.OfferActive,
		From:        models.Location{Address: "Da Nang", Point: models.NewGeoPoint(16.0544, 108.2022)},
		To:          models.Location{Address: "Hue", Point: models.NewGeoPoint(16.4637, 107.5909)},
	})
	store.putBid(models.Bid{
		BidID:      "BID-WINNER01",
		OfferID:    "OFR-TEST0001",
		ProviderID: "USR-PRV1",
		Amount:     500000,
		Status:     models.BidPending,
	})
	store.putBid(models.Bid{
		BidID:      "BID-LOSER001",
		OfferID:    "OFR-TEST0001",
		ProviderID: "USR-PRV2",
		Amount:     650000,
		Status:     models.BidPending,
	})
}

func TestAcceptBid(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	rec := &recorder{}
	svc := lifecycle.NewService(store, rec)

	delivery, err := svc.AcceptBid(context.Background(), "BID-WINNER01")
	require.NoError(t, err)
	require.NotNil(t, delivery)

	offer := store.offer("OFR-TEST0001")
	assert.Equal(t, models.OfferAssigned, offer.Status)
	assert.Equal(t, "BID-WINNER01", offer.AcceptedBidID)
	assert.Equal(t, delivery.DeliveryID, offer.DeliveryID)

	assert.Equal(t, models.BidAccepted, store.bid("BID-WINNER01").Status)
	assert.Equal(t, models.BidRejected, store.bid("BID-LOSER001").Status, "sibling bids are rejected")

	assert.Equal(t, models.DeliveryAssigned, delivery.Status)
	assert.Equal(t, "USR-PRV1", delivery.ProviderID)
	require.Len(t, delivery.TrackingHistory, 1)
	assert.Equal(t, offer.From.Point, delivery.TrackingHistory[0].Point, "tracking starts at the pickup point")
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), delivery.ConfirmationCode)
	assert.Equal(t, lifecycle.CodeAttempts, delivery.CodeAttemptsLeft)

	assert.Contains(t, rec.types(), lifecycle.EventBidAccepted)
	assert.Contains(t, rec.types(), lifecycle.EventBidRejected)
	assert.Contains(t, rec.types(), lifecycle.EventDeliveryCreated)
}

func TestAcceptBidSecondAcceptLoses(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)

	_, err := svc.AcceptBid(context.Background(), "BID-WINNER01")
	require.NoError(t, err)

	// The sibling was rejected by the first accept.
	_, err = svc.AcceptBid(context.Background(), "BID-LOSER001")
	assert.ErrorIs(t, err, lifecycle.ErrBidNotPending)

	// A still-pending bid on the assigned offer loses on the offer check.
	store.putBid(models.Bid{
		BidID:      "BID-LATE0001",
		OfferID:    "OFR-TEST0001",
		ProviderID: "USR-PRV3",
		Status:     models.BidPending,
	})
	_, err = svc.AcceptBid(context.Background(), "BID-LATE0001")
	assert.ErrorIs(t, err, lifecycle.ErrOfferNotActive)
}

func TestAcceptBidUnknownBid(t *testing.T) {
	svc := lifecycle.NewService(newFakeStore(), nil)
	_, err := svc.AcceptBid(context.Background(), "BID-MISSING1")
	assert.ErrorIs(t, err, lifecycle.ErrBidNotFound)
}

func TestAcceptBidRollsBackWhenDeliveryFails(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	store.failInsertDelivery = true
	svc := lifecycle.NewService(store, nil)

	_, err := svc.AcceptBid(context.Background(), "BID-WINNER01")
	require.Error(t, err)

	assert.Equal(t, models.OfferActive, store.offer("OFR-TEST0001").Status)
	assert.Equal(t, models.BidPending, store.bid("BID-WINNER01").Status)
	assert.Equal(t, models.BidPending, store.bid("BID-LOSER001").Status)

	// The offer is usable again once inserts work.
	store.failInsertDelivery = false
	_, err = svc.AcceptBid(context.Background(), "BID-WINNER01")
	assert.NoError(t, err)
}

func acceptAndGetDelivery(t *testing.T, svc *lifecycle.Service) *models.Delivery {
	t.Helper()
	delivery, err := svc.AcceptBid(context.Background(), "BID-WINNER01")
	require.NoError(t, err)
	return delivery
}

func TestAdvanceDeliveryHappyPath(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	rec := &recorder{}
	svc := lifecycle.NewService(store, rec)
	delivery := acceptAndGetDelivery(t, svc)
	ctx := context.Background()

	d, err := svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryPickedUp, models.NewGeoPoint(16.06, 108.21), "")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPickedUp, d.Status)
	require.NotNil(t, d.PickupTime)

	d, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryInTransit, models.NewGeoPoint(16.2, 107.9), "")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryInTransit, d.Status)

	d, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.NewGeoPoint(16.4637, 107.5909), delivery.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, d.Status)
	require.NotNil(t, d.DeliveryTime)
	assert.Len(t, d.TrackingHistory, 4)

	assert.Equal(t, models.OfferCompleted, store.offer("OFR-TEST0001").Status, "completing the delivery completes the offer")
	assert.Contains(t, rec.types(), lifecycle.EventDeliveryAdvanced)
	assert.Contains(t, rec.types(), lifecycle.EventDeliveryCompleted)
}

func TestAdvanceDeliveryRejectsSkipsAndBackwardMoves(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)
	delivery := acceptAndGetDelivery(t, svc)
	ctx := context.Background()

	_, err := svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryInTransit, models.GeoPoint{}, "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "skipping PICKED_UP is rejected")

	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.GeoPoint{}, delivery.ConfirmationCode)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryPickedUp, models.GeoPoint{}, "")
	require.NoError(t, err)

	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryAssigned, models.GeoPoint{}, "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "no going back")
}

func TestConfirmDeliveryCodeGate(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)
	delivery := acceptAndGetDelivery(t, svc)
	ctx := context.Background()

	_, err := svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryPickedUp, models.GeoPoint{}, "")
	require.NoError(t, err)
	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryInTransit, models.GeoPoint{}, "")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == delivery.ConfirmationCode {
		wrong = "000001"
	}

	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.GeoPoint{}, wrong)
	assert.ErrorIs(t, err, lifecycle.ErrCodeMismatch)
	assert.Equal(t, lifecycle.CodeAttempts-1, store.delivery(delivery.DeliveryID).CodeAttemptsLeft)
	assert.Equal(t, models.DeliveryInTransit, store.delivery(delivery.DeliveryID).Status, "a failed attempt does not move the delivery")

	// The correct code still works while attempts remain.
	d, err := svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.GeoPoint{}, delivery.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, d.Status)
}

func TestConfirmDeliveryLocksAfterExhaustedAttempts(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)
	delivery := acceptAndGetDelivery(t, svc)
	ctx := context.Background()

	_, err := svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryPickedUp, models.GeoPoint{}, "")
	require.NoError(t, err)
	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryInTransit, models.GeoPoint{}, "")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == delivery.ConfirmationCode {
		wrong = "000001"
	}
	for i := 0; i < lifecycle.CodeAttempts; i++ {
		_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.GeoPoint{}, wrong)
		assert.ErrorIs(t, err, lifecycle.ErrCodeMismatch)
	}

	// Even the right code is refused once the counter hits zero.
	_, err = svc.AdvanceDelivery(ctx, delivery.DeliveryID, models.DeliveryDelivered, models.GeoPoint{}, delivery.ConfirmationCode)
	assert.ErrorIs(t, err, lifecycle.ErrCodeLocked)
	assert.Equal(t, models.DeliveryInTransit, store.delivery(delivery.DeliveryID).Status)
}

func TestCancelOffer(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	rec := &recorder{}
	svc := lifecycle.NewService(store, rec)

	err := svc.CancelOffer(context.Background(), "OFR-TEST0001")
	require.NoError(t, err)

	assert.Equal(t, models.OfferCancelled, store.offer("OFR-TEST0001").Status)
	assert.Equal(t, models.BidRejected, store.bid("BID-WINNER01").Status)
	assert.Equal(t, models.BidRejected, store.bid("BID-LOSER001").Status)
	assert.Contains(t, rec.types(), lifecycle.EventOfferCancelled)

	// Cancelling twice, or cancelling an assigned offer, is refused.
	err = svc.CancelOffer(context.Background(), "OFR-TEST0001")
	assert.ErrorIs(t, err, lifecycle.ErrOfferNotActive)
}

func TestCancelOfferRefusedOnceAssigned(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)

	_, err := svc.AcceptBid(context.Background(), "BID-WINNER01")
	require.NoError(t, err)

	err = svc.CancelOffer(context.Background(), "OFR-TEST0001")
	assert.ErrorIs(t, err, lifecycle.ErrOfferNotActive)
	assert.Equal(t, models.OfferAssigned, store.offer("OFR-TEST0001").Status)
}

func TestRejectBid(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)

	err := svc.RejectBid(context.Background(), "BID-LOSER001")
	require.NoError(t, err)
	assert.Equal(t, models.BidRejected, store.bid("BID-LOSER001").Status)

	err = svc.RejectBid(context.Background(), "BID-LOSER001")
	assert.ErrorIs(t, err, lifecycle.ErrBidNotPending)
}

func TestCounterBidFlow(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	rec := &recorder{}
	svc := lifecycle.NewService(store, rec)
	ctx := context.Background()

	err := svc.CounterBid(ctx, "BID-WINNER01", 450000)
	require.NoError(t, err)
	bid := store.bid("BID-WINNER01")
	assert.Equal(t, models.BidCountered, bid.Status)
	assert.Equal(t, 450000.0, bid.CounterAmount)
	assert.Equal(t, 500000.0, bid.Amount, "the original amount stands until the counter is accepted")

	// A countered bid cannot be countered again or accepted outright.
	err = svc.CounterBid(ctx, "BID-WINNER01", 400000)
	assert.ErrorIs(t, err, lifecycle.ErrBidNotPending)
	_, err = svc.AcceptBid(ctx, "BID-WINNER01")
	assert.ErrorIs(t, err, lifecycle.ErrBidNotPending)

	// The provider accepts the counter: the bid returns to PENDING at the
	// agreed amount, and the requester can now accept it for real.
	err = svc.RespondToCounter(ctx, "BID-WINNER01", true)
	require.NoError(t, err)
	bid = store.bid("BID-WINNER01")
	assert.Equal(t, models.BidPending, bid.Status)
	assert.Equal(t, 450000.0, bid.Amount)
	assert.Zero(t, bid.CounterAmount)

	_, err = svc.AcceptBid(ctx, "BID-WINNER01")
	require.NoError(t, err)
	assert.Contains(t, rec.types(), lifecycle.EventBidCountered)
	assert.Contains(t, rec.types(), lifecycle.EventCounterAccepted)
}

func TestCounterBidDeclined(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.CounterBid(ctx, "BID-WINNER01", 450000))
	require.NoError(t, svc.RespondToCounter(ctx, "BID-WINNER01", false))
	assert.Equal(t, models.BidRejected, store.bid("BID-WINNER01").Status)

	err := svc.RespondToCounter(ctx, "BID-WINNER01", true)
	assert.ErrorIs(t, err, lifecycle.ErrBidNotCountered)
}

func TestCounterBidValidation(t *testing.T) {
	store := newFakeStore()
	seedOfferWithBids(store)
	svc := lifecycle.NewService(store, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.CounterBid(ctx, "BID-WINNER01", 0), lifecycle.ErrInvalidAmount)
	assert.ErrorIs(t, svc.CounterBid(ctx, "BID-WINNER01", -50), lifecycle.ErrInvalidAmount)
	assert.ErrorIs(t, svc.RespondToCounter(ctx, "BID-WINNER01", true), lifecycle.ErrBidNotCountered)
}
