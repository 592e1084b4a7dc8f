package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"cargo-connect-api-server/internal/models"

	"github.com/google/uuid"
)

// Service governs the offer/bid/delivery lifecycle. All status changes go
// through here; handlers only do reads and plain CRUD on their own.
type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{store: store, notifier: notifier}
}

// AcceptBid accepts a PENDING bid on an ACTIVE offer. The offer moves to
// ASSIGNED through a conditional update, so the second of two racing
// accepts loses and gets ErrOfferNotActive. All sibling PENDING bids are
// rejected and a delivery is created at the offer's pickup point.
func (s *Service) AcceptBid(ctx context.Context, bidID string) (*models.Delivery, error) {
	bid, err := s.store.FindBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Status != models.BidPending {
		return nil, fmt.Errorf("%w: bid %s is %s", ErrBidNotPending, bid.BidID, bid.Status)
	}

	offer, err := s.store.FindOffer(ctx, bid.OfferID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferActive {
		return nil, fmt.Errorf("%w: offer %s is %s", ErrOfferNotActive, offer.OfferID, offer.Status)
	}

	code, err := NewConfirmationCode()
	if err != nil {
		return nil, err
	}
	deliveryID := fmt.Sprintf("DLV-%s", strings.ToUpper(uuid.New().String()[:8]))

	// Fastest accept wins; everyone else sees the offer already ASSIGNED.
	won, err := s.store.SetOfferAssigned(ctx, offer.OfferID, bid.BidID, deliveryID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: offer %s was assigned concurrently", ErrOfferNotActive, offer.OfferID)
	}

	if ok, err := s.store.SetBidStatus(ctx, bid.BidID, models.BidPending, models.BidAccepted); err != nil || !ok {
		log.Printf("CRITICAL: offer %s assigned but bid %s could not be accepted, rolling back: %v", offer.OfferID, bid.BidID, err)
		s.rollbackAssign(ctx, offer.OfferID, bid.BidID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: bid %s changed concurrently", ErrBidNotPending, bid.BidID)
	}

	now := time.Now()
	delivery := &models.Delivery{
		DeliveryID: deliveryID,
		OfferID:    offer.OfferID,
		ProviderID: bid.ProviderID,
		Status:     models.DeliveryAssigned,
		TrackingHistory: []models.TrackingPoint{{
			Point:     offer.From.Point,
			Status:    models.DeliveryAssigned,
			Timestamp: now,
		}},
		ConfirmationCode: code,
		CodeAttemptsLeft: CodeAttempts,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.InsertDelivery(ctx, delivery); err != nil {
		log.Printf("CRITICAL: offer %s assigned but delivery creation failed, rolling back: %v", offer.OfferID, err)
		s.store.SetBidStatus(ctx, bid.BidID, models.BidAccepted, models.BidPending)
		s.rollbackAssign(ctx, offer.OfferID, bid.BidID)
		return nil, err
	}

	losers, err := s.store.RejectPendingBids(ctx, offer.OfferID, bid.BidID)
	if err != nil {
		// The accept already committed; sibling cleanup is best-effort.
		log.Printf("CRITICAL: failed to reject sibling bids on offer %s: %v", offer.OfferID, err)
	} else if len(losers) > 0 {
		s.notifier.Notify(ctx, Event{
			Type:       EventBidRejected,
			OfferID:    offer.OfferID,
			Recipients: losers,
		})
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventBidAccepted,
		OfferID:    offer.OfferID,
		BidID:      bid.BidID,
		DeliveryID: deliveryID,
		Recipients: []string{bid.ProviderID, offer.RequesterID},
	})
	s.notifier.Notify(ctx, Event{
		Type:       EventDeliveryCreated,
		OfferID:    offer.OfferID,
		DeliveryID: deliveryID,
		Status:     models.DeliveryAssigned,
		Recipients: []string{bid.ProviderID, offer.RequesterID},
	})

	return delivery, nil
}

func (s *Service) rollbackAssign(ctx context.Context, offerID, bidID string) {
	if ok, err := s.store.SetOfferStatus(ctx, offerID, models.OfferAssigned, models.OfferActive); err != nil || !ok {
		log.Printf("CRITICAL: rollback of offer %s assignment failed, check manually: %v", offerID, err)
	}
}

// AdvanceDelivery moves a delivery one step forward and appends a tracking
// point. The terminal DELIVERED step is gated on the confirmation code; a
// mismatch burns one attempt, and an exhausted counter locks the delivery.
// Completing a delivery also completes its offer.
func (s *Service) AdvanceDelivery(ctx context.Context, deliveryID, next string, point models.GeoPoint, code string) (*models.Delivery, error) {
	delivery, err := s.store.FindDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := CheckDeliveryTransition(delivery.Status, next); err != nil {
		return nil, err
	}

	if next == models.DeliveryDelivered {
		if delivery.CodeAttemptsLeft <= 0 {
			return nil, fmt.Errorf("%w: delivery %s", ErrCodeLocked, delivery.DeliveryID)
		}
		if !codeMatches(delivery.ConfirmationCode, code) {
			left, err := s.store.SpendCodeAttempt(ctx, deliveryID)
			if err != nil {
				log.Printf("CRITICAL: failed to record code attempt on delivery %s: %v", deliveryID, err)
			}
			return nil, fmt.Errorf("%w: %d attempts left", ErrCodeMismatch, left)
		}
	}

	now := time.Now()
	pt := models.TrackingPoint{Point: point, Status: next, Timestamp: now}
	ok, err := s.store.AdvanceDelivery(ctx, deliveryID, delivery.Status, next, pt, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: delivery %s changed concurrently", ErrInvalidTransition, deliveryID)
	}

	evt := Event{
		Type:       EventDeliveryAdvanced,
		OfferID:    delivery.OfferID,
		DeliveryID: delivery.DeliveryID,
		Status:     next,
		Recipients: []string{delivery.ProviderID},
	}
	if next == models.DeliveryDelivered {
		evt.Type = EventDeliveryCompleted
		if ok, err := s.store.SetOfferStatus(ctx, delivery.OfferID, models.OfferAssigned, models.OfferCompleted); err != nil || !ok {
			log.Printf("CRITICAL: delivery %s completed but offer %s not completed, check manually: %v", deliveryID, delivery.OfferID, err)
		}
	}
	if offer, err := s.store.FindOffer(ctx, delivery.OfferID); err == nil {
		evt.Recipients = append(evt.Recipients, offer.RequesterID)
	}
	s.notifier.Notify(ctx, evt)

	return s.store.FindDelivery(ctx, deliveryID)
}

// CancelOffer cancels an ACTIVE offer. Assigned, completed, or already
// cancelled offers cannot be cancelled.
func (s *Service) CancelOffer(ctx context.Context, offerID string) error {
	offer, err := s.store.FindOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if err := CheckOfferTransition(offer.Status, models.OfferCancelled); err != nil {
		return fmt.Errorf("%w: offer %s is %s", ErrOfferNotActive, offer.OfferID, offer.Status)
	}
	ok, err := s.store.SetOfferStatus(ctx, offerID, models.OfferActive, models.OfferCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: offer %s changed concurrently", ErrOfferNotActive, offerID)
	}

	// Pending bids on a cancelled offer are dead ends.
	losers, err := s.store.RejectPendingBids(ctx, offerID, "")
	if err != nil {
		log.Printf("CRITICAL: failed to reject bids on cancelled offer %s: %v", offerID, err)
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventOfferCancelled,
		OfferID:    offerID,
		Recipients: append(losers, offer.RequesterID),
	})
	return nil
}

// RejectBid rejects a single PENDING or COUNTERED bid.
func (s *Service) RejectBid(ctx context.Context, bidID string) error {
	bid, err := s.store.FindBid(ctx, bidID)
	if err != nil {
		return err
	}
	from := bid.Status
	if from != models.BidPending && from != models.BidCountered {
		return fmt.Errorf("%w: bid %s is %s", ErrBidNotPending, bid.BidID, bid.Status)
	}
	ok, err := s.store.SetBidStatus(ctx, bidID, from, models.BidRejected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: bid %s changed concurrently", ErrBidNotPending, bidID)
	}
	s.notifier.Notify(ctx, Event{
		Type:       EventBidRejected,
		OfferID:    bid.OfferID,
		BidID:      bid.BidID,
		Recipients: []string{bid.ProviderID},
	})
	return nil
}

// CounterBid proposes a counter-amount on a PENDING bid. The bid sits in
// COUNTERED until the provider responds.
func (s *Service) CounterBid(ctx context.Context, bidID string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	bid, err := s.store.FindBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.Status != models.BidPending {
		return fmt.Errorf("%w: bid %s is %s", ErrBidNotPending, bid.BidID, bid.Status)
	}
	ok, err := s.store.SetBidCountered(ctx, bidID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: bid %s changed concurrently", ErrBidNotPending, bidID)
	}
	s.notifier.Notify(ctx, Event{
		Type:       EventBidCountered,
		OfferID:    bid.OfferID,
		BidID:      bid.BidID,
		Recipients: []string{bid.ProviderID},
	})
	return nil
}

// RespondToCounter lets the provider accept or decline a counter-offer.
// Accepting promotes the counter amount and returns the bid to PENDING
// for the requester's final decision; declining rejects the bid.
func (s *Service) RespondToCounter(ctx context.Context, bidID string, accept bool) error {
	bid, err := s.store.FindBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.Status != models.BidCountered {
		return fmt.Errorf("%w: bid %s is %s", ErrBidNotCountered, bid.BidID, bid.Status)
	}

	if !accept {
		ok, err := s.store.SetBidStatus(ctx, bidID, models.BidCountered, models.BidRejected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: bid %s changed concurrently", ErrBidNotCountered, bidID)
		}
		s.notifier.Notify(ctx, Event{
			Type:       EventBidRejected,
			OfferID:    bid.OfferID,
			BidID:      bid.BidID,
			Recipients: []string{bid.ProviderID},
		})
		return nil
	}

	ok, err := s.store.SetCounterAccepted(ctx, bidID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: bid %s changed concurrently", ErrBidNotCountered, bidID)
	}
	s.notifier.Notify(ctx, Event{
		Type:       EventCounterAccepted,
		OfferID:    bid.OfferID,
		BidID:      bid.BidID,
		Recipients: []string{bid.ProviderID},
	})
	return nil
}
