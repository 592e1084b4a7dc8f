package lifecycle

import (
	"fmt"

	"cargo-connect-api-server/internal/models"
)

// deliverySequence is the authoritative order of delivery statuses. A
// delivery only ever moves one step forward through it.
var deliverySequence = []string{
	models.DeliveryAssigned,
	models.DeliveryPickedUp,
	models.DeliveryInTransit,
	models.DeliveryDelivered,
}

// NextDeliveryStatus returns the immediate successor of the given status,
// or "" when the status is terminal or unknown.
func NextDeliveryStatus(current string) string {
	for i, s := range deliverySequence {
		if s == current && i+1 < len(deliverySequence) {
			return deliverySequence[i+1]
		}
	}
	return ""
}

// CheckDeliveryTransition validates a requested delivery transition.
func CheckDeliveryTransition(from, to string) error {
	next := NextDeliveryStatus(from)
	if next == "" {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to != next {
		return fmt.Errorf("%w: %s -> %s (expected %s)", ErrInvalidTransition, from, to, next)
	}
	return nil
}

// offerTransitions lists the legal offer status changes.
var offerTransitions = map[string][]string{
	models.OfferActive:   {models.OfferAssigned, models.OfferCancelled},
	models.OfferAssigned: {models.OfferCompleted},
}

// CheckOfferTransition validates a requested offer transition.
func CheckOfferTransition(from, to string) error {
	for _, allowed := range offerTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: offer %s -> %s", ErrInvalidTransition, from, to)
}
