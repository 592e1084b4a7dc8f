package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery statuses, strictly sequential. No skipping, no going back.
const (
	DeliveryAssigned  = "ASSIGNED"
	DeliveryPickedUp  = "PICKED_UP"
	DeliveryInTransit = "IN_TRANSIT"
	DeliveryDelivered = "DELIVERED"
)

// TrackingPoint is one entry in a delivery's append-only tracking history.
type TrackingPoint struct {
	Point     GeoPoint  `bson:"point" json:"point"`
	Status    string    `bson:"status" json:"status"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Delivery is the execution record created when a bid is accepted. The
// confirmation code gates the final DELIVERED transition and carries a
// bounded number of attempts.
type Delivery struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DeliveryID string             `bson:"deliveryID" json:"deliveryID"` // e.g. "DLV-1A2B3C4D"
	OfferID    string             `bson:"offerID" json:"offerID"`
	ProviderID string             `bson:"providerID" json:"providerID"`

	Status          string          `bson:"status" json:"status"`
	TrackingHistory []TrackingPoint `bson:"trackingHistory" json:"trackingHistory"`

	ConfirmationCode string `bson:"confirmationCode" json:"-"`
	CodeAttemptsLeft int    `bson:"codeAttemptsLeft" json:"-"`

	PickupTime   *time.Time `bson:"pickupTime,omitempty" json:"pickupTime,omitempty"`
	DeliveryTime *time.Time `bson:"deliveryTime,omitempty" json:"deliveryTime,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}
