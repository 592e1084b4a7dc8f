package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bid statuses. At most one bid per offer ever reaches ACCEPTED.
const (
	BidPending   = "PENDING"
	BidAccepted  = "ACCEPTED"
	BidRejected  = "REJECTED"
	BidCountered = "COUNTERED"
)

// Bid is a price proposal submitted by a provider against an offer.
type Bid struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BidID      string             `bson:"bidID" json:"bidID"` // e.g. "BID-1A2B3C4D"
	OfferID    string             `bson:"offerID" json:"offerID"`
	ProviderID string             `bson:"providerID" json:"providerID"`

	Amount  float64 `bson:"amount" json:"amount"`
	Message string  `bson:"message,omitempty" json:"message,omitempty"`
	Status  string  `bson:"status" json:"status"`

	// Set while the bid is COUNTERED; becomes the new Amount if the
	// provider accepts the counter.
	CounterAmount float64 `bson:"counterAmount,omitempty" json:"counterAmount,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
