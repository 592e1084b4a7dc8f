package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Offer statuses. An offer is immutable once CANCELLED or COMPLETED.
const (
	OfferActive    = "ACTIVE"
	OfferAssigned  = "ASSIGNED"
	OfferCompleted = "COMPLETED"
	OfferCancelled = "CANCELLED"
)

// Offer is a delivery request posted by a requester, open to competing bids.
type Offer struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OfferID     string             `bson:"offerID" json:"offerID"` // e.g. "OFR-1A2B3C4D"
	RequesterID string             `bson:"requesterID" json:"requesterID"`

	From      Location `bson:"from" json:"from"`
	To        Location `bson:"to" json:"to"`
	GoodsType string   `bson:"goodsType" json:"goodsType"`
	Weight    Weight   `bson:"weight" json:"weight"`
	VolumeCBM float64  `bson:"volumeCBM,omitempty" json:"volumeCBM,omitempty"`
	Photos    []string `bson:"photos,omitempty" json:"photos"`

	PickupTime     time.Time  `bson:"pickupTime" json:"pickupTime"`
	EstimatedPrice float64    `bson:"estimatedPrice" json:"estimatedPrice"`
	PriceRange     PriceRange `bson:"priceRange" json:"priceRange"`

	Status        string `bson:"status" json:"status"`
	AcceptedBidID string `bson:"acceptedBidID,omitempty" json:"acceptedBidID,omitempty"`
	DeliveryID    string `bson:"deliveryID,omitempty" json:"deliveryID,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
