package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds.
const (
	NotifyOffer    = "offer"
	NotifyBid      = "bid"
	NotifyMessage  = "message"
	NotifyDelivery = "delivery"
)

type Notification struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NotificationID string             `bson:"notificationID" json:"notificationID"`
	UserID         string             `bson:"userID" json:"userID"`
	Type           string             `bson:"type" json:"type"`
	Title          string             `bson:"title" json:"title"`
	Body           string             `bson:"body" json:"body"`
	Data           map[string]string  `bson:"data,omitempty" json:"data,omitempty"`
	Read           bool               `bson:"read" json:"read"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
