package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation links the two parties of an offer for messaging.
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversationID" json:"conversationID"` // e.g. "CNV-1A2B3C4D"
	ParticipantIDs []string           `bson:"participantIDs" json:"participantIDs"`
	OfferID        string             `bson:"offerID,omitempty" json:"offerID,omitempty"`
	LastMessage    *Message           `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID      string             `bson:"messageID" json:"messageID"`
	ConversationID string             `bson:"conversationID" json:"conversationID"`
	SenderID       string             `bson:"senderID" json:"senderID"`
	Content        string             `bson:"content" json:"content"`
	Type           string             `bson:"type" json:"type"` // text, image, location
	Read           bool               `bson:"read" json:"read"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
