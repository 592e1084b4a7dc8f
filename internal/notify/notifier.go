// Fan-out of lifecycle events: persisted notifications, per-user websocket
// push, and per-delivery tracking broadcast.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/socket"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type Notifier struct {
	DB     *mongo.Database
	Hub    *socket.Hub
	Broker *socket.TopicBroker
}

func New(db *mongo.Database, hub *socket.Hub, broker *socket.TopicBroker) *Notifier {
	return &Notifier{DB: db, Hub: hub, Broker: broker}
}

var titles = map[string]string{
	lifecycle.EventBidAccepted:       "Bid accepted",
	lifecycle.EventBidRejected:       "Bid rejected",
	lifecycle.EventBidCountered:      "Counter-offer received",
	lifecycle.EventCounterAccepted:   "Counter-offer accepted",
	lifecycle.EventDeliveryCreated:   "Delivery created",
	lifecycle.EventDeliveryAdvanced:  "Delivery update",
	lifecycle.EventDeliveryCompleted: "Delivery completed",
	lifecycle.EventOfferCancelled:    "Offer cancelled",
}

// Notify persists one notification per recipient, pushes the event over
// each recipient's websocket, and broadcasts delivery events onto the
// delivery's tracking topic. Failures are logged, never propagated; the
// lifecycle change has already been committed.
func (n *Notifier) Notify(ctx context.Context, evt lifecycle.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("Failed to marshal event %s: %v", evt.Type, err)
		return
	}

	if evt.DeliveryID != "" {
		n.Broker.Publish(evt.DeliveryID, payload)
	}

	title := titles[evt.Type]
	if title == "" {
		title = evt.Type
	}

	collection := n.DB.Collection("notifications")
	for _, userID := range evt.Recipients {
		notification := models.Notification{
			NotificationID: fmt.Sprintf("NTF-%s", strings.ToUpper(uuid.New().String()[:8])),
			UserID:         userID,
			Type:           kindOf(evt),
			Title:          title,
			Body:           bodyOf(evt),
			Data:           dataOf(evt),
			Read:           false,
			CreatedAt:      time.Now(),
		}
		if _, err := collection.InsertOne(ctx, notification); err != nil {
			log.Printf("Failed to persist notification for %s: %v", userID, err)
		}
		if err := n.Hub.Send(userID, payload); err != nil {
			log.Printf("Failed to push event %s to %s: %v", evt.Type, userID, err)
		}
	}
}

func kindOf(evt lifecycle.Event) string {
	switch evt.Type {
	case lifecycle.EventDeliveryCreated, lifecycle.EventDeliveryAdvanced, lifecycle.EventDeliveryCompleted:
		return models.NotifyDelivery
	case lifecycle.EventOfferCancelled:
		return models.NotifyOffer
	default:
		return models.NotifyBid
	}
}

func bodyOf(evt lifecycle.Event) string {
	switch evt.Type {
	case lifecycle.EventBidAccepted:
		return fmt.Sprintf("Bid %s on offer %s was accepted", evt.BidID, evt.OfferID)
	case lifecycle.EventBidRejected:
		return fmt.Sprintf("Your bid on offer %s was rejected", evt.OfferID)
	case lifecycle.EventBidCountered:
		return fmt.Sprintf("The requester proposed a new amount on bid %s", evt.BidID)
	case lifecycle.EventCounterAccepted:
		return fmt.Sprintf("The counter-offer on bid %s was accepted", evt.BidID)
	case lifecycle.EventDeliveryCreated:
		return fmt.Sprintf("Delivery %s was created for offer %s", evt.DeliveryID, evt.OfferID)
	case lifecycle.EventDeliveryAdvanced:
		return fmt.Sprintf("Delivery %s is now %s", evt.DeliveryID, evt.Status)
	case lifecycle.EventDeliveryCompleted:
		return fmt.Sprintf("Delivery %s was completed", evt.DeliveryID)
	case lifecycle.EventOfferCancelled:
		return fmt.Sprintf("Offer %s was cancelled", evt.OfferID)
	default:
		return evt.Type
	}
}

func dataOf(evt lifecycle.Event) map[string]string {
	data := map[string]string{}
	if evt.OfferID != "" {
		data["offerID"] = evt.OfferID
	}
	if evt.BidID != "" {
		data["bidID"] = evt.BidID
	}
	if evt.DeliveryID != "" {
		data["deliveryID"] = evt.DeliveryID
	}
	return data
}
