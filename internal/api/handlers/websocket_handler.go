package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"cargo-connect-api-server/internal/auth"
	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Maximum wait for a ping from the client before the connection is dropped.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	DB     *mongo.Database
	Hub    *socket.Hub
	Broker *socket.TopicBroker
	Tokens *auth.Manager
}

// ServeWs attaches the caller's connection to the hub for notification
// push. Browsers cannot set headers on websocket requests, so the token
// travels as a query parameter.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	h.Hub.Register(userID, conn)
	defer func() {
		h.Hub.Unregister(userID)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}
	}
}

// ServeDeliveryWs streams a delivery's tracking events to either party of
// the delivery.
func (h *WebSocketHandler) ServeDeliveryWs(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}
	deliveryID := c.Param("id")

	var delivery models.Delivery
	err := h.DB.Collection("deliveries").FindOne(context.Background(), bson.M{"deliveryID": deliveryID}).Decode(&delivery)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve delivery"})
		}
		return
	}

	allowed := delivery.ProviderID == claims.UserID
	if !allowed {
		var offer models.Offer
		if err := h.DB.Collection("offers").FindOne(context.Background(), bson.M{"offerID": delivery.OfferID}).Decode(&offer); err == nil {
			allowed = offer.RequesterID == claims.UserID
		}
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this delivery"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	events := h.Broker.Subscribe(deliveryID)
	defer func() {
		h.Broker.Unsubscribe(deliveryID, events)
		conn.Close()
	}()

	// Reader goroutine only watches for the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPingHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) authenticate(c *gin.Context) (*auth.JWTClaims, bool) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return nil, false
	}

	claims, err := h.Tokens.ParseAccessToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return nil, false
	}
	return claims, true
}
