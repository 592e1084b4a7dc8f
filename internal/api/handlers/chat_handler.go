package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChatHandler struct {
	DB  *mongo.Database
	Hub *socket.Hub
}

// GetConversations lists the caller's conversations, newest activity first.
func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.GetString("user_id")

	collection := h.DB.Collection("conversations")
	opts := options.Find().SetSort(bson.D{{Key: "lastMessage.createdAt", Value: -1}})
	cursor, err := collection.Find(context.Background(), bson.M{"participantIDs": userID}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query conversations"})
		return
	}
	defer cursor.Close(context.Background())

	var conversations []models.Conversation
	if err = cursor.All(context.Background(), &conversations); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode conversations"})
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	c.JSON(http.StatusOK, conversations)
}

// GetMessages returns a conversation's messages and marks the other
// party's messages as read.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("id")
	userID := c.GetString("user_id")

	if !h.callerInConversation(c, conversationID, userID) {
		return
	}

	collection := h.DB.Collection("messages")
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := collection.Find(context.Background(), bson.M{"conversationID": conversationID}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query messages"})
		return
	}
	defer cursor.Close(context.Background())

	var messages []models.Message
	if err = cursor.All(context.Background(), &messages); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode messages"})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	_, err = collection.UpdateMany(context.Background(),
		bson.M{"conversationID": conversationID, "senderID": bson.M{"$ne": userID}, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationID"`
	RecipientID    string `json:"recipientID"`
	OfferID        string `json:"offerID"`
	Content        string `json:"content" binding:"required"`
	Type           string `json:"type" binding:"omitempty,oneof=text image location"`
}

// SendMessage appends a message to a conversation, creating the
// conversation on first contact, and pushes it to the recipient's socket.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	senderID := c.GetString("user_id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = "text"
	}

	conversations := h.DB.Collection("conversations")

	var conversation models.Conversation
	if req.ConversationID != "" {
		err := conversations.FindOne(context.Background(), bson.M{"conversationID": req.ConversationID}).Decode(&conversation)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
			}
			return
		}
	} else {
		if req.RecipientID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Either conversationID or recipientID is required"})
			return
		}
		// Reuse an existing conversation between the two parties on the
		// same offer before creating a new one.
		err := conversations.FindOne(context.Background(), bson.M{
			"participantIDs": bson.M{"$all": []string{senderID, req.RecipientID}},
			"offerID":        req.OfferID,
		}).Decode(&conversation)
		if err == mongo.ErrNoDocuments {
			conversation = models.Conversation{
				ConversationID: fmt.Sprintf("CNV-%s", strings.ToUpper(uuid.New().String()[:8])),
				ParticipantIDs: []string{senderID, req.RecipientID},
				OfferID:        req.OfferID,
				CreatedAt:      time.Now(),
			}
			if _, err := conversations.InsertOne(context.Background(), conversation); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
				return
			}
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
			return
		}
	}

	isParticipant := false
	for _, p := range conversation.ParticipantIDs {
		if p == senderID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this conversation"})
		return
	}

	message := models.Message{
		MessageID:      fmt.Sprintf("MSG-%s", strings.ToUpper(uuid.New().String()[:8])),
		ConversationID: conversation.ConversationID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           req.Type,
		Read:           false,
		CreatedAt:      time.Now(),
	}

	result, err := h.DB.Collection("messages").InsertOne(context.Background(), message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	message.ID = result.InsertedID.(primitive.ObjectID)

	_, err = conversations.UpdateOne(context.Background(),
		bson.M{"conversationID": conversation.ConversationID},
		bson.M{"$set": bson.M{"lastMessage": message}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}

	// Push to the other participants; offline users catch up on fetch.
	payload, _ := json.Marshal(map[string]interface{}{
		"event":   "new_message",
		"message": message,
	})
	for _, p := range conversation.ParticipantIDs {
		if p != senderID {
			h.Hub.Send(p, payload)
		}
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) callerInConversation(c *gin.Context, conversationID, userID string) bool {
	var conversation models.Conversation
	err := h.DB.Collection("conversations").FindOne(context.Background(), bson.M{"conversationID": conversationID}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
		}
		return false
	}
	for _, p := range conversation.ParticipantIDs {
		if p == userID {
			return true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this conversation"})
	return false
}
