package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BidHandler struct {
	DB        *mongo.Database
	Lifecycle *lifecycle.Service
}

type PlaceBidRequest struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Message string  `json:"message"`
}

// PlaceBid submits a provider's bid on an ACTIVE offer. Only approved
// providers may bid, and not on their own behalf twice.
func (h *BidHandler) PlaceBid(c *gin.Context) {
	offerID := c.Param("id")
	providerID := c.GetString("user_id")

	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var provider models.User
	err := h.DB.Collection("users").FindOne(context.Background(), bson.M{"userID": providerID}).Decode(&provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check provider"})
		return
	}
	if provider.Verification != models.VerificationApproved {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your provider account is not approved yet"})
		return
	}

	var offer models.Offer
	err = h.DB.Collection("offers").FindOne(context.Background(), bson.M{"offerID": offerID}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve offer"})
		}
		return
	}
	if offer.Status != models.OfferActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Offer is no longer open for bids"})
		return
	}

	bidCollection := h.DB.Collection("bids")
	count, err := bidCollection.CountDocuments(context.Background(), bson.M{
		"offerID":    offerID,
		"providerID": providerID,
		"status":     bson.M{"$in": []string{models.BidPending, models.BidCountered}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking existing bids"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have an open bid on this offer"})
		return
	}

	newBid := models.Bid{
		BidID:      fmt.Sprintf("BID-%s", strings.ToUpper(uuid.New().String()[:8])),
		OfferID:    offerID,
		ProviderID: providerID,
		Amount:     req.Amount,
		Message:    req.Message,
		Status:     models.BidPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	result, err := bidCollection.InsertOne(context.Background(), newBid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place bid"})
		return
	}
	newBid.ID = result.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, newBid)
}

// GetOfferBids lists the bids on an offer, requester's view.
func (h *BidHandler) GetOfferBids(c *gin.Context) {
	offerID := c.Param("id")

	filter := bson.M{"offerID": offerID}
	if status := c.Query("status"); status != "" {
		filter["status"] = strings.ToUpper(status)
	}

	collection := h.DB.Collection("bids")
	opts := options.Find().SetSort(bson.D{{Key: "amount", Value: 1}})
	cursor, err := collection.Find(context.Background(), filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query bids"})
		return
	}
	defer cursor.Close(context.Background())

	var bids []models.Bid
	if err = cursor.All(context.Background(), &bids); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode bids"})
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}

	c.JSON(http.StatusOK, bids)
}

// GetMyBids lists the bids placed by the calling provider.
func (h *BidHandler) GetMyBids(c *gin.Context) {
	providerID := c.GetString("user_id")

	filter := bson.M{"providerID": providerID}
	if status := c.Query("status"); status != "" {
		filter["status"] = strings.ToUpper(status)
	}

	collection := h.DB.Collection("bids")
	cursor, err := collection.Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query bids"})
		return
	}
	defer cursor.Close(context.Background())

	var bids []models.Bid
	if err = cursor.All(context.Background(), &bids); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode bids"})
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}

	c.JSON(http.StatusOK, bids)
}

// AcceptBid accepts a bid on the caller's offer. The lifecycle service
// guarantees at most one accepted bid per offer; a second accept comes
// back as a conflict.
func (h *BidHandler) AcceptBid(c *gin.Context) {
	bidID := c.Param("id")
	userID := c.GetString("user_id")

	if !h.callerOwnsOffer(c, bidID, userID) {
		return
	}

	delivery, err := h.Lifecycle.AcceptBid(c.Request.Context(), bidID)
	if err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "Bid accepted. A delivery has been created.",
		"deliveryID": delivery.DeliveryID,
		"delivery":   delivery,
	})
}

// RejectBid rejects a single bid on the caller's offer.
func (h *BidHandler) RejectBid(c *gin.Context) {
	bidID := c.Param("id")
	userID := c.GetString("user_id")

	if !h.callerOwnsOffer(c, bidID, userID) {
		return
	}

	if err := h.Lifecycle.RejectBid(c.Request.Context(), bidID); err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Bid " + bidID + " rejected."})
}

type CounterBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CounterBid proposes a counter-amount on a pending bid.
func (h *BidHandler) CounterBid(c *gin.Context) {
	bidID := c.Param("id")
	userID := c.GetString("user_id")

	var req CounterBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.callerOwnsOffer(c, bidID, userID) {
		return
	}

	if err := h.Lifecycle.CounterBid(c.Request.Context(), bidID, req.Amount); err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Counter-offer sent."})
}

type CounterResponseRequest struct {
	Accept bool `json:"accept"`
}

// RespondToCounter lets the bidding provider accept or decline the
// requester's counter-offer.
func (h *BidHandler) RespondToCounter(c *gin.Context) {
	bidID := c.Param("id")
	providerID := c.GetString("user_id")

	var req CounterResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var bid models.Bid
	err := h.DB.Collection("bids").FindOne(context.Background(), bson.M{"bidID": bidID}).Decode(&bid)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bid not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bid"})
		}
		return
	}
	if bid.ProviderID != providerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only respond to counters on your own bids"})
		return
	}

	if err := h.Lifecycle.RespondToCounter(c.Request.Context(), bidID, req.Accept); err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// callerOwnsOffer checks that the caller is the requester of the offer the
// bid belongs to; it writes the error response itself when not.
func (h *BidHandler) callerOwnsOffer(c *gin.Context, bidID, userID string) bool {
	var bid models.Bid
	err := h.DB.Collection("bids").FindOne(context.Background(), bson.M{"bidID": bidID}).Decode(&bid)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bid not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bid"})
		}
		return false
	}

	var offer models.Offer
	err = h.DB.Collection("offers").FindOne(context.Background(), bson.M{"offerID": bid.OfferID}).Decode(&offer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve offer"})
		return false
	}
	if offer.RequesterID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only manage bids on your own offers"})
		return false
	}
	return true
}
