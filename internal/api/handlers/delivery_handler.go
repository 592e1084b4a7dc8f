package handlers

import (
	"context"
	"net/http"
	"strings"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type DeliveryHandler struct {
	DB        *mongo.Database
	Lifecycle *lifecycle.Service
}

// GetDeliveries lists the caller's deliveries: as provider for provider
// accounts, as requester (through their offers) otherwise.
func (h *DeliveryHandler) GetDeliveries(c *gin.Context) {
	userID := c.GetString("user_id")
	role := c.GetString("user_role")

	filter := bson.M{}
	if role == models.RoleProvider {
		filter["providerID"] = userID
	} else {
		offerIDs, err := h.offerIDsOf(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query offers"})
			return
		}
		filter["offerID"] = bson.M{"$in": offerIDs}
	}
	if status := c.Query("status"); status != "" {
		filter["status"] = strings.ToUpper(status)
	}

	collection := h.DB.Collection("deliveries")
	cursor, err := collection.Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query deliveries"})
		return
	}
	defer cursor.Close(context.Background())

	var deliveries []models.Delivery
	if err = cursor.All(context.Background(), &deliveries); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode deliveries"})
		return
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}

	c.JSON(http.StatusOK, deliveries)
}

func (h *DeliveryHandler) offerIDsOf(requesterID string) ([]string, error) {
	cursor, err := h.DB.Collection("offers").Find(context.Background(), bson.M{"requesterID": requesterID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(context.Background())

	var offers []models.Offer
	if err := cursor.All(context.Background(), &offers); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.OfferID)
	}
	return ids, nil
}

func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
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

	c.JSON(http.StatusOK, delivery)
}

// GetTracking returns the delivery's full tracking history.
func (h *DeliveryHandler) GetTracking(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"deliveryID":      delivery.DeliveryID,
		"status":          delivery.Status,
		"trackingHistory": delivery.TrackingHistory,
	})
}

type AdvanceDeliveryRequest struct {
	Status    string  `json:"status" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// AdvanceDelivery moves the delivery to the next status in the sequence.
// Only the assigned provider may drive the delivery forward, and only one
// step at a time.
func (h *DeliveryHandler) AdvanceDelivery(c *gin.Context) {
	deliveryID := c.Param("id")
	providerID := c.GetString("user_id")

	var req AdvanceDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next := strings.ToUpper(req.Status)
	if next == models.DeliveryDelivered {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The delivered transition requires the confirmation endpoint"})
		return
	}

	if !h.callerIsAssignedProvider(c, deliveryID, providerID) {
		return
	}

	delivery, err := h.Lifecycle.AdvanceDelivery(c.Request.Context(), deliveryID, next, models.NewGeoPoint(req.Latitude, req.Longitude), "")
	if err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, delivery)
}

type ConfirmDeliveryRequest struct {
	Code      string  `json:"code" binding:"required,len=6"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// ConfirmDelivery performs the final IN_TRANSIT -> DELIVERED transition,
// gated on the recipient's confirmation code.
func (h *DeliveryHandler) ConfirmDelivery(c *gin.Context) {
	deliveryID := c.Param("id")
	providerID := c.GetString("user_id")

	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.callerIsAssignedProvider(c, deliveryID, providerID) {
		return
	}

	delivery, err := h.Lifecycle.AdvanceDelivery(c.Request.Context(), deliveryID, models.DeliveryDelivered, models.NewGeoPoint(req.Latitude, req.Longitude), req.Code)
	if err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"message":  "Delivery " + deliveryID + " completed.",
		"delivery": delivery,
	})
}

func (h *DeliveryHandler) callerIsAssignedProvider(c *gin.Context, deliveryID, providerID string) bool {
	var delivery models.Delivery
	err := h.DB.Collection("deliveries").FindOne(context.Background(), bson.M{"deliveryID": deliveryID}).Decode(&delivery)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve delivery"})
		}
		return false
	}
	if delivery.ProviderID != providerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not assigned to this delivery"})
		return false
	}
	return true
}
