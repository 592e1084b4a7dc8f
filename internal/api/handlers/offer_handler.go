package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/s3"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OfferHandler struct {
	DB         *mongo.Database
	Lifecycle  *lifecycle.Service
	S3Uploader *s3.Uploader
}

type LocationRequest struct {
	Address   string  `json:"address" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

type CreateOfferRequest struct {
	From           LocationRequest   `json:"from" binding:"required"`
	To             LocationRequest   `json:"to" binding:"required"`
	GoodsType      string            `json:"goodsType" binding:"required"`
	Weight         models.Weight     `json:"weight" binding:"required"`
	VolumeCBM      float64           `json:"volumeCBM"`
	PickupTime     time.Time         `json:"pickupTime" binding:"required"`
	EstimatedPrice float64           `json:"estimatedPrice" binding:"required,gt=0"`
	PriceRange     models.PriceRange `json:"priceRange" binding:"required"`
}

// CreateOffer posts a new delivery request. Offers start ACTIVE and open
// for bids.
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	requesterID := c.GetString("user_id")

	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PriceRange.Min > req.PriceRange.Max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priceRange.min must not exceed priceRange.max"})
		return
	}

	newOffer := models.Offer{
		OfferID:     fmt.Sprintf("OFR-%s", strings.ToUpper(uuid.New().String()[:8])),
		RequesterID: requesterID,
		From: models.Location{
			Address: req.From.Address,
			Point:   models.NewGeoPoint(req.From.Latitude, req.From.Longitude),
		},
		To: models.Location{
			Address: req.To.Address,
			Point:   models.NewGeoPoint(req.To.Latitude, req.To.Longitude),
		},
		GoodsType:      req.GoodsType,
		Weight:         req.Weight,
		VolumeCBM:      req.VolumeCBM,
		PickupTime:     req.PickupTime,
		EstimatedPrice: req.EstimatedPrice,
		PriceRange:     req.PriceRange,
		Status:         models.OfferActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	collection := h.DB.Collection("offers")
	result, err := collection.InsertOne(context.Background(), newOffer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create offer"})
		return
	}
	newOffer.ID = result.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, newOffer)
}

// GetOffers lists offers, optionally filtered by status or restricted to
// the caller's own (?mine=true). Providers browsing for work see ACTIVE
// offers sorted newest first.
func (h *OfferHandler) GetOffers(c *gin.Context) {
	filter := bson.M{}

	if status := c.Query("status"); status != "" {
		filter["status"] = strings.ToUpper(status)
	}
	if c.Query("mine") == "true" {
		filter["requesterID"] = c.GetString("user_id")
	}

	collection := h.DB.Collection("offers")
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := collection.Find(context.Background(), filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query offers"})
		return
	}
	defer cursor.Close(context.Background())

	var offers []models.Offer
	if err = cursor.All(context.Background(), &offers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode offers"})
		return
	}
	if offers == nil {
		offers = []models.Offer{}
	}

	c.JSON(http.StatusOK, offers)
}

func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID := c.Param("id")

	collection := h.DB.Collection("offers")
	var offer models.Offer
	err := collection.FindOne(context.Background(), bson.M{"offerID": offerID}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve offer"})
		}
		return
	}

	c.JSON(http.StatusOK, offer)
}

// CancelOffer cancels the caller's own ACTIVE offer.
func (h *OfferHandler) CancelOffer(c *gin.Context) {
	offerID := c.Param("id")
	userID := c.GetString("user_id")

	var offer models.Offer
	err := h.DB.Collection("offers").FindOne(context.Background(), bson.M{"offerID": offerID}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve offer"})
		}
		return
	}
	if offer.RequesterID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own offers"})
		return
	}

	if err := h.Lifecycle.CancelOffer(c.Request.Context(), offerID); err != nil {
		c.JSON(statusForLifecycleErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Offer " + offerID + " cancelled."})
}

// UploadOfferPhoto stores a cargo photo on S3 and appends its URL to the
// offer.
func (h *OfferHandler) UploadOfferPhoto(c *gin.Context) {
	offerID := c.Param("id")
	userID := c.GetString("user_id")

	var offer models.Offer
	err := h.DB.Collection("offers").FindOne(context.Background(), bson.M{"offerID": offerID}).Decode(&offer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve offer"})
		}
		return
	}
	if offer.RequesterID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only add photos to your own offers"})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'photo' file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	objectKey := fmt.Sprintf("offers/%s/%s-%s", offerID, uuid.New().String()[:8], fileHeader.Filename)
	url, err := h.S3Uploader.UploadFile(c.Request.Context(), file, objectKey, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo", "details": err.Error()})
		return
	}

	_, err = h.DB.Collection("offers").UpdateOne(context.Background(),
		bson.M{"offerID": offerID},
		bson.M{"$push": bson.M{"photos": url}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach photo to offer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "photoURL": url})
}
