package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/s3"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProviderHandler struct {
	DB         *mongo.Database
	S3Uploader *s3.Uploader
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Online    bool    `json:"online"`
}

// UpdateLocation upserts the provider's last reported position.
func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	providerID := c.GetString("user_id")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := h.DB.Collection("provider_locations")
	_, err := collection.UpdateOne(context.Background(),
		bson.M{"providerID": providerID},
		bson.M{"$set": bson.M{
			"point":     models.NewGeoPoint(req.Latitude, req.Longitude),
			"online":    req.Online,
			"updatedAt": time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetNearbyProviders finds online providers close to a point, nearest
// first, using the 2dsphere index on provider_locations.
func (h *ProviderHandler) GetNearbyProviders(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A numeric 'lat' query parameter is required"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A numeric 'lng' query parameter is required"})
		return
	}
	radiusMeters := 5000.0
	if r := c.Query("radius"); r != "" {
		if radiusMeters, err = strconv.ParseFloat(r, 64); err != nil || radiusMeters <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'radius' must be a positive number of meters"})
			return
		}
	}

	point := models.NewGeoPoint(lat, lng)
	filter := bson.M{
		"online": true,
		"point": bson.M{
			"$near": bson.M{
				"$geometry":    point,
				"$maxDistance": radiusMeters,
			},
		},
	}

	collection := h.DB.Collection("provider_locations")
	cursor, err := collection.Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query nearby providers"})
		return
	}
	defer cursor.Close(context.Background())

	var locations []models.ProviderLocation
	if err = cursor.All(context.Background(), &locations); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode nearby providers"})
		return
	}
	if locations == nil {
		locations = []models.ProviderLocation{}
	}

	c.JSON(http.StatusOK, locations)
}

type UpsertVehicleRequest struct {
	Type        string  `json:"type" binding:"required,oneof=MOTORCYCLE CAR VAN TRUCK"`
	PlateNumber string  `json:"plateNumber" binding:"required"`
	CapacityKG  float64 `json:"capacityKG" binding:"required,gt=0"`
}

// UpsertVehicle sets or replaces the provider's vehicle sub-record.
// Changing the vehicle resets the verification back to PENDING.
func (h *ProviderHandler) UpsertVehicle(c *gin.Context) {
	providerID := c.GetString("user_id")

	var req UpsertVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle := models.VehicleInfo{
		Type:        req.Type,
		PlateNumber: req.PlateNumber,
		CapacityKG:  req.CapacityKG,
	}

	_, err := h.DB.Collection("users").UpdateOne(context.Background(),
		bson.M{"userID": providerID, "role": models.RoleProvider},
		bson.M{"$set": bson.M{
			"vehicle":      vehicle,
			"verification": models.VerificationPending,
			"updatedAt":    time.Now(),
		}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "vehicle": vehicle})
}

// UploadVehicleDocument stores a registration/insurance document on S3 and
// attaches it to the provider's vehicle record.
func (h *ProviderHandler) UploadVehicleDocument(c *gin.Context) {
	providerID := c.GetString("user_id")

	var user models.User
	err := h.DB.Collection("users").FindOne(context.Background(), bson.M{"userID": providerID}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve provider"})
		return
	}
	if user.Vehicle == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Register a vehicle before uploading documents"})
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'document' file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	docID := uuid.New().String()[:8]
	objectKey := fmt.Sprintf("vehicles/%s/%s-%s", providerID, docID, fileHeader.Filename)
	url, err := h.S3Uploader.UploadFile(c.Request.Context(), file, objectKey, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document", "details": err.Error()})
		return
	}

	pointer := models.MediaPointer{
		ID:       docID,
		URL:      url,
		FileName: fileHeader.Filename,
		FileType: fileHeader.Header.Get("Content-Type"),
	}
	_, err = h.DB.Collection("users").UpdateOne(context.Background(),
		bson.M{"userID": providerID},
		bson.M{"$push": bson.M{"vehicle.documents": pointer}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "document": pointer})
}

type VerifyProviderRequest struct {
	Approve bool `json:"approve"`
}

// VerifyProvider is the admin decision on a provider's verification.
func (h *ProviderHandler) VerifyProvider(c *gin.Context) {
	providerID := c.Param("id")

	var req VerifyProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verification := models.VerificationRejected
	if req.Approve {
		verification = models.VerificationApproved
	}

	result, err := h.DB.Collection("users").UpdateOne(context.Background(),
		bson.M{"userID": providerID, "role": models.RoleProvider},
		bson.M{"$set": bson.M{"verification": verification, "updatedAt": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update provider"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "verification": verification})
}

// ListUsers is the admin view over accounts, optionally filtered by role.
func (h *ProviderHandler) ListUsers(c *gin.Context) {
	filter := bson.M{}
	if role := c.Query("role"); role != "" {
		filter["role"] = role
	}

	cursor, err := h.DB.Collection("users").Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query users"})
		return
	}
	defer cursor.Close(context.Background())

	var users []models.User
	if err = cursor.All(context.Background(), &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, users)
}
