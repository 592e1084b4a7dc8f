package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleRequester = "requester"
	RoleProvider  = "provider"
	RoleAdmin     = "admin"
)

// Provider verification states.
const (
	VerificationPending  = "PENDING"
	VerificationApproved = "APPROVED"
	VerificationRejected = "REJECTED"
)

// VehicleInfo is the vehicle sub-record carried by provider users.
type VehicleInfo struct {
	Type        string         `bson:"type" json:"type"` // MOTORCYCLE, CAR, VAN, TRUCK
	PlateNumber string         `bson:"plateNumber" json:"plateNumber"`
	CapacityKG  float64        `bson:"capacityKG" json:"capacityKG"`
	Photos      []string       `bson:"photos,omitempty" json:"photos"`
	Documents   []MediaPointer `bson:"documents,omitempty" json:"documents"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userID" json:"userID"` // e.g. "USR-1A2B3C4D"
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Phone     string             `bson:"phone" json:"phone"`
	Role      string             `bson:"role" json:"role"`
	Avatar    string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status    string             `bson:"status" json:"status"` // active, suspended

	// Provider-only fields.
	Verification string       `bson:"verification,omitempty" json:"verification,omitempty"`
	Vehicle      *VehicleInfo `bson:"vehicle,omitempty" json:"vehicle,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProviderLocation is the last reported position of a provider, kept in its
// own collection with a 2dsphere index for nearby queries.
type ProviderLocation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProviderID string             `bson:"providerID" json:"providerID"`
	Point      GeoPoint           `bson:"point" json:"point"`
	Online     bool               `bson:"online" json:"online"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
