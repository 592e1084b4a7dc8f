package database

import (
	"context"
	"log"
	"time"

	"cargo-connect-api-server/internal/auth"
	"cargo-connect-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SeedAdmin creates the bootstrap admin account on first start.
func SeedAdmin(db *mongo.Database) error {
	userCollection := db.Collection("users")
	adminEmail := "admin@cargoconnect.local"

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": adminEmail})
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword("adminpassword")
	if err != nil {
		return err
	}

	admin := models.User{
		UserID:    "USR-ADMIN",
		Email:     adminEmail,
		Password:  hashedPassword,
		FirstName: "System",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = userCollection.InsertOne(context.Background(), admin)
	if err != nil {
		return err
	}

	log.Println("Admin seeded successfully.")
	return nil
}
