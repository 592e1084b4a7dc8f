package database

import (
	"context"
	"time"

	"cargo-connect-api-server/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens the MongoDB connection and pings the primary.
func Connect(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the indexes the queries rely on: unique user email,
// unique entity IDs, 2dsphere on every coordinate field used by $near, and
// a partial unique index guaranteeing at most one ACCEPTED bid per offer.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	sphere := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: "2dsphere"}}}
	}
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}

	indexes := map[string][]mongo.IndexModel{
		"users": {
			unique("email"),
			unique("userID"),
		},
		"offers": {
			unique("offerID"),
			sphere("from.point"),
			sphere("to.point"),
			{Keys: bson.D{{Key: "requesterID", Value: 1}, {Key: "status", Value: 1}}},
		},
		"bids": {
			unique("bidID"),
			{Keys: bson.D{{Key: "offerID", Value: 1}, {Key: "status", Value: 1}}},
			// The database-level backstop for the one-accepted-bid rule.
			{
				Keys: bson.D{{Key: "offerID", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "ACCEPTED"}),
			},
		},
		"deliveries": {
			unique("deliveryID"),
			{Keys: bson.D{{Key: "providerID", Value: 1}, {Key: "status", Value: 1}}},
		},
		"provider_locations": {
			unique("providerID"),
			sphere("point"),
		},
		"notifications": {
			{Keys: bson.D{{Key: "userID", Value: 1}, {Key: "read", Value: 1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "conversationID", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
