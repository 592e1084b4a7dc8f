// MongoDB-backed persistence for the offer/bid/delivery lifecycle.
package store

import (
	"context"
	"errors"
	"time"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

func (s *MongoStore) offers() *mongo.Collection     { return s.DB.Collection("offers") }
func (s *MongoStore) bids() *mongo.Collection       { return s.DB.Collection("bids") }
func (s *MongoStore) deliveries() *mongo.Collection { return s.DB.Collection("deliveries") }

func (s *MongoStore) FindOffer(ctx context.Context, offerID string) (*models.Offer, error) {
	var offer models.Offer
	err := s.offers().FindOne(ctx, bson.M{"offerID": offerID}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lifecycle.ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (s *MongoStore) FindBid(ctx context.Context, bidID string) (*models.Bid, error) {
	var bid models.Bid
	err := s.bids().FindOne(ctx, bson.M{"bidID": bidID}).Decode(&bid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lifecycle.ErrBidNotFound
		}
		return nil, err
	}
	return &bid, nil
}

func (s *MongoStore) FindDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.deliveries().FindOne(ctx, bson.M{"deliveryID": deliveryID}).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lifecycle.ErrDeliveryNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// SetOfferAssigned only matches while the offer is still ACTIVE, so the
// second of two racing accepts modifies nothing and loses.
func (s *MongoStore) SetOfferAssigned(ctx context.Context, offerID, bidID, deliveryID string) (bool, error) {
	res, err := s.offers().UpdateOne(ctx,
		bson.M{"offerID": offerID, "status": models.OfferActive},
		bson.M{"$set": bson.M{
			"status":        models.OfferAssigned,
			"acceptedBidID": bidID,
			"deliveryID":    deliveryID,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SetOfferStatus(ctx context.Context, offerID, from, to string) (bool, error) {
	res, err := s.offers().UpdateOne(ctx,
		bson.M{"offerID": offerID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SetBidStatus(ctx context.Context, bidID, from, to string) (bool, error) {
	res, err := s.bids().UpdateOne(ctx,
		bson.M{"bidID": bidID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SetBidCountered(ctx context.Context, bidID string, counterAmount float64) (bool, error) {
	res, err := s.bids().UpdateOne(ctx,
		bson.M{"bidID": bidID, "status": models.BidPending},
		bson.M{"$set": bson.M{
			"status":        models.BidCountered,
			"counterAmount": counterAmount,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SetCounterAccepted(ctx context.Context, bidID string) (bool, error) {
	// Pipeline update so the counter amount can be promoted in place.
	res, err := s.bids().UpdateOne(ctx,
		bson.M{"bidID": bidID, "status": models.BidCountered},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"amount":    "$counterAmount",
				"status":    models.BidPending,
				"updatedAt": time.Now(),
			}}},
			{{Key: "$unset", Value: "counterAmount"}},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) RejectPendingBids(ctx context.Context, offerID, exceptBidID string) ([]string, error) {
	filter := bson.M{"offerID": offerID, "status": models.BidPending}
	if exceptBidID != "" {
		filter["bidID"] = bson.M{"$ne": exceptBidID}
	}

	cursor, err := s.bids().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var siblings []models.Bid
	if err := cursor.All(ctx, &siblings); err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	_, err = s.bids().UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"status": models.BidRejected, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(siblings))
	for _, b := range siblings {
		providers = append(providers, b.ProviderID)
	}
	return providers, nil
}

func (s *MongoStore) InsertDelivery(ctx context.Context, d *models.Delivery) error {
	_, err := s.deliveries().InsertOne(ctx, d)
	return err
}

func (s *MongoStore) AdvanceDelivery(ctx context.Context, deliveryID, from, to string, pt models.TrackingPoint, at time.Time) (bool, error) {
	set := bson.M{"status": to, "updatedAt": at}
	switch to {
	case models.DeliveryPickedUp:
		set["pickupTime"] = at
	case models.DeliveryDelivered:
		set["deliveryTime"] = at
	}
	res, err := s.deliveries().UpdateOne(ctx,
		bson.M{"deliveryID": deliveryID, "status": from},
		bson.M{
			"$set":  set,
			"$push": bson.M{"trackingHistory": pt},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SpendCodeAttempt(ctx context.Context, deliveryID string) (int, error) {
	var delivery models.Delivery
	err := s.deliveries().FindOneAndUpdate(ctx,
		bson.M{"deliveryID": deliveryID, "codeAttemptsLeft": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"codeAttemptsLeft": -1}},
	).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	// FindOneAndUpdate returns the pre-update document by default.
	return delivery.CodeAttemptsLeft - 1, nil
}
