package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/services"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type rideRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewRideRepository(db *mongo.Database, cache services.CacheService) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cache,
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	if ride.Passengers == nil {
		ride.Passengers = map[string]models.RidePassenger{}
	}

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	if ride.Status == models.RideStatusPublished {
		r.cacheRide(ctx, ride)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	// Transactional reads must see the datastore's own snapshot, never a
	// possibly stale cache entry.
	if mongo.SessionFromContext(ctx) == nil {
		if ride := r.getRideFromCache(ctx, id); ride != nil {
			return ride, nil
		}
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	if ride.Passengers == nil {
		ride.Passengers = map[string]models.RidePassenger{}
	}

	if mongo.SessionFromContext(ctx) == nil && ride.Status == models.RideStatusPublished {
		r.cacheRide(ctx, &ride)
	}

	return &ride, nil
}

func (r *rideRepository) Replace(ctx context.Context, ride *models.Ride) error {
	ride.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": ride.ID}, ride)
	if err != nil {
		return fmt.Errorf("failed to replace ride: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrRideNotFound
	}

	r.invalidateRideCache(ctx, ride.ID)

	return nil
}

func (r *rideRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrRideNotFound
	}

	r.invalidateRideCache(ctx, id)

	return nil
}

func (r *rideRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.find(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *rideRepository) GetByStatus(ctx context.Context, status models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.find(ctx, bson.M{"status": status}, params)
}

func (r *rideRepository) GetUpcoming(ctx context.Context, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{
		"status":         models.RideStatusPublished,
		"departure_time": bson.M{"$gt": time.Now()},
	}
	return r.find(ctx, filter, params)
}

func (r *rideRepository) find(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, 0, fmt.Errorf("failed to decode rides: %w", err)
	}

	return rides, total, nil
}

func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache == nil {
		return
	}
	_ = r.cache.CacheRide(ctx, ride, utils.RideCacheTTL)
}

func (r *rideRepository) getRideFromCache(ctx context.Context, id primitive.ObjectID) *models.Ride {
	if r.cache == nil {
		return nil
	}
	ride, err := r.cache.GetCachedRide(ctx, id)
	if err != nil {
		return nil
	}
	return ride
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, id primitive.ObjectID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.InvalidateRide(ctx, id)
}
