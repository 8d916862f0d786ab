package services

import (
	"context"
	"time"

	"ridepool/internal/models"
	"ridepool/internal/utils"
	"ridepool/pkg/cache"
	"ridepool/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CacheService is the read-through cache used by the ride repository and the
// coordinator's post-commit invalidation. Cached state is advisory only;
// nothing that gates a booking decision is ever read from it.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	CacheRide(ctx context.Context, ride *models.Ride, expiration time.Duration) error
	GetCachedRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error)
	InvalidateRide(ctx context.Context, rideID primitive.ObjectID) error
	InvalidateUserBookings(ctx context.Context, userIDs ...primitive.ObjectID) error
}

type cacheService struct {
	redis  *cache.RedisCache
	logger *logger.Logger
}

func NewCacheService(redis *cache.RedisCache, log *logger.Logger) CacheService {
	return &cacheService{
		redis:  redis,
		logger: log,
	}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.redis.Set(ctx, key, value, expiration)
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	return s.redis.Delete(ctx, keys...)
}

func (s *cacheService) CacheRide(ctx context.Context, ride *models.Ride, expiration time.Duration) error {
	return s.redis.Set(ctx, rideKey(ride.ID), ride, expiration)
}

func (s *cacheService) GetCachedRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	if err := s.redis.Get(ctx, rideKey(rideID), &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (s *cacheService) InvalidateRide(ctx context.Context, rideID primitive.ObjectID) error {
	return s.redis.Delete(ctx, rideKey(rideID))
}

func (s *cacheService) InvalidateUserBookings(ctx context.Context, userIDs ...primitive.ObjectID) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, utils.CacheBookingListPrefix+id.Hex())
	}
	if len(keys) == 0 {
		return nil
	}
	return s.redis.Delete(ctx, keys...)
}

func rideKey(id primitive.ObjectID) string {
	return utils.CacheRidePrefix + id.Hex()
}
