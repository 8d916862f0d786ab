package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)

	// Replace persists a full ride snapshot produced by the inventory
	// ledger. It is the only write path for seat accounting and must be
	// called inside a coordinator transaction.
	Replace(ctx context.Context, ride *models.Ride) error

	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	GetByStatus(ctx context.Context, status models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	GetUpcoming(ctx context.Context, params *utils.PaginationParams) ([]*models.Ride, int64, error)
}
