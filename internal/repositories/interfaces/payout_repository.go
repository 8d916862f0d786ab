package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PayoutRepository interface {
	Create(ctx context.Context, payout *models.Payout) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payout, int64, error)
	GetOutstandingByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Payout, error)

	// GetSettledTransactionIDs returns payment ids already referenced by any
	// non-failed payout for the driver, so earnings are never paid twice.
	GetSettledTransactionIDs(ctx context.Context, driverID primitive.ObjectID) ([]primitive.ObjectID, error)
}
