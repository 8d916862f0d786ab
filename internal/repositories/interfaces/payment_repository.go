package interfaces

import (
	"context"
	"time"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	GetByBooking(ctx context.Context, bookingID primitive.ObjectID) ([]*models.Payment, error)
	GetCompletedByBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error)

	// Settlement queries. Completed payments for a driver ordered oldest
	// first, optionally bounded by a time range.
	GetCompletedByDriver(ctx context.Context, driverID primitive.ObjectID, from, to time.Time) ([]*models.Payment, error)
	GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error)

	AddRefund(ctx context.Context, id primitive.ObjectID, refund models.RefundRecord, status models.PaymentStatus) error
}
