package interfaces

import (
	"context"

	"ridepool/internal/models"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	Replace(ctx context.Context, booking *models.Booking) error

	// GetActiveByRideAndPassenger looks up a requested/confirmed booking for
	// the pair. Called inside the coordinator transaction to enforce the
	// one-active-booking-per-ride rule.
	GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*models.Booking, error)

	GetByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error)
	GetActiveByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error)
	GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error)
}
