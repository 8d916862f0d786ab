package services

import (
	"context"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/inventory"
	"ridepool/internal/lifecycle"
	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideService interface {
	PublishRide(ctx context.Context, driverID primitive.ObjectID, input *PublishRideInput) (*models.Ride, error)
	GetRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error)
	ListUpcoming(ctx context.Context, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	StartRide(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error)
	CompleteRide(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error)
	CancelRide(ctx context.Context, driverID, rideID primitive.ObjectID, reason string) (*models.Ride, error)
}

type PublishRideInput struct {
	Origin         string
	Destination    string
	DepartureTime  time.Time
	PricePerSeat   int64
	TotalSeats     int
	InstantBooking bool
	Notes          string
	Currency       string
}

type rideService struct {
	runner      TxnRunner
	rideRepo    interfaces.RideRepository
	bookingRepo interfaces.BookingRepository
	cache       CacheService
	notifier    NotificationService
	refunder    RefundProcessor
	logger      *logger.Logger
	now         func() time.Time
}

func NewRideService(
	runner TxnRunner,
	rideRepo interfaces.RideRepository,
	bookingRepo interfaces.BookingRepository,
	cache CacheService,
	notifier NotificationService,
	refunder RefundProcessor,
	log *logger.Logger,
) RideService {
	return &rideService{
		runner:      runner,
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		notifier:    notifier,
		refunder:    refunder,
		logger:      log,
		now:         time.Now,
	}
}

func (s *rideService) PublishRide(ctx context.Context, driverID primitive.ObjectID, input *PublishRideInput) (*models.Ride, error) {
	currency := input.Currency
	if currency == "" {
		currency = utils.DefaultCurrency
	}

	ride := &models.Ride{
		DriverID:       driverID,
		Origin:         input.Origin,
		Destination:    input.Destination,
		DepartureTime:  input.DepartureTime.UTC(),
		PricePerSeat:   input.PricePerSeat,
		Currency:       currency,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
		Passengers:     map[string]models.RidePassenger{},
		InstantBooking: input.InstantBooking,
		Status:         models.RideStatusPublished,
		Notes:          input.Notes,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.logger.LogRideEvent(ride.ID, utils.EventRidePublished, map[string]interface{}{
		"driver_id":      driverID.Hex(),
		"seats":          ride.TotalSeats,
		"departure_time": ride.DepartureTime,
	})

	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, rideID primitive.ObjectID) (*models.Ride, error) {
	return s.rideRepo.GetByID(ctx, rideID)
}

func (s *rideService) ListUpcoming(ctx context.Context, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rideRepo.GetUpcoming(ctx, params)
}

func (s *rideService) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rideRepo.GetByDriver(ctx, driverID, params)
}

func (s *rideService) StartRide(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
	var ride *models.Ride

	err := s.runBounded(ctx, func(txCtx context.Context) error {
		current, err := s.rideRepo.GetByID(txCtx, rideID)
		if err != nil {
			return err
		}
		if current.DriverID != driverID {
			return apperrors.ErrUnauthorizedActor
		}
		if current.Status != models.RideStatusPublished {
			return apperrors.ErrRideNotActive
		}

		now := s.now()
		updated := current.Clone()
		updated.Status = models.RideStatusInProgress
		updated.StartedAt = &now

		if err := s.rideRepo.Replace(txCtx, updated); err != nil {
			return err
		}

		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ride, nil
}

// CompleteRide flips the ride and every confirmed booking to completed in one
// transaction. Requested bookings the driver never approved are cancelled.
// Seat counts are untouched: completion consumes nothing.
func (s *rideService) CompleteRide(ctx context.Context, driverID, rideID primitive.ObjectID) (*models.Ride, error) {
	var ride *models.Ride
	var affected []*models.Booking

	err := s.runBounded(ctx, func(txCtx context.Context) error {
		affected = affected[:0]

		current, err := s.rideRepo.GetByID(txCtx, rideID)
		if err != nil {
			return err
		}
		if current.DriverID != driverID {
			return apperrors.ErrUnauthorizedActor
		}
		if current.Status != models.RideStatusInProgress {
			return apperrors.ErrRideNotActive
		}

		now := s.now()
		bookings, err := s.bookingRepo.GetActiveByRide(txCtx, current.ID)
		if err != nil {
			return err
		}

		updated := current.Clone()
		for _, b := range bookings {
			target := models.BookingStatusCompleted
			reason := ""
			if b.Status == models.BookingStatusRequested {
				target = models.BookingStatusCancelledByDriver
				reason = "ride completed before request was approved"
			}

			transitioned, err := lifecycle.Apply(b, target, now, reason)
			if err != nil {
				return err
			}
			if target == models.BookingStatusCancelledByDriver {
				if _, ok := updated.Passengers[b.PassengerID.Hex()]; ok {
					updated, err = inventory.Release(updated, b.PassengerID)
					if err != nil {
						return err
					}
				}
			}
			if err := s.bookingRepo.Replace(txCtx, transitioned); err != nil {
				return err
			}
			affected = append(affected, transitioned)
		}

		updated.Status = models.RideStatusCompleted
		updated.CompletedAt = &now

		if err := s.rideRepo.Replace(txCtx, updated); err != nil {
			return err
		}

		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterRideChange(ride, affected, utils.EventBookingCompleted)

	return ride, nil
}

// CancelRide cancels the ride and every active booking against it in one
// transaction, releasing all held seats. Refunds for paid bookings run
// after commit and never roll the cancellation back.
func (s *rideService) CancelRide(ctx context.Context, driverID, rideID primitive.ObjectID, reason string) (*models.Ride, error) {
	var ride *models.Ride
	var cancelled []*models.Booking

	err := s.runBounded(ctx, func(txCtx context.Context) error {
		cancelled = cancelled[:0]

		current, err := s.rideRepo.GetByID(txCtx, rideID)
		if err != nil {
			return err
		}
		if current.DriverID != driverID {
			return apperrors.ErrUnauthorizedActor
		}
		if current.IsTerminal() {
			return apperrors.ErrRideNotActive
		}

		now := s.now()
		bookings, err := s.bookingRepo.GetActiveByRide(txCtx, current.ID)
		if err != nil {
			return err
		}

		updated := current.Clone()
		for _, b := range bookings {
			transitioned, err := lifecycle.Apply(b, models.BookingStatusCancelledByDriver, now, reason)
			if err != nil {
				return err
			}
			if _, ok := updated.Passengers[b.PassengerID.Hex()]; ok {
				updated, err = inventory.Release(updated, b.PassengerID)
				if err != nil {
					return err
				}
			}
			if err := s.bookingRepo.Replace(txCtx, transitioned); err != nil {
				return err
			}
			cancelled = append(cancelled, transitioned)
		}

		updated.Status = models.RideStatusCancelled
		updated.CancelledAt = &now
		updated.CancellationReason = reason

		if err := s.rideRepo.Replace(txCtx, updated); err != nil {
			return err
		}

		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterRideChange(ride, cancelled, utils.EventRideCancelled)

	if s.refunder != nil {
		for _, b := range cancelled {
			go func(b models.Booking, departure time.Time) {
				refundCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := s.refunder.RefundForCancellation(refundCtx, &b, departure); err != nil {
					s.logger.WithError(err).WithBookingID(b.ID).Warn("refund after ride cancellation failed, queued for reconciliation")
				}
			}(*b, ride.DepartureTime)
		}
	}

	return ride, nil
}

func (s *rideService) runBounded(ctx context.Context, fn func(ctx context.Context) error) error {
	err := utils.RetryWithBackoff(ctx, utils.TxnMaxRetries, utils.TxnRetryBackoff, s.runner.IsTransientConflict, func() error {
		return s.runner.RunTransaction(ctx, fn)
	})
	if err != nil && s.runner.IsTransientConflict(err) {
		return apperrors.Wrap(apperrors.ErrConcurrencyConflict, err)
	}
	return err
}

func (s *rideService) afterRideChange(ride *models.Ride, bookings []*models.Booking, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.cache != nil {
		_ = s.cache.InvalidateRide(ctx, ride.ID)
		ids := []primitive.ObjectID{ride.DriverID}
		for _, b := range bookings {
			ids = append(ids, b.PassengerID)
		}
		_ = s.cache.InvalidateUserBookings(ctx, ids...)
	}

	if s.notifier != nil {
		for _, b := range bookings {
			s.notifier.NotifyBookingEvent(b, ride, event)
		}
	}

	s.logger.LogRideEvent(ride.ID, event, map[string]interface{}{
		"status":            string(ride.Status),
		"affected_bookings": len(bookings),
	})
}
