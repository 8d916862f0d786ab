package services

import (
	"context"
	"errors"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/inventory"
	"ridepool/internal/lifecycle"
	"ridepool/internal/models"
	"ridepool/internal/pricing"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TxnRunner executes fn as one atomic multi-document transaction. A run that
// aborts because a concurrent transaction touched the same documents is
// reported as a transient conflict, which the coordinator retries a bounded
// number of times.
type TxnRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	IsTransientConflict(err error) bool
}

// BookingService is the transactional coordinator: the only writer of ride
// seat accounting and booking status. Every mutation couples the inventory
// ledger and the booking state machine inside one datastore transaction, so
// concurrent requests either commit both documents or neither.
type BookingService interface {
	CreateBooking(ctx context.Context, passengerID primitive.ObjectID, input *CreateBookingInput) (*models.Booking, error)
	TransitionBooking(ctx context.Context, actorID, bookingID primitive.ObjectID, target models.BookingStatus, reason string) (*models.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.Booking, error)
	ListBookings(ctx context.Context, userID primitive.ObjectID, role string, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error)
}

type CreateBookingInput struct {
	RideID       primitive.ObjectID
	Seats        int
	PickupPoint  string
	DropoffPoint string
}

type bookingService struct {
	runner      TxnRunner
	rideRepo    interfaces.RideRepository
	bookingRepo interfaces.BookingRepository
	cache       CacheService
	notifier    NotificationService
	refunder    RefundProcessor
	logger      *logger.Logger
	audit       *logger.AuditLogger
	now         func() time.Time
}

// RefundProcessor is the slice of the payment service the coordinator needs
// after a cancellation commits. Invoked fire-and-forget; a refund failure
// never rolls back the committed seat release.
type RefundProcessor interface {
	RefundForCancellation(ctx context.Context, booking *models.Booking, departure time.Time) error
}

func NewBookingService(
	runner TxnRunner,
	rideRepo interfaces.RideRepository,
	bookingRepo interfaces.BookingRepository,
	cache CacheService,
	notifier NotificationService,
	refunder RefundProcessor,
	log *logger.Logger,
	audit *logger.AuditLogger,
) BookingService {
	return &bookingService{
		runner:      runner,
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		notifier:    notifier,
		refunder:    refunder,
		logger:      log,
		audit:       audit,
		now:         time.Now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, passengerID primitive.ObjectID, input *CreateBookingInput) (*models.Booking, error) {
	// One id per call: if the transaction retries after an ambiguous commit,
	// the duplicate-key check on _id keeps the operation idempotent.
	bookingID := primitive.NewObjectID()

	var booking *models.Booking
	var ride *models.Ride

	err := s.runBounded(ctx, func(txCtx context.Context) error {
		now := s.now()

		current, err := s.rideRepo.GetByID(txCtx, input.RideID)
		if err != nil {
			return err
		}
		if current.DriverID == passengerID {
			return apperrors.ErrSelfBookingForbidden
		}
		if !current.Bookable(now) {
			return apperrors.ErrRideNotBookable
		}
		if input.Seats > current.AvailableSeats {
			return apperrors.ErrInsufficientSeats
		}

		if err := s.checkNoActiveBooking(txCtx, current, passengerID); err != nil {
			return err
		}

		fare, err := pricing.ComputeFare(current.PricePerSeat, input.Seats, pricing.ServiceFeePercent)
		if err != nil {
			return err
		}

		pickup := input.PickupPoint
		if pickup == "" {
			pickup = current.Origin
		}
		dropoff := input.DropoffPoint
		if dropoff == "" {
			dropoff = current.Destination
		}

		updated, err := inventory.Reserve(current, inventory.Reservation{
			PassengerID:  passengerID,
			Seats:        input.Seats,
			PickupPoint:  pickup,
			DropoffPoint: dropoff,
			BookingTime:  now,
		}, current.InstantBooking)
		if err != nil {
			return err
		}

		booking = &models.Booking{
			ID:          bookingID,
			RideID:      current.ID,
			PassengerID: passengerID,
			DriverID:    current.DriverID,
			SeatsBooked: input.Seats,
			Pricing: models.BookingPricing{
				PricePerSeat: fare.PricePerSeat,
				TotalAmount:  fare.TotalAmount,
				ServiceFee:   fare.ServiceFee,
				FinalAmount:  fare.FinalAmount,
			},
			Status:       lifecycle.InitialStatus(current.InstantBooking),
			PickupPoint:  pickup,
			DropoffPoint: dropoff,
			RequestedAt:  now,
		}
		if current.InstantBooking {
			booking.ConfirmedAt = &now
		}

		if err := s.rideRepo.Replace(txCtx, updated); err != nil {
			return err
		}
		if err := s.bookingRepo.Create(txCtx, booking); err != nil {
			return err
		}

		ride = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(booking, ride, utils.EventBookingRequested)

	return booking, nil
}

func (s *bookingService) TransitionBooking(ctx context.Context, actorID, bookingID primitive.ObjectID, target models.BookingStatus, reason string) (*models.Booking, error) {
	var booking *models.Booking
	var ride *models.Ride
	var fromStatus models.BookingStatus

	err := s.runBounded(ctx, func(txCtx context.Context) error {
		now := s.now()

		current, err := s.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			return err
		}
		currentRide, err := s.rideRepo.GetByID(txCtx, current.RideID)
		if err != nil {
			return err
		}

		// Authorization re-derives the driver from the ride; the booking's
		// denormalized copy is never trusted for access decisions.
		if err := authorizeTransition(currentRide, current, actorID, target); err != nil {
			return err
		}

		updatedBooking, err := lifecycle.Apply(current, target, now, reason)
		if err != nil {
			return err
		}

		updatedRide, err := s.applySeatEffect(currentRide, current, target)
		if err != nil {
			return err
		}

		if updatedRide != nil {
			if err := s.rideRepo.Replace(txCtx, updatedRide); err != nil {
				return err
			}
		} else {
			updatedRide = currentRide
		}
		if err := s.bookingRepo.Replace(txCtx, updatedBooking); err != nil {
			return err
		}

		booking = updatedBooking
		ride = updatedRide
		fromStatus = current.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(booking, ride, transitionEvent(target))
	if s.audit != nil {
		s.audit.LogTransition("booking", booking.ID, string(fromStatus), string(booking.Status), actorID)
	}

	if booking.IsCancelled() && s.refunder != nil {
		go func(b models.Booking, departure time.Time) {
			refundCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.refunder.RefundForCancellation(refundCtx, &b, departure); err != nil {
				s.logger.WithError(err).WithBookingID(b.ID).Warn("refund after cancellation failed, queued for reconciliation")
			}
		}(*booking, ride.DepartureTime)
	}

	return booking, nil
}

// applySeatEffect maps a booking transition onto the inventory ledger:
// confirming promotes the passenger entry, cancelling releases it,
// completing leaves seats untouched (they were consumed on confirm).
func (s *bookingService) applySeatEffect(ride *models.Ride, booking *models.Booking, target models.BookingStatus) (*models.Ride, error) {
	switch target {
	case models.BookingStatusConfirmed:
		return inventory.Promote(ride, booking.PassengerID)
	case models.BookingStatusCancelledByDriver, models.BookingStatusCancelledByPassenger:
		if _, ok := ride.Passengers[booking.PassengerID.Hex()]; !ok {
			return nil, nil
		}
		return inventory.Release(ride, booking.PassengerID)
	default:
		return nil, nil
	}
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != userID && booking.DriverID != userID {
		return nil, apperrors.ErrUnauthorizedActor
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, userID primitive.ObjectID, role string, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	if role == "driver" {
		return s.bookingRepo.GetByDriver(ctx, userID, status, params)
	}
	return s.bookingRepo.GetByPassenger(ctx, userID, status, params)
}

// runBounded wraps one transactional attempt in the bounded retry policy:
// transient aborts are retried with backoff, business-rule failures are not,
// and exhausting the budget surfaces a concurrency conflict to the caller.
func (s *bookingService) runBounded(ctx context.Context, fn func(ctx context.Context) error) error {
	err := utils.RetryWithBackoff(ctx, utils.TxnMaxRetries, utils.TxnRetryBackoff, s.runner.IsTransientConflict, func() error {
		return s.runner.RunTransaction(ctx, fn)
	})
	if err != nil && s.runner.IsTransientConflict(err) {
		return apperrors.Wrap(apperrors.ErrConcurrencyConflict, err)
	}
	return err
}

func (s *bookingService) checkNoActiveBooking(ctx context.Context, ride *models.Ride, passengerID primitive.ObjectID) error {
	if _, ok := ride.Passengers[passengerID.Hex()]; ok {
		return apperrors.ErrDuplicateActiveBooking
	}

	_, err := s.bookingRepo.GetActiveByRideAndPassenger(ctx, ride.ID, passengerID)
	if err == nil {
		return apperrors.ErrDuplicateActiveBooking
	}
	if errors.Is(err, apperrors.ErrBookingNotFound) {
		return nil
	}
	return err
}

func (s *bookingService) afterCommit(booking *models.Booking, ride *models.Ride, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.cache != nil {
		_ = s.cache.InvalidateRide(ctx, ride.ID)
		_ = s.cache.InvalidateUserBookings(ctx, booking.PassengerID, booking.DriverID)
	}

	if s.notifier != nil {
		s.notifier.NotifyBookingEvent(booking, ride, event)
	}

	s.logger.LogBookingEvent(booking.ID, event, map[string]interface{}{
		"ride_id": ride.ID.Hex(),
		"status":  string(booking.Status),
		"seats":   booking.SeatsBooked,
	})
}

func authorizeTransition(ride *models.Ride, booking *models.Booking, actorID primitive.ObjectID, target models.BookingStatus) error {
	actor, ok := lifecycle.AllowedActor(target)
	if !ok {
		return apperrors.InvalidTransition(string(booking.Status), string(target))
	}

	switch actor {
	case lifecycle.ActorDriver:
		if ride.DriverID != actorID {
			return apperrors.ErrUnauthorizedActor
		}
	case lifecycle.ActorPassenger:
		if booking.PassengerID != actorID {
			return apperrors.ErrUnauthorizedActor
		}
	}

	return nil
}

func transitionEvent(target models.BookingStatus) string {
	switch target {
	case models.BookingStatusConfirmed:
		return utils.EventBookingConfirmed
	case models.BookingStatusCompleted:
		return utils.EventBookingCompleted
	default:
		return utils.EventBookingCancelled
	}
}
