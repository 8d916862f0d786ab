package lifecycle

import (
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
)

// Actor identifies which side of a booking may cause a transition.
// Authorization itself is checked by the coordinator; the state machine only
// answers who would be allowed.
type Actor string

const (
	ActorDriver    Actor = "driver"
	ActorPassenger Actor = "passenger"
)

// transitions is the full allowed-transition table. Anything absent fails
// with an invalid-transition error and leaves the booking untouched.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusRequested: {
		models.BookingStatusConfirmed,
		models.BookingStatusCancelledByDriver,
		models.BookingStatusCancelledByPassenger,
	},
	models.BookingStatusConfirmed: {
		models.BookingStatusCompleted,
		models.BookingStatusCancelledByDriver,
		models.BookingStatusCancelledByPassenger,
	},
	models.BookingStatusCompleted:            {},
	models.BookingStatusCancelledByDriver:    {},
	models.BookingStatusCancelledByPassenger: {},
}

// actorFor maps each target status to the only actor allowed to cause it.
var actorFor = map[models.BookingStatus]Actor{
	models.BookingStatusConfirmed:            ActorDriver,
	models.BookingStatusCompleted:            ActorDriver,
	models.BookingStatusCancelledByDriver:    ActorDriver,
	models.BookingStatusCancelledByPassenger: ActorPassenger,
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to models.BookingStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedActor returns the actor permitted to cause the target status.
func AllowedActor(target models.BookingStatus) (Actor, bool) {
	a, ok := actorFor[target]
	return a, ok
}

// Apply validates the transition and returns a new booking snapshot with the
// status and exactly one timestamp set. Cancellations record the reason; it
// is ignored for other targets.
func Apply(booking *models.Booking, target models.BookingStatus, at time.Time, reason string) (*models.Booking, error) {
	if !CanTransition(booking.Status, target) {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(target))
	}

	out := booking.Clone()
	out.Status = target
	out.UpdatedAt = at

	switch target {
	case models.BookingStatusConfirmed:
		out.ConfirmedAt = &at
	case models.BookingStatusCompleted:
		out.CompletedAt = &at
	case models.BookingStatusCancelledByDriver, models.BookingStatusCancelledByPassenger:
		out.CancelledAt = &at
		out.CancellationReason = reason
	}

	return out, nil
}

// InitialStatus is the status a new booking starts in, depending on the
// ride's instant-booking policy.
func InitialStatus(instantBooking bool) models.BookingStatus {
	if instantBooking {
		return models.BookingStatusConfirmed
	}
	return models.BookingStatusRequested
}
