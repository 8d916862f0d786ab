package inventory

import (
	"fmt"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The ledger is the single authority for a ride's seat accounting. Every
// operation takes a ride snapshot and returns a new one; persistence and
// transaction scoping are the coordinator's job, which keeps the seat
// invariants checkable without a datastore.

// Reservation describes the passenger entry to insert on Reserve.
type Reservation struct {
	PassengerID  primitive.ObjectID
	Seats        int
	PickupPoint  string
	DropoffPoint string
	BookingTime  time.Time
}

// Reserve inserts (or overwrites) the passenger's entry on the ride. With
// autoConfirm the seats are consumed immediately and the entry is confirmed;
// otherwise the entry starts as requested and no seats are decremented yet.
func Reserve(ride *models.Ride, res Reservation, autoConfirm bool) (*models.Ride, error) {
	if autoConfirm && res.Seats > ride.AvailableSeats {
		return nil, apperrors.ErrInsufficientSeats
	}

	out := ride.Clone()
	entry := models.RidePassenger{
		SeatsBooked:  res.Seats,
		Status:       models.PassengerStatusRequested,
		BookingTime:  res.BookingTime,
		PickupPoint:  res.PickupPoint,
		DropoffPoint: res.DropoffPoint,
	}
	if autoConfirm {
		entry.Status = models.PassengerStatusConfirmed
		out.AvailableSeats -= res.Seats
	}
	out.Passengers[res.PassengerID.Hex()] = entry

	return out, nil
}

// Promote moves a passenger entry from requested to confirmed and consumes
// its seats. Fails if the ride no longer has enough seats for the entry.
func Promote(ride *models.Ride, passengerID primitive.ObjectID) (*models.Ride, error) {
	key := passengerID.Hex()
	entry, ok := ride.Passengers[key]
	if !ok {
		return nil, fmt.Errorf("passenger %s has no entry on ride %s", key, ride.ID.Hex())
	}
	if entry.Status != models.PassengerStatusRequested {
		return nil, fmt.Errorf("passenger %s entry is %s, expected requested", key, entry.Status)
	}
	if entry.SeatsBooked > ride.AvailableSeats {
		return nil, apperrors.ErrInsufficientSeats
	}

	out := ride.Clone()
	entry.Status = models.PassengerStatusConfirmed
	out.Passengers[key] = entry
	out.AvailableSeats -= entry.SeatsBooked

	return out, nil
}

// Release removes the passenger entry. Seats held by a confirmed entry are
// returned to the pool, clamped to [0, totalSeats]; a requested entry never
// consumed seats, so none are returned.
func Release(ride *models.Ride, passengerID primitive.ObjectID) (*models.Ride, error) {
	key := passengerID.Hex()
	entry, ok := ride.Passengers[key]
	if !ok {
		return nil, fmt.Errorf("passenger %s has no entry on ride %s", key, ride.ID.Hex())
	}

	out := ride.Clone()
	delete(out.Passengers, key)
	if entry.Status == models.PassengerStatusConfirmed {
		out.AvailableSeats += entry.SeatsBooked
		if out.AvailableSeats > out.TotalSeats {
			out.AvailableSeats = out.TotalSeats
		}
		if out.AvailableSeats < 0 {
			out.AvailableSeats = 0
		}
	}

	return out, nil
}

// Check re-derives the seat invariants from the passenger map: available
// seats stay within [0, total] and equal total minus confirmed seats.
func Check(ride *models.Ride) error {
	if ride.AvailableSeats < 0 || ride.AvailableSeats > ride.TotalSeats {
		return fmt.Errorf("ride %s: available seats %d outside [0, %d]", ride.ID.Hex(), ride.AvailableSeats, ride.TotalSeats)
	}
	if confirmed := ride.ConfirmedSeats(); ride.AvailableSeats+confirmed != ride.TotalSeats {
		return fmt.Errorf("ride %s: available %d + confirmed %d != total %d", ride.ID.Hex(), ride.AvailableSeats, confirmed, ride.TotalSeats)
	}
	return nil
}
