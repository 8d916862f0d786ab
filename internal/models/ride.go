package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type PassengerStatus string

const (
	RideStatusPublished  RideStatus = "published"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"

	PassengerStatusRequested PassengerStatus = "requested"
	PassengerStatusConfirmed PassengerStatus = "confirmed"
)

// Ride is one published trip offer. Seat accounting (AvailableSeats and the
// Passengers map) is only ever mutated through the inventory ledger inside a
// datastore transaction; no handler or repository writes those fields ad hoc.
type Ride struct {
	ID                 primitive.ObjectID       `json:"id" bson:"_id,omitempty"`
	DriverID           primitive.ObjectID       `json:"driver_id" bson:"driver_id" validate:"required"`
	Origin             string                   `json:"origin" bson:"origin" validate:"required"`
	Destination        string                   `json:"destination" bson:"destination" validate:"required"`
	DepartureTime      time.Time                `json:"departure_time" bson:"departure_time" validate:"required"`
	PricePerSeat       int64                    `json:"price_per_seat" bson:"price_per_seat" validate:"required"`
	Currency           string                   `json:"currency" bson:"currency" default:"USD"`
	TotalSeats         int                      `json:"total_seats" bson:"total_seats" validate:"required"`
	AvailableSeats     int                      `json:"available_seats" bson:"available_seats"`
	Passengers         map[string]RidePassenger `json:"passengers" bson:"passengers"`
	InstantBooking     bool                     `json:"instant_booking" bson:"instant_booking" default:"false"`
	Status             RideStatus               `json:"status" bson:"status" default:"published"`
	Notes              string                   `json:"notes" bson:"notes"`
	StartedAt          *time.Time               `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time               `json:"completed_at" bson:"completed_at"`
	CancelledAt        *time.Time               `json:"cancelled_at" bson:"cancelled_at"`
	CancellationReason string                   `json:"cancellation_reason" bson:"cancellation_reason"`
	CreatedAt          time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at" bson:"updated_at"`
}

// RidePassenger is the per-passenger seat entry embedded in a Ride. Entries
// exist only while the passenger has a non-cancelled relationship to the ride.
type RidePassenger struct {
	SeatsBooked  int             `json:"seats_booked" bson:"seats_booked"`
	Status       PassengerStatus `json:"status" bson:"status"`
	BookingTime  time.Time       `json:"booking_time" bson:"booking_time"`
	PickupPoint  string          `json:"pickup_point" bson:"pickup_point"`
	DropoffPoint string          `json:"dropoff_point" bson:"dropoff_point"`
}

func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

// Bookable reports whether new bookings may be created against the ride at
// the given instant. Departure is stored as an absolute UTC instant.
func (r *Ride) Bookable(now time.Time) bool {
	return r.Status == RideStatusPublished && r.DepartureTime.After(now)
}

// ConfirmedSeats re-derives the confirmed seat total from the passenger map.
func (r *Ride) ConfirmedSeats() int {
	total := 0
	for _, p := range r.Passengers {
		if p.Status == PassengerStatusConfirmed {
			total += p.SeatsBooked
		}
	}
	return total
}

// Clone returns a deep copy, so ledger operations can return a fresh
// snapshot without aliasing the passenger map of the original.
func (r *Ride) Clone() *Ride {
	out := *r
	out.Passengers = make(map[string]RidePassenger, len(r.Passengers))
	for k, v := range r.Passengers {
		out.Passengers[k] = v
	}
	return &out
}
