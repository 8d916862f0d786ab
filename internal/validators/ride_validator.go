package validators

import (
	"time"

	"ridepool/internal/utils"
)

type PublishRideRequest struct {
	Origin         string    `json:"origin" validate:"required,min=2,max=255"`
	Destination    string    `json:"destination" validate:"required,min=2,max=255"`
	DepartureTime  time.Time `json:"departure_time" validate:"required,future_date"`
	PricePerSeat   int64     `json:"price_per_seat" validate:"required,min=1"`
	Currency       string    `json:"currency" validate:"omitempty,currency_code"`
	TotalSeats     int       `json:"total_seats" validate:"required,min=1,max=8"`
	InstantBooking bool      `json:"instant_booking"`
	Notes          string    `json:"notes" validate:"omitempty,max=500"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

func ValidatePublishRide(req *PublishRideRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if req.Origin != "" && req.Origin == req.Destination {
		errors = append(errors, ValidationError{
			Field:   "destination",
			Message: "Origin and destination must be different",
		})
	}

	if req.TotalSeats > utils.MaxSeatsPerRide {
		errors = append(errors, ValidationError{
			Field:   "total_seats",
			Message: "Too many seats for a single ride",
		})
	}

	return errors
}
