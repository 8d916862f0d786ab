package validators

type CreateBookingRequest struct {
	RideID       string `json:"ride_id" validate:"required,object_id"`
	Seats        int    `json:"seats" validate:"required,seat_count"`
	PickupPoint  string `json:"pickup_point" validate:"omitempty,max=255"`
	DropoffPoint string `json:"dropoff_point" validate:"omitempty,max=255"`
}

type TransitionBookingRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled_by_driver cancelled_by_passenger"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

func ValidateCreateBooking(req *CreateBookingRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateTransitionBooking(req *TransitionBookingRequest) ValidationErrors {
	errors := ValidateStruct(req)

	// Cancellations carry a reason so the audit trail explains the seat
	// release.
	if (req.Status == "cancelled_by_driver" || req.Status == "cancelled_by_passenger") && req.Reason == "" {
		errors = append(errors, ValidationError{
			Field:   "reason",
			Message: "Cancellations require a reason",
		})
	}

	return errors
}
