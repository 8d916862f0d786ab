package handlers

import (
	"ridepool/internal/middleware"
	"ridepool/internal/services"
	"ridepool/internal/utils"
	"ridepool/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// PublishRide creates a new ride offer with the caller as driver
func (h *RideHandler) PublishRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.PublishRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidatePublishRide(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	ride, err := h.rideService.PublishRide(c.Request.Context(), userID, &services.PublishRideInput{
		Origin:         request.Origin,
		Destination:    request.Destination,
		DepartureTime:  request.DepartureTime,
		PricePerSeat:   request.PricePerSeat,
		Currency:       request.Currency,
		TotalSeats:     request.TotalSeats,
		InstantBooking: request.InstantBooking,
		Notes:          request.Notes,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride published successfully", ride)
}

// GetRide returns one ride with its seat availability
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

// ListUpcoming returns bookable rides ordered by departure
func (h *RideHandler) ListUpcoming(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	rides, total, err := h.rideService.ListUpcoming(c.Request.Context(), params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{
		Pagination: utils.BuildPaginationMeta(params, total),
		Count:      len(rides),
	})
}

// ListMyRides returns the caller's rides as driver
func (h *RideHandler) ListMyRides(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	params := utils.GetPaginationParams(c)

	rides, total, err := h.rideService.ListByDriver(c.Request.Context(), userID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{
		Pagination: utils.BuildPaginationMeta(params, total),
		Count:      len(rides),
	})
}

// StartRide moves a published ride to in_progress
func (h *RideHandler) StartRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), userID, rideID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride started", ride)
}

// CompleteRide finishes the ride and settles all active bookings
func (h *RideHandler) CompleteRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), userID, rideID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed", ride)
}

// CancelRide cancels the ride and every active booking on it
func (h *RideHandler) CancelRide(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	var request validators.CancelRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), userID, rideID, request.Reason)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled", ride)
}

func fieldErrors(errs validators.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Message
	}
	return out
}
