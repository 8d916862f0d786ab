package handlers

import (
	"ridepool/internal/middleware"
	"ridepool/internal/models"
	"ridepool/internal/services"
	"ridepool/internal/utils"
	"ridepool/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateBooking reserves seats on a ride for the caller
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.CreateBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateCreateBooking(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	rideID, err := primitive.ObjectIDFromHex(request.RideID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), userID, &services.CreateBookingInput{
		RideID:       rideID,
		Seats:        request.Seats,
		PickupPoint:  request.PickupPoint,
		DropoffPoint: request.DropoffPoint,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking created successfully", booking)
}

// TransitionBooking applies a status transition as the calling actor
func (h *BookingHandler) TransitionBooking(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	bookingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return
	}

	var request validators.TransitionBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateTransitionBooking(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	booking, err := h.bookingService.TransitionBooking(
		c.Request.Context(),
		userID,
		bookingID,
		models.BookingStatus(request.Status),
		request.Reason,
	)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking updated successfully", booking)
}

// GetBooking returns one booking visible to the caller
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	bookingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// ListBookings returns the caller's bookings as passenger or driver
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	params := utils.GetPaginationParams(c)

	role := c.DefaultQuery("role", "passenger")
	if role != "passenger" && role != "driver" {
		utils.BadRequestResponse(c, "Role must be passenger or driver")
		return
	}
	status := models.BookingStatus(c.Query("status"))

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), userID, role, status, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, &utils.Meta{
		Pagination: utils.BuildPaginationMeta(params, total),
		Count:      len(bookings),
	})
}
