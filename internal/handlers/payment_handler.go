package handlers

import (
	"io"
	"net/http"

	"ridepool/internal/middleware"
	"ridepool/internal/models"
	"ridepool/internal/services"
	"ridepool/internal/utils"
	"ridepool/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// InitiatePayment creates a gateway order for a confirmed booking
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateInitiatePayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	bookingID, err := primitive.ObjectIDFromHex(request.BookingID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return
	}

	order, err := h.paymentService.InitiatePayment(c.Request.Context(), userID, &services.InitiatePaymentInput{
		BookingID: bookingID,
		Gateway:   models.PaymentGateway(request.Gateway),
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Payment order created", order)
}

// VerifyPayment confirms a gateway payment against its order
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateVerifyPayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), userID, &services.VerifyPaymentInput{
		OrderID:          request.OrderID,
		GatewayPaymentID: request.GatewayPaymentID,
		Signature:        request.Signature,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment verified successfully", payment)
}

// GetPayment returns one payment visible to the caller
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}

// ListPayments returns the caller's payments as passenger
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	params := utils.GetPaginationParams(c)

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), userID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Payments retrieved successfully", payments, &utils.Meta{
		Pagination: utils.BuildPaginationMeta(params, total),
		Count:      len(payments),
	})
}

// HandleWebhook receives asynchronous gateway notifications. Unauthenticated;
// the gateway signature is the authentication.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	gateway := models.PaymentGateway(c.Param("gateway"))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Unable to read webhook payload")
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if signature == "" {
		signature = c.GetHeader("Stripe-Signature")
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), gateway, payload, signature); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	c.Status(http.StatusOK)
}
