package handlers

import (
	"time"

	"ridepool/internal/middleware"
	"ridepool/internal/models"
	"ridepool/internal/services"
	"ridepool/internal/utils"
	"ridepool/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SettlementHandler struct {
	settlementService services.SettlementService
}

func NewSettlementHandler(settlementService services.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

// GetEarnings returns the caller's driver earnings for a period
func (h *SettlementHandler) GetEarnings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	now := time.Now().UTC()
	from := utils.StartOfDay(now.AddDate(0, -1, 0))
	to := now
	if v := c.Query("from"); v != "" {
		parsed, err := utils.ParseTimeISO(v)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid from date")
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := utils.ParseTimeISO(v)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid to date")
			return
		}
		to = parsed
	}

	summary, err := h.settlementService.DriverEarnings(c.Request.Context(), userID, from, to)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Earnings retrieved successfully", summary)
}

// GetBalance returns the caller's withdrawable balance
func (h *SettlementHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	summary, err := h.settlementService.AvailableBalance(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Balance retrieved successfully", summary)
}

// RequestPayout creates a withdrawal against the caller's balance
func (h *SettlementHandler) RequestPayout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.PayoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidatePayoutRequest(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	input := &services.PayoutRequestInput{
		Amount: request.Amount,
		Method: models.PayoutMethod(request.Method),
	}
	if request.BankDetails != nil {
		input.BankDetails = &models.BankDetails{
			AccountHolder: request.BankDetails.AccountHolder,
			AccountNumber: request.BankDetails.AccountNumber,
			BankName:      request.BankDetails.BankName,
			RoutingCode:   request.BankDetails.RoutingCode,
		}
	}

	payout, err := h.settlementService.RequestPayout(c.Request.Context(), userID, input)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Payout requested successfully", payout)
}

// ProcessPayout settles or fails a pending payout. Operator only.
func (h *SettlementHandler) ProcessPayout(c *gin.Context) {
	payoutID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payout ID")
		return
	}

	var request validators.ProcessPayoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateProcessPayout(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrors(errs))
		return
	}

	payout, err := h.settlementService.ProcessPayout(c.Request.Context(), payoutID, request.Succeed, request.FailureReason)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Payout processed successfully", payout)
}

// ListPayouts returns the caller's payout history
func (h *SettlementHandler) ListPayouts(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	params := utils.GetPaginationParams(c)

	payouts, total, err := h.settlementService.ListPayouts(c.Request.Context(), userID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Payouts retrieved successfully", payouts, &utils.Meta{
		Pagination: utils.BuildPaginationMeta(params, total),
		Count:      len(payouts),
	})
}
