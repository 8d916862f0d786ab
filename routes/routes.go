package routes

import (
	"ridepool/internal/config"
	"ridepool/internal/handlers"
	"ridepool/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Setup wires every API route. Webhooks stay outside the auth group; the
// gateway signature is their authentication.
func Setup(
	router *gin.Engine,
	cfg *config.Config,
	rideHandler *handlers.RideHandler,
	bookingHandler *handlers.BookingHandler,
	paymentHandler *handlers.PaymentHandler,
	settlementHandler *handlers.SettlementHandler,
) {
	v1 := router.Group("/api/v1")

	v1.POST("/webhooks/payments/:gateway", paymentHandler.HandleWebhook)

	SetupRideRoutes(v1, cfg, rideHandler)
	SetupBookingRoutes(v1, cfg, bookingHandler)
	SetupPaymentRoutes(v1, cfg, paymentHandler)
	SetupSettlementRoutes(v1, cfg, settlementHandler)
}

func SetupRideRoutes(r *gin.RouterGroup, cfg *config.Config, rideHandler *handlers.RideHandler) {
	rides := r.Group("/rides")
	rides.GET("", rideHandler.ListUpcoming)
	rides.GET("/:id", rideHandler.GetRide)

	protected := r.Group("/rides")
	protected.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		protected.POST("", rideHandler.PublishRide)
		protected.GET("/mine", rideHandler.ListMyRides)
		protected.PUT("/:id/start", rideHandler.StartRide)
		protected.PUT("/:id/complete", rideHandler.CompleteRide)
		protected.PUT("/:id/cancel", rideHandler.CancelRide)
	}
}

func SetupBookingRoutes(r *gin.RouterGroup, cfg *config.Config, bookingHandler *handlers.BookingHandler) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		bookings.POST("", bookingHandler.CreateBooking)
		bookings.GET("", bookingHandler.ListBookings)
		bookings.GET("/:id", bookingHandler.GetBooking)
		bookings.PUT("/:id/status", bookingHandler.TransitionBooking)
	}
}

func SetupPaymentRoutes(r *gin.RouterGroup, cfg *config.Config, paymentHandler *handlers.PaymentHandler) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		payments.POST("", paymentHandler.InitiatePayment)
		payments.POST("/verify", paymentHandler.VerifyPayment)
		payments.GET("", paymentHandler.ListPayments)
		payments.GET("/:id", paymentHandler.GetPayment)
	}
}

func SetupSettlementRoutes(r *gin.RouterGroup, cfg *config.Config, settlementHandler *handlers.SettlementHandler) {
	settlements := r.Group("/settlements")
	settlements.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		settlements.GET("/earnings", settlementHandler.GetEarnings)
		settlements.GET("/balance", settlementHandler.GetBalance)
		settlements.POST("/payouts", settlementHandler.RequestPayout)
		settlements.GET("/payouts", settlementHandler.ListPayouts)
		settlements.PUT("/payouts/:id/process", middleware.OperatorRequired(), settlementHandler.ProcessPayout)
	}
}
