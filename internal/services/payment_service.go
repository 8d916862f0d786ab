package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
	"ridepool/internal/pricing"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"
	"ridepool/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentService owns the money side of a booking: gateway orders, payment
// verification, webhooks, and the tiered cancellation refunds. Payments are
// recorded after bookings commit; a payment failure never mutates seat
// accounting.
type PaymentService interface {
	InitiatePayment(ctx context.Context, passengerID primitive.ObjectID, input *InitiatePaymentInput) (*PaymentOrder, error)
	VerifyPayment(ctx context.Context, passengerID primitive.ObjectID, input *VerifyPaymentInput) (*models.Payment, error)
	HandleWebhook(ctx context.Context, gateway models.PaymentGateway, payload []byte, signature string) error

	GetPayment(ctx context.Context, userID, paymentID primitive.ObjectID) (*models.Payment, error)
	ListPayments(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error)

	// RefundForCancellation applies the refund tier for a cancelled booking.
	// Invoked fire-and-forget after the cancellation transaction commits.
	RefundForCancellation(ctx context.Context, booking *models.Booking, departure time.Time) error
}

type InitiatePaymentInput struct {
	BookingID primitive.ObjectID
	Gateway   models.PaymentGateway
}

type VerifyPaymentInput struct {
	OrderID          string
	GatewayPaymentID string
	Signature        string
}

// PaymentOrder is what the client needs to complete the payment against the
// gateway.
type PaymentOrder struct {
	Payment  *models.Payment `json:"payment"`
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
}

type paymentService struct {
	paymentRepo interfaces.PaymentRepository
	bookingRepo interfaces.BookingRepository
	rideRepo    interfaces.RideRepository
	providers   map[models.PaymentGateway]payment.Provider
	notifier    NotificationService
	logger      *logger.Logger
	audit       *logger.AuditLogger
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo interfaces.PaymentRepository,
	bookingRepo interfaces.BookingRepository,
	rideRepo interfaces.RideRepository,
	providers map[models.PaymentGateway]payment.Provider,
	notifier NotificationService,
	log *logger.Logger,
	audit *logger.AuditLogger,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		rideRepo:    rideRepo,
		providers:   providers,
		notifier:    notifier,
		logger:      log,
		audit:       audit,
		now:         time.Now,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, passengerID primitive.ObjectID, input *InitiatePaymentInput) (*PaymentOrder, error) {
	provider, err := s.provider(input.Gateway)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != passengerID {
		return nil, apperrors.ErrUnauthorizedActor
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTransition, fmt.Errorf("booking %s is %s, only confirmed bookings are payable", booking.ID.Hex(), booking.Status))
	}

	if existing, err := s.paymentRepo.GetCompletedByBooking(ctx, booking.ID); err == nil && existing != nil {
		return nil, apperrors.ErrPaymentAlreadyCompleted
	} else if err != nil && !errors.Is(err, apperrors.ErrPaymentNotFound) {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}

	amount := booking.Pricing.FinalAmount
	currency := ride.Currency
	if currency == "" {
		currency = utils.DefaultCurrency
	}

	order, err := provider.CreateOrder(ctx, &payment.OrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  booking.ID.Hex(),
		Notes: map[string]string{
			"booking_id": booking.ID.Hex(),
			"ride_id":    booking.RideID.Hex(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	now := s.now()
	pay := &models.Payment{
		ID:          primitive.NewObjectID(),
		BookingID:   booking.ID,
		RideID:      booking.RideID,
		PassengerID: booking.PassengerID,
		DriverID:    ride.DriverID,
		Gateway:     input.Gateway,
		OrderID:     order.OrderID,
		Amount:      amount,
		Currency:    currency,
		Status:      models.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.paymentRepo.Create(ctx, pay); err != nil {
		return nil, err
	}

	s.logger.WithPaymentID(pay.ID).WithBookingID(booking.ID).Infof("Payment order %s created", order.OrderID)

	return &PaymentOrder{
		Payment:  pay,
		OrderID:  order.OrderID,
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, passengerID primitive.ObjectID, input *VerifyPaymentInput) (*models.Payment, error) {
	pay, err := s.paymentRepo.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if pay.PassengerID != passengerID {
		return nil, apperrors.ErrUnauthorizedActor
	}
	if pay.Status == models.PaymentStatusCompleted {
		return pay, nil
	}

	provider, err := s.provider(pay.Gateway)
	if err != nil {
		return nil, err
	}
	if err := provider.VerifySignature(input.OrderID, input.GatewayPaymentID, input.Signature); err != nil {
		s.markFailed(ctx, pay, err)
		return nil, apperrors.Wrap(apperrors.ErrInvalidSignature, err)
	}

	return s.markCompleted(ctx, pay, input.GatewayPaymentID)
}

// HandleWebhook reconciles asynchronous gateway notifications. Completion is
// idempotent: a payment already marked completed by VerifyPayment is left
// alone.
func (s *paymentService) HandleWebhook(ctx context.Context, gateway models.PaymentGateway, payload []byte, signature string) error {
	provider, err := s.provider(gateway)
	if err != nil {
		return err
	}

	event, err := provider.ValidateWebhook(ctx, payload, signature)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidSignature, err)
	}
	if event.OrderID == "" {
		s.logger.Debugf("Webhook %s carries no order id, ignoring", event.EventType)
		return nil
	}

	pay, err := s.paymentRepo.GetByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			s.logger.Warnf("Webhook %s references unknown order %s", event.EventType, event.OrderID)
			return nil
		}
		return err
	}

	switch event.EventType {
	case "payment.captured", "payment_intent.succeeded":
		if pay.Status == models.PaymentStatusCompleted {
			return nil
		}
		_, err := s.markCompleted(ctx, pay, event.PaymentID)
		return err
	case "payment.failed", "payment_intent.payment_failed":
		if pay.Status != models.PaymentStatusPending {
			return nil
		}
		s.markFailed(ctx, pay, fmt.Errorf("gateway reported failure via %s", event.EventType))
		return nil
	default:
		s.logger.Debugf("Ignoring webhook event %s for order %s", event.EventType, event.OrderID)
		return nil
	}
}

func (s *paymentService) GetPayment(ctx context.Context, userID, paymentID primitive.ObjectID) (*models.Payment, error) {
	pay, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pay.PassengerID != userID && pay.DriverID != userID {
		return nil, apperrors.ErrUnauthorizedActor
	}
	return pay, nil
}

func (s *paymentService) ListPayments(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	return s.paymentRepo.GetByPassenger(ctx, passengerID, params)
}

func (s *paymentService) RefundForCancellation(ctx context.Context, booking *models.Booking, departure time.Time) error {
	pay, err := s.paymentRepo.GetCompletedByBooking(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			// Nothing was paid, nothing to refund.
			return nil
		}
		return err
	}

	hours := utils.HoursUntil(departure, s.now())
	if booking.Status == models.BookingStatusCancelledByDriver {
		// Driver cancellations always refund the passenger in full.
		hours = utils.FullRefundWindowHours
	}

	refund, err := pricing.ComputeRefund(pay.Amount, hours)
	if err != nil {
		return err
	}

	if err := s.recordRefundOutcome(ctx, booking, refund); err != nil {
		s.logger.WithBookingID(booking.ID).WithError(err).Warn("Failed to record refund outcome on booking")
	}

	if refund.RefundAmount <= 0 {
		s.logger.WithPaymentID(pay.ID).WithBookingID(booking.ID).Info("Cancellation inside no-refund window, nothing refunded")
		return nil
	}

	provider, err := s.provider(pay.Gateway)
	if err != nil {
		return err
	}

	resp, err := provider.Refund(ctx, &payment.RefundRequest{
		PaymentID: pay.GatewayPaymentID,
		Amount:    refund.RefundAmount,
		Reason:    booking.CancellationReason,
	})
	if err != nil {
		return fmt.Errorf("failed to refund payment %s: %w", pay.ID.Hex(), err)
	}

	status := models.PaymentStatusPartiallyRefunded
	if refund.RefundType == pricing.RefundTypeFull {
		status = models.PaymentStatusRefunded
	}

	record := models.RefundRecord{
		RefundID:   resp.RefundID,
		Amount:     refund.RefundAmount,
		Percentage: refund.RefundPercentage,
		Type:       refund.RefundType,
		Reason:     booking.CancellationReason,
		CreatedAt:  s.now(),
	}
	if err := s.paymentRepo.AddRefund(ctx, pay.ID, record, status); err != nil {
		return err
	}

	s.logger.LogPaymentEvent(pay.ID, utils.EventPaymentRefunded, refund.RefundAmount, pay.Currency)
	if s.audit != nil {
		s.audit.LogPaymentAudit(pay.ID, refund.RefundAmount, pay.Currency, string(pay.Gateway), string(status))
	}
	if s.notifier != nil {
		refreshed, err := s.paymentRepo.GetByID(ctx, pay.ID)
		if err == nil {
			s.notifier.NotifyPaymentEvent(refreshed, utils.EventPaymentRefunded)
		}
	}

	return nil
}

func (s *paymentService) markCompleted(ctx context.Context, pay *models.Payment, gatewayPaymentID string) (*models.Payment, error) {
	now := s.now()
	platformFee := pricing.PlatformFee(pay.Amount)
	updates := map[string]interface{}{
		"status":             models.PaymentStatusCompleted,
		"gateway_payment_id": gatewayPaymentID,
		"platform_fee":       platformFee,
		"driver_earnings":    pay.Amount - platformFee,
		"completed_at":       now,
		"updated_at":         now,
	}
	if err := s.paymentRepo.Update(ctx, pay.ID, updates); err != nil {
		return nil, err
	}

	pay.Status = models.PaymentStatusCompleted
	pay.GatewayPaymentID = gatewayPaymentID
	pay.PlatformFee = platformFee
	pay.DriverEarnings = pay.Amount - platformFee
	pay.CompletedAt = &now
	pay.UpdatedAt = now

	s.logger.LogPaymentEvent(pay.ID, utils.EventPaymentCompleted, pay.Amount, pay.Currency)
	if s.audit != nil {
		s.audit.LogPaymentAudit(pay.ID, pay.Amount, pay.Currency, string(pay.Gateway), string(pay.Status))
	}
	if s.notifier != nil {
		s.notifier.NotifyPaymentEvent(pay, utils.EventPaymentCompleted)
	}
	return pay, nil
}

func (s *paymentService) markFailed(ctx context.Context, pay *models.Payment, cause error) {
	now := s.now()
	updates := map[string]interface{}{
		"status":         models.PaymentStatusFailed,
		"failure_reason": cause.Error(),
		"failed_at":      now,
		"updated_at":     now,
	}
	if err := s.paymentRepo.Update(ctx, pay.ID, updates); err != nil {
		s.logger.WithPaymentID(pay.ID).WithError(err).Error("Failed to mark payment failed")
	}
}

// recordRefundOutcome fills the refund bookkeeping on the booking's pricing
// snapshot. Best effort; the payment record is the source of truth.
func (s *paymentService) recordRefundOutcome(ctx context.Context, booking *models.Booking, refund pricing.Refund) error {
	current, err := s.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return err
	}
	current.Pricing.RefundAmount = refund.RefundAmount
	current.Pricing.RefundType = refund.RefundType
	current.UpdatedAt = s.now()
	return s.bookingRepo.Replace(ctx, current)
}

func (s *paymentService) provider(gateway models.PaymentGateway) (payment.Provider, error) {
	provider, ok := s.providers[gateway]
	if !ok || provider == nil {
		return nil, apperrors.Wrap(apperrors.ErrUnsupportedGateway, fmt.Errorf("gateway %q", gateway))
	}
	return provider, nil
}
