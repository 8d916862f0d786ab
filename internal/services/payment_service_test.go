package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
	"ridepool/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type paymentFixture struct {
	svc         PaymentService
	provider    *fakeProvider
	paymentRepo *fakePaymentRepo
	bookingRepo *fakeBookingRepo
	rideRepo    *fakeRideRepo
	ride        *models.Ride
	booking     *models.Booking
	passengerID primitive.ObjectID
	driverID    primitive.ObjectID
}

func newPaymentFixture(t *testing.T, bookingStatus models.BookingStatus) *paymentFixture {
	t.Helper()
	driverID := primitive.NewObjectID()
	passengerID := primitive.NewObjectID()
	ride := testRide(driverID, 3, true)

	now := time.Now()
	booking := &models.Booking{
		ID:          primitive.NewObjectID(),
		RideID:      ride.ID,
		PassengerID: passengerID,
		DriverID:    driverID,
		SeatsBooked: 2,
		Pricing: models.BookingPricing{
			PricePerSeat: 500,
			TotalAmount:  1000,
			ServiceFee:   50,
			FinalAmount:  1050,
		},
		Status:      bookingStatus,
		RequestedAt: now,
		ConfirmedAt: &now,
	}

	provider := &fakeProvider{}
	paymentRepo := newFakePaymentRepo()
	bookingRepo := newFakeBookingRepo(booking)
	rideRepo := newFakeRideRepo(ride)
	svc := NewPaymentService(paymentRepo, bookingRepo, rideRepo, map[models.PaymentGateway]payment.Provider{
		models.PaymentGatewayRazorpay: provider,
	}, nil, testLogger(t), nil)

	return &paymentFixture{
		svc:         svc,
		provider:    provider,
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		rideRepo:    rideRepo,
		ride:        ride,
		booking:     booking,
		passengerID: passengerID,
		driverID:    driverID,
	}
}

func (f *paymentFixture) initiate(t *testing.T) *PaymentOrder {
	t.Helper()
	order, err := f.svc.InitiatePayment(context.Background(), f.passengerID, &InitiatePaymentInput{
		BookingID: f.booking.ID,
		Gateway:   models.PaymentGatewayRazorpay,
	})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	return order
}

func TestInitiatePayment(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)

	order := f.initiate(t)
	if order.Amount != 1050 {
		t.Errorf("amount = %d, want the booking's final amount 1050", order.Amount)
	}
	if order.Currency != "USD" {
		t.Errorf("currency = %q, want USD", order.Currency)
	}
	if order.OrderID == "" {
		t.Error("order id missing")
	}
	if order.Payment.Status != models.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", order.Payment.Status)
	}
	if order.Payment.DriverID != f.driverID {
		t.Error("driver id not taken from the ride")
	}
}

func TestInitiatePaymentRejections(t *testing.T) {
	t.Run("unconfirmed booking", func(t *testing.T) {
		f := newPaymentFixture(t, models.BookingStatusRequested)
		_, err := f.svc.InitiatePayment(context.Background(), f.passengerID, &InitiatePaymentInput{
			BookingID: f.booking.ID,
			Gateway:   models.PaymentGatewayRazorpay,
		})
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Fatalf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("foreign booking", func(t *testing.T) {
		f := newPaymentFixture(t, models.BookingStatusConfirmed)
		_, err := f.svc.InitiatePayment(context.Background(), primitive.NewObjectID(), &InitiatePaymentInput{
			BookingID: f.booking.ID,
			Gateway:   models.PaymentGatewayRazorpay,
		})
		if !errors.Is(err, apperrors.ErrUnauthorizedActor) {
			t.Fatalf("error = %v, want ErrUnauthorizedActor", err)
		}
	})

	t.Run("unsupported gateway", func(t *testing.T) {
		f := newPaymentFixture(t, models.BookingStatusConfirmed)
		_, err := f.svc.InitiatePayment(context.Background(), f.passengerID, &InitiatePaymentInput{
			BookingID: f.booking.ID,
			Gateway:   models.PaymentGatewayStripe,
		})
		if !errors.Is(err, apperrors.ErrUnsupportedGateway) {
			t.Fatalf("error = %v, want ErrUnsupportedGateway", err)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		f := newPaymentFixture(t, models.BookingStatusConfirmed)
		order := f.initiate(t)
		if _, err := f.svc.VerifyPayment(context.Background(), f.passengerID, &VerifyPaymentInput{
			OrderID:          order.OrderID,
			GatewayPaymentID: "pay_1",
			Signature:        "sig",
		}); err != nil {
			t.Fatalf("VerifyPayment: %v", err)
		}
		_, err := f.svc.InitiatePayment(context.Background(), f.passengerID, &InitiatePaymentInput{
			BookingID: f.booking.ID,
			Gateway:   models.PaymentGatewayRazorpay,
		})
		if !errors.Is(err, apperrors.ErrPaymentAlreadyCompleted) {
			t.Fatalf("error = %v, want ErrPaymentAlreadyCompleted", err)
		}
	})
}

func TestVerifyPaymentCompletes(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	order := f.initiate(t)

	pay, err := f.svc.VerifyPayment(context.Background(), f.passengerID, &VerifyPaymentInput{
		OrderID:          order.OrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if pay.Status != models.PaymentStatusCompleted {
		t.Errorf("status = %s, want completed", pay.Status)
	}
	// 10% of 1050 = 105 platform fee, the rest is the driver's.
	if pay.PlatformFee != 105 {
		t.Errorf("platform fee = %d, want 105", pay.PlatformFee)
	}
	if pay.DriverEarnings != 945 {
		t.Errorf("driver earnings = %d, want 945", pay.DriverEarnings)
	}
	if pay.GatewayPaymentID != "pay_1" {
		t.Errorf("gateway payment id = %q", pay.GatewayPaymentID)
	}

	// A second verification is a no-op, not a second completion.
	again, err := f.svc.VerifyPayment(context.Background(), f.passengerID, &VerifyPaymentInput{
		OrderID:          order.OrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("repeat VerifyPayment: %v", err)
	}
	if again.Status != models.PaymentStatusCompleted {
		t.Errorf("repeat status = %s, want completed", again.Status)
	}
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	order := f.initiate(t)
	f.provider.signatureErr = errors.New("signature mismatch")

	_, err := f.svc.VerifyPayment(context.Background(), f.passengerID, &VerifyPaymentInput{
		OrderID:          order.OrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "forged",
	})
	if !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature", err)
	}

	stored, err := f.paymentRepo.GetByID(context.Background(), order.Payment.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.PaymentStatusFailed {
		t.Errorf("status = %s, want failed after rejected signature", stored.Status)
	}
	if stored.FailedAt == nil {
		t.Error("FailedAt not set")
	}
}

func TestHandleWebhookCompletion(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	order := f.initiate(t)

	f.provider.webhookEvent = &payment.WebhookEvent{
		EventID:   "evt_1",
		EventType: "payment.captured",
		OrderID:   order.OrderID,
		PaymentID: "pay_async",
	}
	if err := f.svc.HandleWebhook(context.Background(), models.PaymentGatewayRazorpay, []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	stored, _ := f.paymentRepo.GetByOrderID(context.Background(), order.OrderID)
	if stored.Status != models.PaymentStatusCompleted {
		t.Errorf("status = %s, want completed", stored.Status)
	}
	if stored.GatewayPaymentID != "pay_async" {
		t.Errorf("gateway payment id = %q, want pay_async", stored.GatewayPaymentID)
	}

	// Redelivery of the same event changes nothing.
	if err := f.svc.HandleWebhook(context.Background(), models.PaymentGatewayRazorpay, []byte("{}"), "sig"); err != nil {
		t.Fatalf("redelivered HandleWebhook: %v", err)
	}
	redone, _ := f.paymentRepo.GetByOrderID(context.Background(), order.OrderID)
	if redone.GatewayPaymentID != "pay_async" {
		t.Errorf("redelivery overwrote gateway payment id: %q", redone.GatewayPaymentID)
	}
}

func TestHandleWebhookFailure(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	order := f.initiate(t)

	f.provider.webhookEvent = &payment.WebhookEvent{
		EventType: "payment.failed",
		OrderID:   order.OrderID,
	}
	if err := f.svc.HandleWebhook(context.Background(), models.PaymentGatewayRazorpay, []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	stored, _ := f.paymentRepo.GetByOrderID(context.Background(), order.OrderID)
	if stored.Status != models.PaymentStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
}

func TestHandleWebhookUnknownOrderIgnored(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	f.provider.webhookEvent = &payment.WebhookEvent{
		EventType: "payment.captured",
		OrderID:   "order_unknown",
	}
	// Unknown orders are swallowed so the gateway stops redelivering.
	if err := f.svc.HandleWebhook(context.Background(), models.PaymentGatewayRazorpay, []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	f.provider.webhookErr = errors.New("hmac mismatch")
	err := f.svc.HandleWebhook(context.Background(), models.PaymentGatewayRazorpay, []byte("{}"), "forged")
	if !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("error = %v, want ErrInvalidSignature", err)
	}
}

func TestRefundForCancellationTiers(t *testing.T) {
	tests := []struct {
		name         string
		hoursBefore  float64
		cancelledBy  models.BookingStatus
		wantRefund   int64
		wantStatus   models.PaymentStatus
		wantProvider int
	}{
		{"full refund before 24h", 48, models.BookingStatusCancelledByPassenger, 1050, models.PaymentStatusRefunded, 1},
		{"half refund inside 24h", 10, models.BookingStatusCancelledByPassenger, 525, models.PaymentStatusPartiallyRefunded, 1},
		{"no refund inside 2h", 1, models.BookingStatusCancelledByPassenger, 0, models.PaymentStatusCompleted, 0},
		{"driver cancellation is always full", 1, models.BookingStatusCancelledByDriver, 1050, models.PaymentStatusRefunded, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t, models.BookingStatusConfirmed)
			order := f.initiate(t)
			if _, err := f.svc.VerifyPayment(context.Background(), f.passengerID, &VerifyPaymentInput{
				OrderID:          order.OrderID,
				GatewayPaymentID: "pay_1",
				Signature:        "sig",
			}); err != nil {
				t.Fatalf("VerifyPayment: %v", err)
			}

			cancelled := f.booking.Clone()
			cancelled.Status = tt.cancelledBy
			cancelled.CancellationReason = "test cancellation"
			if err := f.bookingRepo.Replace(context.Background(), cancelled); err != nil {
				t.Fatalf("Replace: %v", err)
			}

			departure := time.Now().Add(time.Duration(tt.hoursBefore * float64(time.Hour)))
			if err := f.svc.RefundForCancellation(context.Background(), cancelled, departure); err != nil {
				t.Fatalf("RefundForCancellation: %v", err)
			}

			if got := f.provider.refundCount(); got != tt.wantProvider {
				t.Errorf("gateway refund calls = %d, want %d", got, tt.wantProvider)
			}

			stored, _ := f.paymentRepo.GetByID(context.Background(), order.Payment.ID)
			if stored.Status != tt.wantStatus {
				t.Errorf("payment status = %s, want %s", stored.Status, tt.wantStatus)
			}
			if stored.RefundedAmount() != tt.wantRefund {
				t.Errorf("refunded = %d, want %d", stored.RefundedAmount(), tt.wantRefund)
			}

			// The booking's pricing snapshot records the outcome.
			b, _ := f.bookingRepo.GetByID(context.Background(), cancelled.ID)
			if b.Pricing.RefundAmount != tt.wantRefund {
				t.Errorf("booking refund amount = %d, want %d", b.Pricing.RefundAmount, tt.wantRefund)
			}
		})
	}
}

func TestRefundForCancellationWithoutPayment(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	cancelled := f.booking.Clone()
	cancelled.Status = models.BookingStatusCancelledByPassenger

	// Nothing was paid; the refund pass is a no-op, not an error.
	if err := f.svc.RefundForCancellation(context.Background(), cancelled, time.Now().Add(48*time.Hour)); err != nil {
		t.Fatalf("RefundForCancellation: %v", err)
	}
	if f.provider.refundCount() != 0 {
		t.Error("gateway refund issued with no completed payment")
	}
}

func TestGetPaymentAuthorization(t *testing.T) {
	f := newPaymentFixture(t, models.BookingStatusConfirmed)
	order := f.initiate(t)

	if _, err := f.svc.GetPayment(context.Background(), f.passengerID, order.Payment.ID); err != nil {
		t.Errorf("passenger read: %v", err)
	}
	if _, err := f.svc.GetPayment(context.Background(), f.driverID, order.Payment.ID); err != nil {
		t.Errorf("driver read: %v", err)
	}
	if _, err := f.svc.GetPayment(context.Background(), primitive.NewObjectID(), order.Payment.ID); !errors.Is(err, apperrors.ErrUnauthorizedActor) {
		t.Errorf("stranger read error = %v, want ErrUnauthorizedActor", err)
	}
}
