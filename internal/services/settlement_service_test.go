package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func completedPayment(driverID primitive.ObjectID, amount, earnings int64, completedAt time.Time) *models.Payment {
	return &models.Payment{
		ID:             primitive.NewObjectID(),
		BookingID:      primitive.NewObjectID(),
		PassengerID:    primitive.NewObjectID(),
		DriverID:       driverID,
		Gateway:        models.PaymentGatewayRazorpay,
		Amount:         amount,
		Currency:       "USD",
		PlatformFee:    amount - earnings,
		DriverEarnings: earnings,
		Status:         models.PaymentStatusCompleted,
		CompletedAt:    &completedAt,
		CreatedAt:      completedAt,
		UpdatedAt:      completedAt,
	}
}

func newSettlementFixture(t *testing.T, payments ...*models.Payment) (SettlementService, *fakePayoutRepo) {
	t.Helper()
	payoutRepo := newFakePayoutRepo()
	svc := NewSettlementService(newFakePaymentRepo(payments...), payoutRepo, nil, nil, testLogger(t), nil)
	return svc, payoutRepo
}

func TestDriverEarnings(t *testing.T) {
	driverID := primitive.NewObjectID()
	base := time.Now().Add(-10 * 24 * time.Hour)

	refunded := completedPayment(driverID, 1000, 900, base.Add(24*time.Hour))
	refunded.Status = models.PaymentStatusPartiallyRefunded
	refunded.Refunds = []models.RefundRecord{{RefundID: "rfnd_1", Amount: 500, Percentage: 50, Type: "partial"}}

	payments := []*models.Payment{
		completedPayment(driverID, 1000, 900, base),
		refunded,
		// Outside the queried window.
		completedPayment(driverID, 2000, 1800, base.Add(30*24*time.Hour)),
		// Another driver entirely.
		completedPayment(primitive.NewObjectID(), 5000, 4500, base),
	}

	svc, _ := newSettlementFixture(t, payments...)
	summary, err := svc.DriverEarnings(context.Background(), driverID, base.Add(-time.Hour), base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("DriverEarnings: %v", err)
	}

	if summary.PaymentCount != 2 {
		t.Errorf("payment count = %d, want 2", summary.PaymentCount)
	}
	// Gross: 1000 + (1000 - 500 refunded) = 1500.
	if summary.GrossAmount != 1500 {
		t.Errorf("gross = %d, want 1500", summary.GrossAmount)
	}
	// Net: 900 + (900 - 500) = 1300.
	if summary.NetEarnings != 1300 {
		t.Errorf("net = %d, want 1300", summary.NetEarnings)
	}
	if summary.PlatformFees != 200 {
		t.Errorf("platform fees = %d, want 200", summary.PlatformFees)
	}
}

func TestDriverEarningsRefundExceedsShare(t *testing.T) {
	driverID := primitive.NewObjectID()
	p := completedPayment(driverID, 1000, 900, time.Now().Add(-time.Hour))
	p.Status = models.PaymentStatusRefunded
	p.Refunds = []models.RefundRecord{{RefundID: "rfnd_full", Amount: 1000, Percentage: 100, Type: "full"}}

	svc, _ := newSettlementFixture(t, p)
	summary, err := svc.DriverEarnings(context.Background(), driverID, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("DriverEarnings: %v", err)
	}
	// A fully refunded payment contributes nothing, never a negative share.
	if summary.NetEarnings != 0 {
		t.Errorf("net = %d, want 0", summary.NetEarnings)
	}
	if summary.GrossAmount != 0 {
		t.Errorf("gross = %d, want 0", summary.GrossAmount)
	}
}

func TestAvailableBalanceExcludesSettled(t *testing.T) {
	driverID := primitive.NewObjectID()
	base := time.Now().Add(-72 * time.Hour)

	p1 := completedPayment(driverID, 1000, 900, base)
	p2 := completedPayment(driverID, 500, 450, base.Add(time.Hour))
	svc, payoutRepo := newSettlementFixture(t, p1, p2)

	if err := payoutRepo.Create(context.Background(), &models.Payout{
		ID:             primitive.NewObjectID(),
		DriverID:       driverID,
		Amount:         900,
		Status:         models.PayoutStatusCompleted,
		TransactionIDs: []primitive.ObjectID{p1.ID},
	}); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	summary, err := svc.AvailableBalance(context.Background(), driverID)
	if err != nil {
		t.Fatalf("AvailableBalance: %v", err)
	}
	if summary.TotalEarnings != 1350 {
		t.Errorf("total = %d, want 1350", summary.TotalEarnings)
	}
	if summary.SettledAmount != 900 {
		t.Errorf("settled = %d, want 900", summary.SettledAmount)
	}
	if summary.AvailableBalance != 450 {
		t.Errorf("available = %d, want 450", summary.AvailableBalance)
	}
}

func TestRequestPayoutSelectsOldestFirst(t *testing.T) {
	driverID := primitive.NewObjectID()
	base := time.Now().Add(-96 * time.Hour)

	oldest := completedPayment(driverID, 500, 450, base)
	middle := completedPayment(driverID, 500, 450, base.Add(24*time.Hour))
	newest := completedPayment(driverID, 500, 450, base.Add(48*time.Hour))
	svc, _ := newSettlementFixture(t, newest, oldest, middle)

	payout, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{
		Amount: 600,
		Method: models.PayoutMethodUPI,
	})
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}

	// 600 is covered by the two oldest shares (450 + 450); the newest
	// payment stays unsettled.
	if len(payout.TransactionIDs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(payout.TransactionIDs))
	}
	if payout.TransactionIDs[0] != oldest.ID || payout.TransactionIDs[1] != middle.ID {
		t.Errorf("selection order = %v, want oldest then middle", payout.TransactionIDs)
	}
	if payout.Status != models.PayoutStatusPending {
		t.Errorf("status = %s, want pending", payout.Status)
	}
	// 2% of 600 = 12.
	if payout.ProcessingFee != 12 || payout.NetAmount != 588 {
		t.Errorf("fee = %d net = %d, want 12 and 588", payout.ProcessingFee, payout.NetAmount)
	}
}

func TestRequestPayoutRejections(t *testing.T) {
	driverID := primitive.NewObjectID()
	p := completedPayment(driverID, 500, 450, time.Now().Add(-time.Hour))
	svc, _ := newSettlementFixture(t, p)

	tests := []struct {
		name    string
		amount  int64
		wantErr error
	}{
		{"zero amount", 0, apperrors.ErrInvalidAmount},
		{"negative amount", -50, apperrors.ErrInvalidAmount},
		{"below minimum", 50, apperrors.ErrBelowMinimumPayout},
		{"exceeds balance", 5000, apperrors.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{
				Amount: tt.amount,
				Method: models.PayoutMethodUPI,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestPayoutNeverDoubleSpends(t *testing.T) {
	driverID := primitive.NewObjectID()
	p := completedPayment(driverID, 500, 450, time.Now().Add(-time.Hour))
	svc, _ := newSettlementFixture(t, p)

	if _, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{Amount: 400, Method: models.PayoutMethodUPI}); err != nil {
		t.Fatalf("first payout: %v", err)
	}
	// The payment is committed to the pending payout even before it is
	// processed, so a second request has nothing left to draw on.
	_, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{Amount: 400, Method: models.PayoutMethodUPI})
	if !errors.Is(err, apperrors.ErrInsufficientBalance) {
		t.Fatalf("second payout error = %v, want ErrInsufficientBalance", err)
	}
}

func TestProcessPayoutLifecycle(t *testing.T) {
	driverID := primitive.NewObjectID()
	p := completedPayment(driverID, 500, 450, time.Now().Add(-time.Hour))
	svc, _ := newSettlementFixture(t, p)

	payout, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{Amount: 400, Method: models.PayoutMethodUPI})
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}

	done, err := svc.ProcessPayout(context.Background(), payout.ID, true, "")
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}
	if done.Status != models.PayoutStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.ProcessedAt == nil || done.CompletedAt == nil {
		t.Error("lifecycle timestamps not set")
	}

	if _, err := svc.ProcessPayout(context.Background(), payout.ID, true, ""); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("reprocess error = %v, want ErrInvalidTransition", err)
	}
}

func TestFailedPayoutReleasesEarnings(t *testing.T) {
	driverID := primitive.NewObjectID()
	p := completedPayment(driverID, 500, 450, time.Now().Add(-time.Hour))
	svc, _ := newSettlementFixture(t, p)

	payout, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{Amount: 400, Method: models.PayoutMethodUPI})
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}

	failed, err := svc.ProcessPayout(context.Background(), payout.ID, false, "bank rejected the transfer")
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}
	if failed.Status != models.PayoutStatusFailed {
		t.Errorf("status = %s, want failed", failed.Status)
	}
	if failed.FailureReason != "bank rejected the transfer" {
		t.Errorf("failure reason = %q", failed.FailureReason)
	}

	// The failed payout releases its payments back into the balance.
	summary, err := svc.AvailableBalance(context.Background(), driverID)
	if err != nil {
		t.Fatalf("AvailableBalance: %v", err)
	}
	if summary.AvailableBalance != 450 {
		t.Errorf("available = %d, want 450 after release", summary.AvailableBalance)
	}

	if _, err := svc.RequestPayout(context.Background(), driverID, &PayoutRequestInput{Amount: 400, Method: models.PayoutMethodUPI}); err != nil {
		t.Errorf("payout after failure: %v", err)
	}
}
