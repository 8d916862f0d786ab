package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"
	"ridepool/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errTransient stands in for a transaction abort caused by a concurrent
// writer. The fake runner reports it as retryable.
var errTransient = errors.New("transient transaction conflict")

// fakeRunner executes the transactional closure directly. A mutex serializes
// runs, which mirrors what document-level write conflicts give the winning
// transaction. conflictsLeft injects transient aborts before fn runs.
type fakeRunner struct {
	mu            sync.Mutex
	conflictsLeft int
	runs          int
}

func (r *fakeRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return errTransient
	}
	return fn(ctx)
}

func (r *fakeRunner) IsTransientConflict(err error) bool {
	return errors.Is(err, errTransient)
}

type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newFakeRideRepo(rides ...*models.Ride) *fakeRideRepo {
	repo := &fakeRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
	for _, r := range rides {
		repo.rides[r.ID] = r.Clone()
	}
	return repo
}

func (r *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	r.rides[ride.ID] = ride.Clone()
	return nil
}

func (r *fakeRideRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, apperrors.ErrRideNotFound
	}
	return ride.Clone(), nil
}

func (r *fakeRideRepo) Replace(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rides[ride.ID]; !ok {
		return apperrors.ErrRideNotFound
	}
	r.rides[ride.ID] = ride.Clone()
	return nil
}

func (r *fakeRideRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeRideRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.DriverID == driverID {
			out = append(out, ride.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRideRepo) GetByStatus(ctx context.Context, status models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ride
	for _, ride := range r.rides {
		if ride.Status == status {
			out = append(out, ride.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRideRepo) GetUpcoming(ctx context.Context, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.GetByStatus(ctx, models.RideStatusPublished, params)
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookingRepo(bookings ...*models.Booking) *fakeBookingRepo {
	repo := &fakeBookingRepo{bookings: make(map[primitive.ObjectID]*models.Booking)}
	for _, b := range bookings {
		repo.bookings[b.ID] = b.Clone()
	}
	return repo
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.ID]; ok {
		return errors.New("duplicate key: _id")
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *fakeBookingRepo) Replace(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.ID]; !ok {
		return apperrors.ErrBookingNotFound
	}
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *fakeBookingRepo) GetActiveByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.RideID == rideID && b.PassengerID == passengerID && b.IsActive() {
			return b.Clone(), nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (r *fakeBookingRepo) GetByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.RideID == rideID {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetActiveByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.RideID == rideID && b.IsActive() {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.PassengerID == passengerID && (status == "" || b.Status == status) {
			out = append(out, b.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID, status models.BookingStatus, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.DriverID == driverID && (status == "" || b.Status == status) {
			out = append(out, b.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*models.Payment
}

func newFakePaymentRepo(payments ...*models.Payment) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
	for _, p := range payments {
		cp := *p
		repo.payments[p.ID] = &cp
	}
	return repo
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrPaymentNotFound
}

func (r *fakePaymentRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return apperrors.ErrPaymentNotFound
	}
	for k, v := range updates {
		switch k {
		case "status":
			p.Status = v.(models.PaymentStatus)
		case "gateway_payment_id":
			p.GatewayPaymentID = v.(string)
		case "platform_fee":
			p.PlatformFee = v.(int64)
		case "driver_earnings":
			p.DriverEarnings = v.(int64)
		case "failure_reason":
			p.FailureReason = v.(string)
		case "completed_at":
			t := v.(time.Time)
			p.CompletedAt = &t
		case "failed_at":
			t := v.(time.Time)
			p.FailedAt = &t
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (r *fakePaymentRepo) GetByBooking(ctx context.Context, bookingID primitive.ObjectID) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) GetCompletedByBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.BookingID == bookingID && (p.Status == models.PaymentStatusCompleted || p.Status == models.PaymentStatusRefunded || p.Status == models.PaymentStatusPartiallyRefunded) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrPaymentNotFound
}

func (r *fakePaymentRepo) GetCompletedByDriver(ctx context.Context, driverID primitive.ObjectID, from, to time.Time) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.DriverID != driverID || p.CompletedAt == nil {
			continue
		}
		switch p.Status {
		case models.PaymentStatusCompleted, models.PaymentStatusRefunded, models.PaymentStatusPartiallyRefunded:
		default:
			continue
		}
		if !from.IsZero() && p.CompletedAt.Before(from) {
			continue
		}
		if !to.IsZero() && p.CompletedAt.After(to) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	return out, nil
}

func (r *fakePaymentRepo) GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.PassengerID == passengerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) AddRefund(ctx context.Context, id primitive.ObjectID, refund models.RefundRecord, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return apperrors.ErrPaymentNotFound
	}
	p.Refunds = append(p.Refunds, refund)
	p.Status = status
	return nil
}

type fakePayoutRepo struct {
	mu      sync.Mutex
	payouts map[primitive.ObjectID]*models.Payout
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: make(map[primitive.ObjectID]*models.Payout)}
}

func (r *fakePayoutRepo) Create(ctx context.Context, p *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payouts[p.ID] = &cp
	return nil
}

func (r *fakePayoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, apperrors.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePayoutRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return apperrors.ErrPayoutNotFound
	}
	for k, v := range updates {
		switch k {
		case "status":
			p.Status = v.(models.PayoutStatus)
		case "failure_reason":
			p.FailureReason = v.(string)
		case "processed_at":
			t := v.(time.Time)
			p.ProcessedAt = &t
		case "completed_at":
			t := v.(time.Time)
			p.CompletedAt = &t
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (r *fakePayoutRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payout, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payout
	for _, p := range r.payouts {
		if p.DriverID == driverID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePayoutRepo) GetOutstandingByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payout
	for _, p := range r.payouts {
		if p.DriverID == driverID && p.IsOutstanding() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) GetSettledTransactionIDs(ctx context.Context, driverID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []primitive.ObjectID
	for _, p := range r.payouts {
		if p.DriverID != driverID || p.Status == models.PayoutStatusFailed {
			continue
		}
		out = append(out, p.TransactionIDs...)
	}
	return out, nil
}

// fakeProvider is a scriptable gateway. Zero value succeeds everything.
type fakeProvider struct {
	mu           sync.Mutex
	orderErr     error
	signatureErr error
	refundErr    error
	webhookErr   error
	webhookEvent *payment.WebhookEvent
	orders       int
	refunds      []*payment.RefundRequest
}

func (p *fakeProvider) CreateOrder(ctx context.Context, req *payment.OrderRequest) (*payment.OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orderErr != nil {
		return nil, p.orderErr
	}
	p.orders++
	return &payment.OrderResponse{
		OrderID:  "order_" + req.Receipt,
		Status:   "created",
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

func (p *fakeProvider) VerifySignature(orderID, paymentID, signature string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signatureErr
}

func (p *fakeProvider) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.refunds = append(p.refunds, req)
	return &payment.RefundResponse{RefundID: "rfnd_test", Status: "processed", Amount: req.Amount}, nil
}

func (p *fakeProvider) ValidateWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.webhookErr != nil {
		return nil, p.webhookErr
	}
	if p.webhookEvent == nil {
		return nil, errors.New("no webhook scripted")
	}
	return p.webhookEvent, nil
}

func (p *fakeProvider) refundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refunds)
}

// fakeRefunder records cancellation refund requests handed off by the
// coordinator after commit.
type fakeRefunder struct {
	mu    sync.Mutex
	calls []primitive.ObjectID
	done  chan struct{}
}

func newFakeRefunder() *fakeRefunder {
	return &fakeRefunder{done: make(chan struct{}, 16)}
}

func (f *fakeRefunder) RefundForCancellation(ctx context.Context, booking *models.Booking, departure time.Time) error {
	f.mu.Lock()
	f.calls = append(f.calls, booking.ID)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeRefunder) wait(t *testing.T) primitive.ObjectID {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("refund handoff never happened")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return log
}
