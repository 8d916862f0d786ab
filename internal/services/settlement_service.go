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

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementService aggregates a driver's completed payments into earnings
// and turns them into payouts. Earnings are always re-derived from payment
// records; there is no stored balance to drift.
type SettlementService interface {
	DriverEarnings(ctx context.Context, driverID primitive.ObjectID, from, to time.Time) (*EarningsSummary, error)
	AvailableBalance(ctx context.Context, driverID primitive.ObjectID) (*BalanceSummary, error)
	RequestPayout(ctx context.Context, driverID primitive.ObjectID, input *PayoutRequestInput) (*models.Payout, error)
	ProcessPayout(ctx context.Context, payoutID primitive.ObjectID, succeed bool, failureReason string) (*models.Payout, error)
	ListPayouts(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payout, int64, error)
}

type EarningsSummary struct {
	DriverID     primitive.ObjectID `json:"driver_id"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	GrossAmount  int64              `json:"gross_amount"`
	PlatformFees int64              `json:"platform_fees"`
	NetEarnings  int64              `json:"net_earnings"`
	PaymentCount int                `json:"payment_count"`
}

type BalanceSummary struct {
	DriverID         primitive.ObjectID `json:"driver_id"`
	TotalEarnings    int64              `json:"total_earnings"`
	SettledAmount    int64              `json:"settled_amount"`
	AvailableBalance int64              `json:"available_balance"`
}

type PayoutRequestInput struct {
	Amount      int64
	Method      models.PayoutMethod
	BankDetails *models.BankDetails
}

type settlementService struct {
	paymentRepo interfaces.PaymentRepository
	payoutRepo  interfaces.PayoutRepository
	cache       CacheService
	notifier    NotificationService
	logger      *logger.Logger
	audit       *logger.AuditLogger
	now         func() time.Time
}

func NewSettlementService(
	paymentRepo interfaces.PaymentRepository,
	payoutRepo interfaces.PayoutRepository,
	cacheService CacheService,
	notifier NotificationService,
	log *logger.Logger,
	audit *logger.AuditLogger,
) SettlementService {
	return &settlementService{
		paymentRepo: paymentRepo,
		payoutRepo:  payoutRepo,
		cache:       cacheService,
		notifier:    notifier,
		logger:      log,
		audit:       audit,
		now:         time.Now,
	}
}

func (s *settlementService) DriverEarnings(ctx context.Context, driverID primitive.ObjectID, from, to time.Time) (*EarningsSummary, error) {
	payments, err := s.paymentRepo.GetCompletedByDriver(ctx, driverID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &EarningsSummary{
		DriverID: driverID,
		From:     from,
		To:       to,
	}
	for _, p := range payments {
		// Refunded amounts reduce the gross before the driver's share.
		net := p.Amount - p.RefundedAmount()
		if net < 0 {
			net = 0
		}
		summary.GrossAmount += net
		summary.PlatformFees += p.PlatformFee
		summary.NetEarnings += driverShare(p)
		summary.PaymentCount++
	}
	return summary, nil
}

func (s *settlementService) AvailableBalance(ctx context.Context, driverID primitive.ObjectID) (*BalanceSummary, error) {
	payments, err := s.paymentRepo.GetCompletedByDriver(ctx, driverID, time.Time{}, s.now())
	if err != nil {
		return nil, err
	}
	settled, err := s.payoutRepo.GetSettledTransactionIDs(ctx, driverID)
	if err != nil {
		return nil, err
	}

	settledSet := make(map[primitive.ObjectID]struct{}, len(settled))
	for _, id := range settled {
		settledSet[id] = struct{}{}
	}

	summary := &BalanceSummary{DriverID: driverID}
	for _, p := range payments {
		share := driverShare(p)
		summary.TotalEarnings += share
		if _, ok := settledSet[p.ID]; ok {
			summary.SettledAmount += share
		}
	}

	summary.AvailableBalance = summary.TotalEarnings - summary.SettledAmount
	if summary.AvailableBalance < 0 {
		summary.AvailableBalance = 0
	}
	return summary, nil
}

func (s *settlementService) RequestPayout(ctx context.Context, driverID primitive.ObjectID, input *PayoutRequestInput) (*models.Payout, error) {
	if input.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if input.Amount < pricing.MinimumPayout {
		return nil, apperrors.ErrBelowMinimumPayout
	}

	payments, err := s.paymentRepo.GetCompletedByDriver(ctx, driverID, time.Time{}, s.now())
	if err != nil {
		return nil, err
	}
	settled, err := s.payoutRepo.GetSettledTransactionIDs(ctx, driverID)
	if err != nil {
		return nil, err
	}
	settledSet := make(map[primitive.ObjectID]struct{}, len(settled))
	for _, id := range settled {
		settledSet[id] = struct{}{}
	}

	// Oldest unsettled payments are consumed first until the requested
	// amount is covered.
	var covered int64
	var txnIDs []primitive.ObjectID
	for _, p := range payments {
		if _, ok := settledSet[p.ID]; ok {
			continue
		}
		share := driverShare(p)
		if share <= 0 {
			continue
		}
		txnIDs = append(txnIDs, p.ID)
		covered += share
		if covered >= input.Amount {
			break
		}
	}
	if covered < input.Amount {
		return nil, apperrors.ErrInsufficientBalance
	}

	fee := pricing.PayoutProcessingFee(input.Amount)
	now := s.now()
	payout := &models.Payout{
		ID:             primitive.NewObjectID(),
		DriverID:       driverID,
		Amount:         input.Amount,
		ProcessingFee:  fee,
		NetAmount:      input.Amount - fee,
		Currency:       utils.DefaultCurrency,
		Method:         input.Method,
		BankDetails:    input.BankDetails,
		TransactionIDs: txnIDs,
		Status:         models.PayoutStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		return nil, err
	}

	s.invalidateBalance(ctx, driverID)
	s.logger.LogPayoutEvent(payout.ID, utils.EventPayoutRequested, payout.Amount)
	if s.audit != nil {
		s.audit.LogPayoutAudit(payout.ID, driverID, payout.Amount, string(payout.Status))
	}
	if s.notifier != nil {
		s.notifier.NotifyPayoutEvent(payout, utils.EventPayoutRequested)
	}
	return payout, nil
}

// ProcessPayout advances a payout through pending, processing, and a terminal
// completed or failed. A failed payout releases its transactions back into
// the available balance.
func (s *settlementService) ProcessPayout(ctx context.Context, payoutID primitive.ObjectID, succeed bool, failureReason string) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending && payout.Status != models.PayoutStatusProcessing {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTransition, fmt.Errorf("payout %s is already %s", payout.ID.Hex(), payout.Status))
	}

	now := s.now()
	if payout.Status == models.PayoutStatusPending {
		if err := s.payoutRepo.Update(ctx, payout.ID, map[string]interface{}{
			"status":       models.PayoutStatusProcessing,
			"processed_at": now,
			"updated_at":   now,
		}); err != nil {
			return nil, err
		}
		payout.Status = models.PayoutStatusProcessing
		payout.ProcessedAt = &now
	}

	updates := map[string]interface{}{"updated_at": now}
	if succeed {
		updates["status"] = models.PayoutStatusCompleted
		updates["completed_at"] = now
		payout.Status = models.PayoutStatusCompleted
		payout.CompletedAt = &now
	} else {
		updates["status"] = models.PayoutStatusFailed
		updates["failure_reason"] = failureReason
		payout.Status = models.PayoutStatusFailed
		payout.FailureReason = failureReason
	}
	if err := s.payoutRepo.Update(ctx, payout.ID, updates); err != nil {
		return nil, err
	}
	payout.UpdatedAt = now

	s.invalidateBalance(ctx, payout.DriverID)
	s.logger.LogPayoutEvent(payout.ID, utils.EventPayoutProcessed, payout.Amount)
	if s.audit != nil {
		s.audit.LogPayoutAudit(payout.ID, payout.DriverID, payout.Amount, string(payout.Status))
	}
	if s.notifier != nil {
		s.notifier.NotifyPayoutEvent(payout, utils.EventPayoutProcessed)
	}
	return payout, nil
}

func (s *settlementService) ListPayouts(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payout, int64, error) {
	return s.payoutRepo.GetByDriver(ctx, driverID, params)
}

func (s *settlementService) invalidateBalance(ctx context.Context, driverID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, utils.CacheBalancePrefix+driverID.Hex()); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WithUserID(driverID).WithError(err).Debug("Balance cache invalidation failed")
	}
}

// driverShare is the driver's net from one completed payment after platform
// fee and any refunds issued against it.
func driverShare(p *models.Payment) int64 {
	share := p.DriverEarnings - p.RefundedAmount()
	if share < 0 {
		return 0
	}
	return share
}
