package services

import (
	"context"
	"fmt"
	"time"

	"ridepool/internal/models"
	"ridepool/internal/utils"
	"ridepool/pkg/cache"
	"ridepool/pkg/logger"
	"ridepool/pkg/push"
	"ridepool/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService fans booking and money events out to the parties
// involved. All methods are fire-and-forget: delivery failures are logged,
// never returned, and never affect the committed state that triggered them.
type NotificationService interface {
	NotifyBookingEvent(booking *models.Booking, ride *models.Ride, event string)
	NotifyPaymentEvent(payment *models.Payment, event string)
	NotifyPayoutEvent(payout *models.Payout, event string)
}

// contactInfo is published to Redis by the identity service; this engine
// only reads it.
type contactInfo struct {
	Phone        string   `json:"phone"`
	DeviceTokens []string `json:"device_tokens"`
	Platform     string   `json:"platform"`
}

type notificationService struct {
	pushProvider push.Provider
	smsProvider  sms.Provider
	cache        *cache.RedisCache
	logger       *logger.Logger
	timeout      time.Duration
}

func NewNotificationService(
	pushProvider push.Provider,
	smsProvider sms.Provider,
	redisCache *cache.RedisCache,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		pushProvider: pushProvider,
		smsProvider:  smsProvider,
		cache:        redisCache,
		logger:       log,
		timeout:      10 * time.Second,
	}
}

func (s *notificationService) NotifyBookingEvent(booking *models.Booking, ride *models.Ride, event string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		title, body := bookingMessage(booking, ride, event)
		data := map[string]string{
			"event":      event,
			"booking_id": booking.ID.Hex(),
			"ride_id":    booking.RideID.Hex(),
		}

		// The driver and the passenger both see booking transitions.
		s.deliver(ctx, booking.PassengerID, title, body, data)
		s.deliver(ctx, booking.DriverID, title, body, data)

		s.publishEvent(ctx, event, map[string]interface{}{
			"booking_id":   booking.ID.Hex(),
			"ride_id":      booking.RideID.Hex(),
			"passenger_id": booking.PassengerID.Hex(),
			"driver_id":    booking.DriverID.Hex(),
			"status":       string(booking.Status),
			"seats":        booking.SeatsBooked,
		})
	}()
}

func (s *notificationService) NotifyPaymentEvent(payment *models.Payment, event string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		title, body := paymentMessage(payment, event)
		data := map[string]string{
			"event":      event,
			"payment_id": payment.ID.Hex(),
			"booking_id": payment.BookingID.Hex(),
		}

		s.deliver(ctx, payment.PassengerID, title, body, data)

		s.publishEvent(ctx, event, map[string]interface{}{
			"payment_id": payment.ID.Hex(),
			"booking_id": payment.BookingID.Hex(),
			"amount":     payment.Amount,
			"status":     string(payment.Status),
		})
	}()
}

func (s *notificationService) NotifyPayoutEvent(payout *models.Payout, event string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		title, body := payoutMessage(payout, event)
		data := map[string]string{
			"event":     event,
			"payout_id": payout.ID.Hex(),
		}

		s.deliver(ctx, payout.DriverID, title, body, data)

		s.publishEvent(ctx, event, map[string]interface{}{
			"payout_id": payout.ID.Hex(),
			"driver_id": payout.DriverID.Hex(),
			"amount":    payout.Amount,
			"status":    string(payout.Status),
		})
	}()
}

// deliver pushes to every registered device and falls back to SMS when the
// user has no device tokens.
func (s *notificationService) deliver(ctx context.Context, userID primitive.ObjectID, title, body string, data map[string]string) {
	contact, err := s.lookupContact(ctx, userID)
	if err != nil {
		s.logger.WithUserID(userID).WithError(err).Debug("No contact info for notification")
		return
	}

	if s.pushProvider != nil && len(contact.DeviceTokens) > 0 {
		notifications := make([]*push.Notification, 0, len(contact.DeviceTokens))
		for _, token := range contact.DeviceTokens {
			notifications = append(notifications, &push.Notification{
				Token:    token,
				Title:    title,
				Body:     body,
				Data:     data,
				Priority: "high",
			})
		}
		if _, err := s.pushProvider.SendBulk(ctx, notifications); err != nil {
			s.logger.WithUserID(userID).WithError(err).Warn("Push notification failed")
		}
		return
	}

	if s.smsProvider != nil && contact.Phone != "" {
		if _, err := s.smsProvider.Send(ctx, &sms.Message{
			To:   contact.Phone,
			Body: fmt.Sprintf("%s: %s", title, body),
		}); err != nil {
			s.logger.WithUserID(userID).WithError(err).Warn("SMS notification failed")
		}
	}
}

func (s *notificationService) lookupContact(ctx context.Context, userID primitive.ObjectID) (*contactInfo, error) {
	var contact contactInfo
	key := utils.CacheKeyContactPrefix + userID.Hex()
	if err := s.cache.Get(ctx, key, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *notificationService) publishEvent(ctx context.Context, event string, payload map[string]interface{}) {
	payload["event"] = event
	payload["occurred_at"] = time.Now().UTC()
	if err := s.cache.Publish(ctx, utils.EventChannel, payload); err != nil {
		s.logger.WithError(err).Debug("Event publish failed")
	}
}

func bookingMessage(booking *models.Booking, ride *models.Ride, event string) (string, string) {
	route := fmt.Sprintf("%s to %s", ride.Origin, ride.Destination)

	switch event {
	case utils.EventBookingRequested:
		return "Booking requested", fmt.Sprintf("%d seat(s) requested on %s", booking.SeatsBooked, route)
	case utils.EventBookingConfirmed:
		return "Booking confirmed", fmt.Sprintf("Your %d seat(s) on %s are confirmed", booking.SeatsBooked, route)
	case utils.EventBookingCompleted:
		return "Ride completed", fmt.Sprintf("Your ride %s is complete", route)
	case utils.EventBookingCancelled:
		return "Booking cancelled", fmt.Sprintf("Booking on %s was cancelled", route)
	default:
		return "Booking update", fmt.Sprintf("Booking on %s is now %s", route, booking.Status)
	}
}

func paymentMessage(payment *models.Payment, event string) (string, string) {
	switch event {
	case utils.EventPaymentCompleted:
		return "Payment received", fmt.Sprintf("Payment of %s confirmed", utils.FormatAmount(payment.Amount, payment.Currency))
	case utils.EventPaymentRefunded:
		return "Refund issued", fmt.Sprintf("A refund of %s is on its way", utils.FormatAmount(payment.RefundedAmount(), payment.Currency))
	default:
		return "Payment update", fmt.Sprintf("Payment is now %s", payment.Status)
	}
}

func payoutMessage(payout *models.Payout, event string) (string, string) {
	switch payout.Status {
	case models.PayoutStatusCompleted:
		return "Payout sent", fmt.Sprintf("Payout of %s has been transferred", utils.FormatAmount(payout.NetAmount, payout.Currency))
	case models.PayoutStatusFailed:
		return "Payout failed", "Your payout could not be processed, support has been notified"
	default:
		return "Payout update", fmt.Sprintf("Payout of %s is %s", utils.FormatAmount(payout.NetAmount, payout.Currency), payout.Status)
	}
}
