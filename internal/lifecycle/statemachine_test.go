package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
)

var allStatuses = []models.BookingStatus{
	models.BookingStatusRequested,
	models.BookingStatusConfirmed,
	models.BookingStatusCompleted,
	models.BookingStatusCancelledByDriver,
	models.BookingStatusCancelledByPassenger,
}

func TestTransitionMatrix(t *testing.T) {
	allowed := map[models.BookingStatus]map[models.BookingStatus]bool{
		models.BookingStatusRequested: {
			models.BookingStatusConfirmed:            true,
			models.BookingStatusCancelledByDriver:    true,
			models.BookingStatusCancelledByPassenger: true,
		},
		models.BookingStatusConfirmed: {
			models.BookingStatusCompleted:            true,
			models.BookingStatusCancelledByDriver:    true,
			models.BookingStatusCancelledByPassenger: true,
		},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestApplyRejectsInvalidAndLeavesBookingUnchanged(t *testing.T) {
	booking := &models.Booking{Status: models.BookingStatusCompleted}
	before := *booking

	out, err := Apply(booking, models.BookingStatusConfirmed, time.Now(), "")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	if out != nil {
		t.Error("Apply returned a snapshot on failure")
	}
	if !reflect.DeepEqual(*booking, before) {
		t.Error("Apply mutated the booking on failure")
	}
}

func TestApplySetsExactlyOneTimestamp(t *testing.T) {
	at := time.Now()

	tests := []struct {
		name   string
		from   models.BookingStatus
		target models.BookingStatus
		check  func(t *testing.T, b *models.Booking)
	}{
		{"confirm", models.BookingStatusRequested, models.BookingStatusConfirmed, func(t *testing.T, b *models.Booking) {
			if b.ConfirmedAt == nil || !b.ConfirmedAt.Equal(at) {
				t.Error("ConfirmedAt not set")
			}
			if b.CompletedAt != nil || b.CancelledAt != nil {
				t.Error("unexpected extra timestamp set")
			}
		}},
		{"complete", models.BookingStatusConfirmed, models.BookingStatusCompleted, func(t *testing.T, b *models.Booking) {
			if b.CompletedAt == nil {
				t.Error("CompletedAt not set")
			}
			if b.ConfirmedAt != nil || b.CancelledAt != nil {
				t.Error("unexpected extra timestamp set")
			}
		}},
		{"driver cancel", models.BookingStatusConfirmed, models.BookingStatusCancelledByDriver, func(t *testing.T, b *models.Booking) {
			if b.CancelledAt == nil {
				t.Error("CancelledAt not set")
			}
			if b.CancellationReason != "no show" {
				t.Errorf("reason = %q, want recorded", b.CancellationReason)
			}
		}},
		{"passenger cancel", models.BookingStatusRequested, models.BookingStatusCancelledByPassenger, func(t *testing.T, b *models.Booking) {
			if b.CancelledAt == nil {
				t.Error("CancelledAt not set")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := &models.Booking{Status: tt.from}
			out, err := Apply(booking, tt.target, at, "no show")
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if out.Status != tt.target {
				t.Errorf("status = %s, want %s", out.Status, tt.target)
			}
			if booking.Status != tt.from {
				t.Error("Apply mutated the input snapshot")
			}
			tt.check(t, out)
		})
	}
}

func TestAllowedActor(t *testing.T) {
	driverTargets := []models.BookingStatus{
		models.BookingStatusConfirmed,
		models.BookingStatusCompleted,
		models.BookingStatusCancelledByDriver,
	}
	for _, target := range driverTargets {
		if actor, ok := AllowedActor(target); !ok || actor != ActorDriver {
			t.Errorf("AllowedActor(%s) = %v, want driver", target, actor)
		}
	}
	if actor, ok := AllowedActor(models.BookingStatusCancelledByPassenger); !ok || actor != ActorPassenger {
		t.Errorf("AllowedActor(cancelled_by_passenger) = %v, want passenger", actor)
	}
	if _, ok := AllowedActor(models.BookingStatusRequested); ok {
		t.Error("requested is not a transition target and should have no actor")
	}
}

func TestInitialStatus(t *testing.T) {
	if InitialStatus(true) != models.BookingStatusConfirmed {
		t.Error("instant booking should start confirmed")
	}
	if InitialStatus(false) != models.BookingStatusRequested {
		t.Error("default policy should start requested")
	}
}
