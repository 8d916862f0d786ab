package inventory

import (
	"errors"
	"testing"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRide(total, available int) *models.Ride {
	return &models.Ride{
		ID:             primitive.NewObjectID(),
		DriverID:       primitive.NewObjectID(),
		TotalSeats:     total,
		AvailableSeats: available,
		Passengers:     map[string]models.RidePassenger{},
		Status:         models.RideStatusPublished,
	}
}

func TestReserveRequestedDoesNotConsumeSeats(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()

	out, err := Reserve(ride, Reservation{PassengerID: pid, Seats: 2, BookingTime: time.Now()}, false)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if out.AvailableSeats != 4 {
		t.Errorf("AvailableSeats = %d, want 4 (requested entries hold no seats)", out.AvailableSeats)
	}
	entry, ok := out.Passengers[pid.Hex()]
	if !ok {
		t.Fatal("passenger entry missing after Reserve")
	}
	if entry.Status != models.PassengerStatusRequested {
		t.Errorf("entry status = %s, want requested", entry.Status)
	}
	if err := Check(out); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
	// input snapshot untouched
	if len(ride.Passengers) != 0 || ride.AvailableSeats != 4 {
		t.Error("Reserve mutated the input snapshot")
	}
}

func TestReserveAutoConfirmConsumesSeats(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()

	out, err := Reserve(ride, Reservation{PassengerID: pid, Seats: 3}, true)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if out.AvailableSeats != 1 {
		t.Errorf("AvailableSeats = %d, want 1", out.AvailableSeats)
	}
	if out.Passengers[pid.Hex()].Status != models.PassengerStatusConfirmed {
		t.Errorf("entry status = %s, want confirmed", out.Passengers[pid.Hex()].Status)
	}
	if err := Check(out); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
}

func TestReserveAutoConfirmInsufficientSeats(t *testing.T) {
	ride := newTestRide(4, 2)

	_, err := Reserve(ride, Reservation{PassengerID: primitive.NewObjectID(), Seats: 3}, true)
	if !errors.Is(err, apperrors.ErrInsufficientSeats) {
		t.Errorf("got %v, want ErrInsufficientSeats", err)
	}

	// A requested-only reservation for the same count is still allowed.
	if _, err := Reserve(ride, Reservation{PassengerID: primitive.NewObjectID(), Seats: 3}, false); err != nil {
		t.Errorf("requested-only reserve should not check seats: %v", err)
	}
}

func TestPromote(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()
	ride, _ = Reserve(ride, Reservation{PassengerID: pid, Seats: 2}, false)

	out, err := Promote(ride, pid)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if out.AvailableSeats != 2 {
		t.Errorf("AvailableSeats = %d, want 2", out.AvailableSeats)
	}
	if out.Passengers[pid.Hex()].Status != models.PassengerStatusConfirmed {
		t.Error("entry not confirmed after Promote")
	}
	if err := Check(out); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
}

func TestPromoteInsufficientSeats(t *testing.T) {
	ride := newTestRide(4, 4)
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()
	ride, _ = Reserve(ride, Reservation{PassengerID: first, Seats: 3}, false)
	ride, _ = Reserve(ride, Reservation{PassengerID: second, Seats: 3}, false)

	ride, err := Promote(ride, first)
	if err != nil {
		t.Fatalf("first Promote: %v", err)
	}
	if _, err := Promote(ride, second); !errors.Is(err, apperrors.ErrInsufficientSeats) {
		t.Errorf("got %v, want ErrInsufficientSeats", err)
	}
}

func TestPromoteRequiresRequestedEntry(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()

	if _, err := Promote(ride, pid); err == nil {
		t.Error("Promote of a missing entry should fail")
	}

	ride, _ = Reserve(ride, Reservation{PassengerID: pid, Seats: 1}, true)
	if _, err := Promote(ride, pid); err == nil {
		t.Error("Promote of an already confirmed entry should fail")
	}
}

func TestReleaseConfirmedRestoresSeats(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()
	ride, _ = Reserve(ride, Reservation{PassengerID: pid, Seats: 2}, true)

	out, err := Release(ride, pid)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if out.AvailableSeats != 4 {
		t.Errorf("AvailableSeats = %d, want 4", out.AvailableSeats)
	}
	if _, ok := out.Passengers[pid.Hex()]; ok {
		t.Error("passenger entry still present after Release")
	}
	if err := Check(out); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
}

func TestReleaseRequestedReturnsNoSeats(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()
	ride, _ = Reserve(ride, Reservation{PassengerID: pid, Seats: 2}, false)

	out, err := Release(ride, pid)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if out.AvailableSeats != 4 {
		t.Errorf("AvailableSeats = %d, want 4", out.AvailableSeats)
	}
}

func TestReleaseClampsToTotal(t *testing.T) {
	ride := newTestRide(4, 4)
	pid := primitive.NewObjectID()
	// Corrupt snapshot: confirmed entry while seats were never decremented.
	ride.Passengers[pid.Hex()] = models.RidePassenger{SeatsBooked: 2, Status: models.PassengerStatusConfirmed}

	out, err := Release(ride, pid)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if out.AvailableSeats != 4 {
		t.Errorf("AvailableSeats = %d, want clamp at 4", out.AvailableSeats)
	}
}

func TestReleaseMissingEntry(t *testing.T) {
	if _, err := Release(newTestRide(4, 4), primitive.NewObjectID()); err == nil {
		t.Error("Release of a missing entry should fail")
	}
}
