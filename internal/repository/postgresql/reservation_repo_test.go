package postgresql

import (
	"context"
	"errors"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"testing"
	"time"

	"github.com/google/uuid"
)

func at(h int) time.Time {
	return time.Date(2025, 6, 2, h, 0, 0, 0, time.UTC)
}

// Test: truy vấn đếm giao nhau trên Postgres theo điều kiện nửa mở, end_time NULL là chưa kết thúc
func TestPgReservationRepository_CountOccupying(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	user, err := NewPgUserRepository(db).Create(ctx, &domain.User{Username: "pg-" + suffix, Password: "x", Role: domain.RoleDriver})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	lot, err := NewPgParkingLotRepository(db).Create(ctx, &domain.ParkingLot{
		Name: "Bãi test " + suffix, TotalCapacity: 5, IsOpen: true,
		Rates: domain.RateSchedule{domain.VehicleCar: {FirstHour: 20000}},
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM reservations WHERE lot_id = $1`, lot.ID)
		db.Exec(`DELETE FROM parking_lots WHERE id = $1`, lot.ID)
		db.Exec(`DELETE FROM users WHERE id = $1`, user.ID)
	})

	repo := NewPgReservationRepository(db)
	seed := []struct {
		status domain.ReservationStatus
		window domain.TimeRange
	}{
		{domain.ReservationConfirmed, domain.NewTimeRange(at(9), at(10))},
		{domain.ReservationActive, domain.OpenEndedFrom(at(11))},
		{domain.ReservationCancelled, domain.NewTimeRange(at(9), at(10))},
	}
	for _, r := range seed {
		_, err := repo.Create(ctx, &domain.Reservation{
			ID: uuid.NewString(), LotID: lot.ID, UserID: user.ID, VehicleClass: domain.VehicleCar,
			VehicleNumber: "29A12345", Window: r.window, Status: r.status,
		})
		if err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}

	windows := []struct {
		name   string
		window domain.TimeRange
		want   int
	}{
		{"same window", domain.NewTimeRange(at(9), at(10)), 1},
		{"ends at start", domain.NewTimeRange(at(8), at(9)), 0},
		{"starts at end", domain.NewTimeRange(at(10), at(11)), 0},
		{"covers both", domain.NewTimeRange(at(8), at(12)), 2},
		{"open-ended query", domain.OpenEndedFrom(at(10)), 1},
		{"open-ended query before both", domain.OpenEndedFrom(at(6)), 2},
		{"far future", domain.NewTimeRange(at(20), at(21)), 1},
	}
	for _, tc := range windows {
		got, err := repo.CountOccupying(ctx, lot.ID, tc.window)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	instants := []struct {
		at   time.Time
		want int
	}{
		{at(9), 1},
		{at(9).Add(59 * time.Minute), 1},
		{at(10), 0},
		{at(11), 1},
		{at(23), 1},
	}
	for _, tc := range instants {
		got, err := repo.CountOccupyingAt(ctx, lot.ID, tc.at)
		if err != nil {
			t.Fatalf("at %s: %v", tc.at.Format(time.Kitchen), err)
		}
		if got != tc.want {
			t.Errorf("at %s: expected %d, got %d", tc.at.Format(time.Kitchen), tc.want, got)
		}
	}

	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
}
