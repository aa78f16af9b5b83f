package service

import (
	"context"
	"errors"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"testing"
	"time"
)

// Test: bãi không tồn tại trả về ErrNotFound
func TestCapacityLedger_UnknownLot(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	if _, err := env.ledger.AvailableAt(ctx, 404, baseNow); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound from AvailableAt, got %v", err)
	}
	if _, err := env.ledger.Available(ctx, 404, domain.NewTimeRange(hour(8), hour(9))); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound from Available, got %v", err)
	}
	if _, err := env.ledger.Breakdown(ctx, 404, baseNow, time.UTC); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound from Breakdown, got %v", err)
	}
}

// Test: chỉ đặt chỗ đang giữ chỗ được tính, đặt chỗ đã hủy/hoàn tất thì không
func TestCapacityLedger_CountsOccupyingOnly(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()
	window := domain.NewTimeRange(hour(8), hour(9))

	env.seed(t, "pending", domain.ReservationPending, window)
	env.seed(t, "confirmed", domain.ReservationConfirmed, window)
	env.seed(t, "active", domain.ReservationActive, window)
	env.seed(t, "cancelled", domain.ReservationCancelled, window)
	env.seed(t, "completed", domain.ReservationCompleted, window)

	snap, err := env.ledger.Available(ctx, env.lot.ID, window)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if snap.Occupied != 3 || snap.AvailableSpots != 2 {
		t.Errorf("expected 3 occupied and 2 available, got %d and %d", snap.Occupied, snap.AvailableSpots)
	}
	if snap.Window == nil || !snap.Window.Start.Equal(hour(8)) {
		t.Errorf("expected snapshot window to echo the query, got %v", snap.Window)
	}

	at, err := env.ledger.AvailableAt(ctx, env.lot.ID, hour(9))
	if err != nil {
		t.Fatalf("available at: %v", err)
	}
	if at.AvailableSpots != 5 {
		t.Errorf("expected all spots free at window end, got %d", at.AvailableSpots)
	}
	if !at.At.Valid || !at.At.Time.Equal(hour(9)) {
		t.Errorf("expected snapshot instant 09:00, got %v", at.At)
	}
}

// Test: số chỗ trống không bao giờ âm kể cả khi dữ liệu vượt sức chứa
func TestCapacityLedger_NeverNegative(t *testing.T) {
	env := newTestEnv(t, 1)
	window := domain.NewTimeRange(hour(8), hour(9))
	env.seed(t, "a", domain.ReservationConfirmed, window)
	env.seed(t, "b", domain.ReservationConfirmed, window)

	snap, err := env.ledger.Available(context.Background(), env.lot.ID, window)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if snap.Occupied != 2 || snap.AvailableSpots != 0 {
		t.Errorf("expected 2 occupied and 0 available, got %d and %d", snap.Occupied, snap.AvailableSpots)
	}
}

// Test: khoảng truy vấn không hợp lệ trả về ErrInvalidWindow
func TestCapacityLedger_InvalidWindow(t *testing.T) {
	env := newTestEnv(t, 1)
	_, err := env.ledger.Available(context.Background(), env.lot.ID, domain.NewTimeRange(hour(9), hour(8)))
	if !errors.Is(err, domain.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

// Test: Breakdown trả về 24 khung giờ, khung có đặt chỗ bị trừ chỗ
func TestCapacityLedger_Breakdown(t *testing.T) {
	env := newTestEnv(t, 3)
	env.seed(t, "morning", domain.ReservationConfirmed, domain.NewTimeRange(hour(8), hour(10)))
	env.seed(t, "evening", domain.ReservationActive, domain.OpenEndedFrom(hour(22)))

	slots, err := env.ledger.Breakdown(context.Background(), env.lot.ID, baseNow, time.UTC)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(slots) != 24 {
		t.Fatalf("expected 24 hourly slots, got %d", len(slots))
	}

	expected := map[int]int{7: 3, 8: 2, 9: 2, 10: 3, 21: 3, 22: 2, 23: 2}
	for h, want := range expected {
		if got := slots[h].AvailableSpots; got != want {
			t.Errorf("slot %02d:00: expected %d available, got %d", h, want, got)
		}
	}
	if !slots[0].StartTime.Equal(hour(0)) || !slots[23].EndTime.Equal(hour(24)) {
		t.Errorf("expected slots to cover the whole day, got %s - %s", slots[0].StartTime, slots[23].EndTime)
	}
}
