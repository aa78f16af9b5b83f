package domain

import (
	"errors"
	"testing"
)

func confirmedReservation() *Reservation {
	return &Reservation{
		ID:           "r-1",
		LotID:        1,
		UserID:       7,
		VehicleClass: VehicleCar,
		Window:       NewTimeRange(at(9, 0), at(11, 30)),
		Status:       ReservationConfirmed,
	}
}

// Test: luồng chính confirmed -> active -> completed, phí được chốt khi hoàn tất
func TestReservation_HappyPath(t *testing.T) {
	r := confirmedReservation()

	if err := r.CheckIn(at(9, 5)); err != nil {
		t.Fatalf("unexpected check-in error: %v", err)
	}
	if r.Status != ReservationActive || !r.CheckInTime.Valid {
		t.Errorf("expected active with check-in time, got %s", r.Status)
	}

	if err := r.Complete(at(11, 40), carRate); err != nil {
		t.Fatalf("unexpected complete error: %v", err)
	}
	if r.Status != ReservationCompleted {
		t.Errorf("expected completed, got %s", r.Status)
	}
	if !r.Amount.Valid || r.Amount.Float64 != 40000 {
		t.Errorf("expected amount 40000 for the booked 2.5h window, got %v", r.Amount)
	}
}

// Test: hoàn tất đặt chỗ chưa có giờ kết thúc dùng thời điểm hiện tại
func TestReservation_CompleteOpenEnded(t *testing.T) {
	r := confirmedReservation()
	r.Window = OpenEndedFrom(at(9, 0))

	if err := r.Complete(at(10, 0), carRate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Window.End.Valid || !r.Window.End.Time.Equal(at(10, 0)) {
		t.Errorf("expected end to be set to now, got %v", r.Window.End)
	}
	if r.Amount.Float64 != 20000 {
		t.Errorf("expected 20000, got %v", r.Amount.Float64)
	}

	early := confirmedReservation()
	early.Window = OpenEndedFrom(at(9, 0))
	if err := early.Complete(at(8, 0), carRate); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState before start, got %v", err)
	}
}

// Test: hủy không tính phí, hủy lần hai trả về ErrInvalidState
func TestReservation_CancelIsTerminal(t *testing.T) {
	r := confirmedReservation()

	if err := r.Cancel(at(8, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Amount.Valid {
		t.Errorf("expected no amount on cancellation, got %v", r.Amount.Float64)
	}
	if err := r.Cancel(at(8, 1)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on double cancel, got %v", err)
	}
	if err := r.Complete(at(12, 0), carRate); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState completing a cancelled reservation, got %v", err)
	}
	if err := r.CheckIn(at(9, 0)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState checking in a cancelled reservation, got %v", err)
	}
}

// Test: check-in chỉ hợp lệ từ confirmed
func TestReservation_CheckInGuard(t *testing.T) {
	r := confirmedReservation()
	r.Status = ReservationPending
	if err := r.CheckIn(at(9, 0)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState from pending, got %v", err)
	}
	if err := r.Confirm(); err != nil {
		t.Fatalf("unexpected confirm error: %v", err)
	}
	if err := r.Confirm(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState confirming twice, got %v", err)
	}
}

// Test: chuẩn hóa biển số
func TestNormalizeVehicleNumber(t *testing.T) {
	if got := NormalizeVehicleNumber("  29a-123.45 "); got != "29A12345" {
		t.Errorf("expected 29A12345, got %s", got)
	}
}
