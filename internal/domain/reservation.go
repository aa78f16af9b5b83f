package domain

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationActive    ReservationStatus = "active" // Xe đã vào bãi (check-in)
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// OccupyingStatuses là các trạng thái đang giữ một chỗ đỗ.
var OccupyingStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed, ReservationActive}

func (s ReservationStatus) IsOccupying() bool {
	return s == ReservationPending || s == ReservationConfirmed || s == ReservationActive
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

type Reservation struct {
	ID              string            `json:"id"`
	LotID           int               `json:"lot_id"`
	UserID          int               `json:"user_id"`
	VehicleClass    VehicleClass      `json:"vehicle_class"`
	VehicleNumber   string            `json:"vehicle_number"`
	Window          TimeRange         `json:"window"`
	Status          ReservationStatus `json:"status"`
	EstimatedAmount null.Float        `json:"estimated_amount"`
	Amount          null.Float        `json:"amount"` // Chỉ có giá trị khi completed
	CheckInTime     null.Time         `json:"check_in_time"`
	CompletedAt     null.Time         `json:"completed_at"`
	CancelledAt     null.Time         `json:"cancelled_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

var plateSeparators = strings.NewReplacer(" ", "", ".", "", "-", "")

// NormalizeVehicleNumber đưa biển số về dạng so khớp được: viết hoa, bỏ khoảng trắng, dấu chấm và gạch nối.
// "29a-123.45" -> "29A12345".
func NormalizeVehicleNumber(s string) string {
	return plateSeparators.Replace(strings.ToUpper(strings.TrimSpace(s)))
}

func (r *Reservation) invalidTransition(to ReservationStatus) error {
	return fmt.Errorf("%w: đặt chỗ %s đang ở trạng thái '%s', không thể chuyển sang '%s'", ErrInvalidState, r.ID, r.Status, to)
}

// Confirm: pending -> confirmed.
func (r *Reservation) Confirm() error {
	if r.Status != ReservationPending {
		return r.invalidTransition(ReservationConfirmed)
	}
	r.Status = ReservationConfirmed
	return nil
}

// CheckIn: confirmed -> active, chỉ khi có sự kiện xe vào bãi.
func (r *Reservation) CheckIn(at time.Time) error {
	if r.Status != ReservationConfirmed {
		return r.invalidTransition(ReservationActive)
	}
	r.Status = ReservationActive
	r.CheckInTime = null.TimeFrom(at)
	return nil
}

// Complete chốt giờ kết thúc (now nếu đặt chỗ chưa có giờ kết thúc), tính phí cuối cùng
// và chuyển sang completed.
func (r *Reservation) Complete(now time.Time, rate Rate) error {
	if !r.Status.IsOccupying() {
		return r.invalidTransition(ReservationCompleted)
	}
	end := now
	if r.Window.End.Valid {
		end = r.Window.End.Time
	} else if !now.After(r.Window.Start) {
		return fmt.Errorf("%w: đặt chỗ %s chưa bắt đầu, không thể kết thúc", ErrInvalidState, r.ID)
	}

	r.Window.End = null.TimeFrom(end)
	r.Amount = null.FloatFrom(CalculateFee(r.Window.Start, end, rate))
	r.Status = ReservationCompleted
	r.CompletedAt = null.TimeFrom(now)
	return nil
}

// Cancel không tính phí: Amount giữ null.
func (r *Reservation) Cancel(now time.Time) error {
	if !r.Status.IsOccupying() {
		return r.invalidTransition(ReservationCancelled)
	}
	r.Status = ReservationCancelled
	r.CancelledAt = null.TimeFrom(now)
	return nil
}

type CreateReservationDTO struct {
	LotID         int          `json:"lot_id" binding:"required"`
	VehicleClass  VehicleClass `json:"vehicle_class" binding:"required,vehicle_class"`
	VehicleNumber string       `json:"vehicle_number" binding:"required,max=20"`
	StartTime     time.Time    `json:"start_time" binding:"required"`
	EndTime       *time.Time   `json:"end_time"`
}

func (dto CreateReservationDTO) Window() TimeRange {
	if dto.EndTime == nil {
		return OpenEndedFrom(dto.StartTime)
	}
	return NewTimeRange(dto.StartTime, *dto.EndTime)
}
