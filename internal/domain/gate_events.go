package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type GateEventType string

const (
	GateVehicleEntry GateEventType = "vehicle_entry"
	GateVehicleExit  GateEventType = "vehicle_exit"
)

// GateEvent - message thiết bị cổng gửi qua SQS khi xe đi qua
type GateEvent struct {
	EventID       string        `json:"event_id,omitempty"`
	Type          GateEventType `json:"type" binding:"required"`
	LotID         int           `json:"lot_id" binding:"required"`
	DeviceID      string        `json:"device_id,omitempty"`
	VehicleNumber string        `json:"vehicle_number,omitempty"`
	ImageBase64   string        `json:"image_base64,omitempty"` // Dùng LPR nếu không có biển số
	Timestamp     string        `json:"timestamp,omitempty"`
}

// GateEventResult - kết quả xử lý, dùng để log
type GateEventResult struct {
	EventID       string            `json:"event_id"`
	ReservationID string            `json:"reservation_id,omitempty"`
	VehicleNumber string            `json:"vehicle_number"`
	Status        ReservationStatus `json:"status,omitempty"`
	Matched       bool              `json:"matched"`
	Duplicate     bool              `json:"duplicate,omitempty"`
	ProcessedAt   time.Time         `json:"processed_at"`
}

// GateEventRecord - sự kiện cổng đã xử lý xong, giữ tới ExpiresAt để bỏ qua message SQS gửi lặp
type GateEventRecord struct {
	EventID       string            `json:"event_id"`
	LotID         int               `json:"lot_id"`
	DeviceID      string            `json:"device_id"`
	EventType     GateEventType     `json:"event_type"`
	VehicleNumber string            `json:"vehicle_number"`
	ReservationID null.String       `json:"reservation_id"`
	Status        ReservationStatus `json:"status,omitempty"`
	Matched       bool              `json:"matched"`
	ProcessedAt   time.Time         `json:"processed_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// Result dựng lại kết quả đã trả về lần xử lý đầu.
func (r *GateEventRecord) Result() *GateEventResult {
	return &GateEventResult{
		EventID:       r.EventID,
		ReservationID: r.ReservationID.String,
		VehicleNumber: r.VehicleNumber,
		Status:        r.Status,
		Matched:       r.Matched,
		Duplicate:     true,
		ProcessedAt:   r.ProcessedAt,
	}
}
