package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type AvailabilityReason string

const (
	ReasonReserved   AvailabilityReason = "reserved"
	ReasonCancelled  AvailabilityReason = "cancelled"
	ReasonCompleted  AvailabilityReason = "completed"
	ReasonCheckedIn  AvailabilityReason = "checked_in"
	ReasonReconciled AvailabilityReason = "reconciled"
)

// AvailabilityUpdate - sự kiện gửi tới các observer (WebSocket, IoT) sau mỗi thay đổi
type AvailabilityUpdate struct {
	EventID          string             `json:"event_id"`
	LotID            int                `json:"lot_id"`
	CurrentAvailable int                `json:"current_available_spots"`
	Reason           AvailabilityReason `json:"reason"`
	Timestamp        time.Time          `json:"timestamp"`

	// Số chỗ trống trong khoảng thời gian của đặt chỗ vừa thay đổi (nếu có)
	Window          *TimeRange `json:"window,omitempty"`
	WindowAvailable null.Int   `json:"window_available_spots"`
}

// MapAvailabilityUpdate - bản rút gọn gửi tới mọi client đang xem bản đồ
type MapAvailabilityUpdate struct {
	LotID            int       `json:"lot_id"`
	AvailableSpots   int       `json:"available_spots"`
	ScheduledRefresh bool      `json:"was_scheduled_update"`
	Timestamp        time.Time `json:"timestamp"`
}

func (u AvailabilityUpdate) ForMap() MapAvailabilityUpdate {
	return MapAvailabilityUpdate{
		LotID:            u.LotID,
		AvailableSpots:   u.CurrentAvailable,
		ScheduledRefresh: u.Reason == ReasonReconciled,
		Timestamp:        u.Timestamp,
	}
}
