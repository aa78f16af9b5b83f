package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ParkingLot struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Address       string       `json:"address,omitempty"`
	TotalCapacity int          `json:"total_capacity"` // Không đổi sau khi tạo
	IsOpen        bool         `json:"is_open"`
	Rates         RateSchedule `json:"rates"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Accepts cho biết bãi có nhận loại xe này không (có biểu phí cho loại xe).
func (l *ParkingLot) Accepts(class VehicleClass) bool {
	_, ok := l.Rates[class]
	return ok
}

type ParkingLotDTO struct {
	Name          string       `json:"name" binding:"required"`
	Address       string       `json:"address"`
	TotalCapacity int          `json:"total_capacity" binding:"required,min=1"`
	IsOpen        *bool        `json:"is_open"`
	Rates         RateSchedule `json:"rates" binding:"required,min=1,dive,keys,vehicle_class,endkeys"`
}

type SetLotOpenDTO struct {
	IsOpen *bool `json:"is_open" binding:"required"`
}

// LotAvailability là ảnh chụp (suy ra, không lưu) số chỗ trống của bãi.
type LotAvailability struct {
	LotID          int        `json:"lot_id"`
	TotalCapacity  int        `json:"total_capacity"`
	Occupied       int        `json:"occupied"`
	AvailableSpots int        `json:"available_spots"`
	At             null.Time  `json:"at"`               // Truy vấn theo thời điểm
	Window         *TimeRange `json:"window,omitempty"` // Truy vấn theo khoảng
	IsOpen         bool       `json:"is_open"`
}

type HourlyAvailability struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AvailableSpots int       `json:"available_spots"`
}
