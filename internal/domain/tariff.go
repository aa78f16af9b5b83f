package domain

import (
	"math"
	"time"

	"gopkg.in/guregu/null.v4"
)

type VehicleClass string

const (
	VehicleCar  VehicleClass = "car"
	VehicleBike VehicleClass = "bike"
)

func (c VehicleClass) Valid() bool {
	return c == VehicleCar || c == VehicleBike
}

// Rate là biểu phí bậc thang: giờ đầu đắt hơn, các giờ sau rẻ hơn, có trần theo ngày.
type Rate struct {
	FirstHour        float64    `json:"first_hour" binding:"min=0"`
	AdditionalHourly float64    `json:"additional_hourly" binding:"min=0"`
	MaxDaily         null.Float `json:"max_daily"`
}

type RateSchedule map[VehicleClass]Rate

// CalculateFee tính phí cho khoảng [start, end):
//
//	<= 1 giờ: FirstHour
//	> 1 giờ: FirstHour + ceil(giờ - 1) * AdditionalHourly
//
// sau đó giới hạn bởi MaxDaily (nếu có) và làm tròn lên đơn vị tiền.
func CalculateFee(start, end time.Time, rate Rate) float64 {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}

	fee := rate.FirstHour
	if hours > 1 {
		fee += math.Ceil(hours-1) * rate.AdditionalHourly
	}
	if rate.MaxDaily.Valid && fee > rate.MaxDaily.Float64 {
		fee = rate.MaxDaily.Float64
	}
	return math.Ceil(fee)
}

// EstimateFee là phí tạm tính lúc đặt chỗ. Đặt chỗ không có giờ kết thúc tạm tính giờ đầu.
func EstimateFee(window TimeRange, rate Rate) float64 {
	if !window.End.Valid {
		return math.Ceil(rate.FirstHour)
	}
	return CalculateFee(window.Start, window.End.Time, rate)
}
