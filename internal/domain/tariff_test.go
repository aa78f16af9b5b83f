package domain

import (
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"
)

var carRate = Rate{FirstHour: 20000, AdditionalHourly: 10000, MaxDaily: null.FloatFrom(100000)}

// Test: đúng một giờ tính giá giờ đầu
func TestCalculateFee_OneHour(t *testing.T) {
	start := at(9, 0)
	if fee := CalculateFee(start, start.Add(time.Hour), carRate); fee != 20000 {
		t.Errorf("expected 20000, got %v", fee)
	}
	if fee := CalculateFee(start, start.Add(20*time.Minute), carRate); fee != 20000 {
		t.Errorf("expected first-hour rate for short stays, got %v", fee)
	}
}

// Test: 2.5 giờ = giờ đầu + ceil(1.5)=2 giờ tiếp theo
func TestCalculateFee_PartialHoursRoundUp(t *testing.T) {
	start := at(9, 0)
	fee := CalculateFee(start, start.Add(150*time.Minute), carRate)
	if fee != 40000 {
		t.Errorf("expected 40000, got %v", fee)
	}
}

// Test: phí không vượt quá MaxDaily
func TestCalculateFee_DailyCap(t *testing.T) {
	start := at(0, 0)
	fee := CalculateFee(start, start.Add(20*time.Hour), carRate)
	if fee != 100000 {
		t.Errorf("expected capped fee 100000, got %v", fee)
	}

	uncapped := Rate{FirstHour: 20000, AdditionalHourly: 10000}
	if fee := CalculateFee(start, start.Add(20*time.Hour), uncapped); fee != 210000 {
		t.Errorf("expected uncapped fee 210000, got %v", fee)
	}
}

// Test: tổng lẻ được làm tròn lên đơn vị tiền
func TestCalculateFee_CeilsToWholeUnit(t *testing.T) {
	rate := Rate{FirstHour: 1.2, AdditionalHourly: 0.5}
	start := at(9, 0)
	if fee := CalculateFee(start, start.Add(150*time.Minute), rate); fee != 3 {
		t.Errorf("expected ceil(1.2 + 2*0.5) = 3, got %v", fee)
	}
}

// Test: đặt chỗ chưa có giờ kết thúc tạm tính giờ đầu
func TestEstimateFee(t *testing.T) {
	if fee := EstimateFee(OpenEndedFrom(at(9, 0)), carRate); fee != 20000 {
		t.Errorf("expected 20000, got %v", fee)
	}
	if fee := EstimateFee(NewTimeRange(at(9, 0), at(12, 0)), carRate); fee != 40000 {
		t.Errorf("expected 40000, got %v", fee)
	}
}
