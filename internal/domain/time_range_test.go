package domain

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

// Test: [09:00,10:00) và [10:00,11:00) không giao nhau (biên loại trừ)
func TestOverlaps_AdjacentWindowsDoNotOverlap(t *testing.T) {
	a := NewTimeRange(at(9, 0), at(10, 0))
	b := NewTimeRange(at(10, 0), at(11, 0))

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Error("expected adjacent windows not to overlap")
	}
}

// Test: [09:00,10:30) và [10:00,11:00) giao nhau
func TestOverlaps_PartialOverlap(t *testing.T) {
	a := NewTimeRange(at(9, 0), at(10, 30))
	b := NewTimeRange(at(10, 0), at(11, 0))

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("expected partially overlapping windows to overlap")
	}
}

// Test: khoảng chưa kết thúc chiếm mọi thời điểm >= Start
func TestOverlaps_OpenEnded(t *testing.T) {
	open := OpenEndedFrom(at(10, 0))

	cases := []struct {
		name   string
		other  TimeRange
		expect bool
	}{
		{"ends before start", NewTimeRange(at(8, 0), at(10, 0)), false},
		{"straddles start", NewTimeRange(at(9, 0), at(10, 1)), true},
		{"far future", NewTimeRange(at(22, 0), at(23, 0)), true},
		{"both open", OpenEndedFrom(at(6, 0)), true},
	}
	for _, tc := range cases {
		if got := open.Overlaps(tc.other); got != tc.expect {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expect, got)
		}
		if got := tc.other.Overlaps(open); got != tc.expect {
			t.Errorf("%s (reversed): expected %v, got %v", tc.name, tc.expect, got)
		}
	}
}

// Test: Contains gồm Start, loại trừ End
func TestContains(t *testing.T) {
	r := NewTimeRange(at(9, 0), at(10, 0))

	if !r.Contains(at(9, 0)) {
		t.Error("expected window to contain its start")
	}
	if r.Contains(at(10, 0)) {
		t.Error("expected window not to contain its end")
	}
	if r.Contains(at(8, 59)) {
		t.Error("expected window not to contain instants before start")
	}
	if !OpenEndedFrom(at(9, 0)).Contains(at(23, 59)) {
		t.Error("expected open-ended window to contain later instants")
	}
}

// Test: End phải sau Start
func TestValidate(t *testing.T) {
	if err := NewTimeRange(at(9, 0), at(10, 0)).Validate(); err != nil {
		t.Errorf("expected valid window, got %v", err)
	}
	if err := OpenEndedFrom(at(9, 0)).Validate(); err != nil {
		t.Errorf("expected open-ended window to be valid, got %v", err)
	}
	if err := NewTimeRange(at(10, 0), at(10, 0)).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for empty window, got %v", err)
	}
	if err := NewTimeRange(at(10, 0), at(9, 0)).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for inverted window, got %v", err)
	}
	if err := (TimeRange{}).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for missing start, got %v", err)
	}
}

// Test: một ngày có 24 khung giờ liên tiếp, ngày chuyển giờ có 23 hoặc 25
func TestHourlyBuckets(t *testing.T) {
	buckets := HourlyBuckets(at(15, 30), time.UTC)
	if len(buckets) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(buckets))
	}
	if !buckets[0].Start.Equal(at(0, 0)) {
		t.Errorf("expected first bucket at 00:00, got %s", buckets[0].Start)
	}
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Start.Equal(buckets[i-1].End.Time) {
			t.Errorf("expected bucket %d to start where bucket %d ends", i, i-1)
		}
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	if n := len(HourlyBuckets(time.Date(2024, 3, 10, 12, 0, 0, 0, ny), ny)); n != 23 {
		t.Errorf("expected 23 buckets on spring-forward day, got %d", n)
	}
	if n := len(HourlyBuckets(time.Date(2024, 11, 3, 12, 0, 0, 0, ny), ny)); n != 25 {
		t.Errorf("expected 25 buckets on fall-back day, got %d", n)
	}
}
