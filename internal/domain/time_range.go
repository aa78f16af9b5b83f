package domain

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

// TimeRange là khoảng thời gian nửa mở [Start, End). End không hợp lệ (null) nghĩa là
// khoảng thời gian chưa kết thúc và chiếm mọi thời điểm >= Start.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   null.Time `json:"end"`
}

func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: null.TimeFrom(end)}
}

func OpenEndedFrom(start time.Time) TimeRange {
	return TimeRange{Start: start}
}

func (r TimeRange) IsOpenEnded() bool {
	return !r.End.Valid
}

// Validate kiểm tra End (nếu có) phải sau Start.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("%w: thiếu thời gian bắt đầu", ErrInvalidWindow)
	}
	if r.End.Valid && !r.End.Time.After(r.Start) {
		return fmt.Errorf("%w: thời gian kết thúc (%s) phải sau thời gian bắt đầu (%s)",
			ErrInvalidWindow, r.End.Time.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// Overlaps: hai khoảng giao nhau khi mỗi khoảng bắt đầu trước khi khoảng kia kết thúc.
// [09:00,10:00) và [10:00,11:00) không giao nhau.
func (r TimeRange) Overlaps(other TimeRange) bool {
	if other.End.Valid && !r.Start.Before(other.End.Time) {
		return false
	}
	if r.End.Valid && !other.Start.Before(r.End.Time) {
		return false
	}
	return true
}

// Contains trả về true nếu Start <= t < End.
func (r TimeRange) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return !r.End.Valid || t.Before(r.End.Time)
}

// Duration của khoảng đã đóng; khoảng mở trả về false.
func (r TimeRange) Duration() (time.Duration, bool) {
	if !r.End.Valid {
		return 0, false
	}
	return r.End.Time.Sub(r.Start), true
}

func (r TimeRange) String() string {
	if !r.End.Valid {
		return fmt.Sprintf("[%s, ∞)", r.Start.Format(time.RFC3339))
	}
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Time.Format(time.RFC3339))
}

// HourlyBuckets chia ngày chứa date (theo loc) thành các khoảng một giờ liên tiếp.
// Ngày chuyển giờ mùa hè có 23 hoặc 25 khoảng.
func HourlyBuckets(date time.Time, loc *time.Location) []TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)

	var buckets []TimeRange
	for cur := dayStart; cur.Before(dayEnd); cur = cur.Add(time.Hour) {
		end := cur.Add(time.Hour)
		if end.After(dayEnd) {
			end = dayEnd
		}
		buckets = append(buckets, NewTimeRange(cur, end))
	}
	return buckets
}
