package repository

import (
	"context"
	"errors"
	"parksmart/internal/domain"
	"time"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// ParkingLotRepository không có hàm cập nhật sức chứa: TotalCapacity chỉ ghi một lần.
type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	SetOpen(ctx context.Context, id int, isOpen bool) (*domain.ParkingLot, error)
}

// ReservationRepository là nguồn sự thật duy nhất cho số chỗ đã dùng.
// Các truy vấn "occupying" lọc theo domain.OccupyingStatuses và điều kiện giao nhau nửa mở
// (index trên (lot_id, status, start_time, end_time)).
type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Reservation, error)

	// CountOccupying đếm các đặt chỗ đang giữ chỗ có khoảng thời gian giao với window.
	CountOccupying(ctx context.Context, lotID int, window domain.TimeRange) (int, error)
	// CountOccupyingAt đếm các đặt chỗ đang giữ chỗ chứa thời điểm at.
	CountOccupyingAt(ctx context.Context, lotID int, at time.Time) (int, error)
	// FindOccupyingByVehicle tìm đặt chỗ đang giữ chỗ của biển số trong bãi, bắt đầu sớm nhất trước.
	FindOccupyingByVehicle(ctx context.Context, lotID int, vehicleNumber string) ([]domain.Reservation, error)
}

// GateEventRepository lưu sự kiện cổng đã xử lý. Create trả về ErrDuplicateEntry nếu event_id đã tồn tại.
type GateEventRepository interface {
	Create(ctx context.Context, event *domain.GateEventRecord) error
	FindByEventID(ctx context.Context, eventID string) (*domain.GateEventRecord, error)
	CleanupExpiredEvents(ctx context.Context, now time.Time) (int64, error)
}
