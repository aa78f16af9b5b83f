package service

import (
	"context"
	"fmt"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"

	"gopkg.in/guregu/null.v4"
)

// CapacityLedger tính số chỗ trống hoàn toàn từ tập đặt chỗ đã lưu. Không giữ bộ đếm riêng.
type CapacityLedger struct {
	lotRepo         repository.ParkingLotRepository
	reservationRepo repository.ReservationRepository
}

func NewCapacityLedger(lotRepo repository.ParkingLotRepository, reservationRepo repository.ReservationRepository) *CapacityLedger {
	return &CapacityLedger{lotRepo: lotRepo, reservationRepo: reservationRepo}
}

func (l *CapacityLedger) lot(ctx context.Context, lotID int) (*domain.ParkingLot, error) {
	lot, err := l.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("CapacityLedger: tải bãi %d", lotID), err)
	}
	return lot, nil
}

// OccupancyAt đếm đặt chỗ đang giữ chỗ có khoảng thời gian chứa thời điểm at.
func (l *CapacityLedger) OccupancyAt(ctx context.Context, lotID int, at time.Time) (int, error) {
	if _, err := l.lot(ctx, lotID); err != nil {
		return 0, err
	}
	return l.countAt(ctx, lotID, at)
}

// Occupancy đếm đặt chỗ đang giữ chỗ giao với window.
func (l *CapacityLedger) Occupancy(ctx context.Context, lotID int, window domain.TimeRange) (int, error) {
	if _, err := l.lot(ctx, lotID); err != nil {
		return 0, err
	}
	return l.countWindow(ctx, lotID, window)
}

func (l *CapacityLedger) AvailableAt(ctx context.Context, lotID int, at time.Time) (*domain.LotAvailability, error) {
	lot, err := l.lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	count, err := l.countAt(ctx, lotID, at)
	if err != nil {
		return nil, err
	}
	snap := snapshot(lot, count)
	snap.At = null.TimeFrom(at)
	return snap, nil
}

func (l *CapacityLedger) Available(ctx context.Context, lotID int, window domain.TimeRange) (*domain.LotAvailability, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	lot, err := l.lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	count, err := l.countWindow(ctx, lotID, window)
	if err != nil {
		return nil, err
	}
	snap := snapshot(lot, count)
	snap.Window = &window
	return snap, nil
}

// Breakdown tính số chỗ trống cho từng khung một giờ của ngày chứa date (theo loc).
func (l *CapacityLedger) Breakdown(ctx context.Context, lotID int, date time.Time, loc *time.Location) ([]domain.HourlyAvailability, error) {
	lot, err := l.lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	buckets := domain.HourlyBuckets(date, loc)
	result := make([]domain.HourlyAvailability, 0, len(buckets))
	for _, bucket := range buckets {
		count, err := l.countWindow(ctx, lotID, bucket)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.HourlyAvailability{
			StartTime:      bucket.Start,
			EndTime:        bucket.End.Time,
			AvailableSpots: availableSpots(lot.TotalCapacity, count),
		})
	}
	return result, nil
}

func (l *CapacityLedger) countAt(ctx context.Context, lotID int, at time.Time) (int, error) {
	count, err := l.reservationRepo.CountOccupyingAt(ctx, lotID, at)
	if err != nil {
		return 0, storageError(fmt.Sprintf("CapacityLedger: đếm chỗ bãi %d", lotID), err)
	}
	return count, nil
}

func (l *CapacityLedger) countWindow(ctx context.Context, lotID int, window domain.TimeRange) (int, error) {
	count, err := l.reservationRepo.CountOccupying(ctx, lotID, window)
	if err != nil {
		return 0, storageError(fmt.Sprintf("CapacityLedger: đếm chỗ bãi %d", lotID), err)
	}
	return count, nil
}

func availableSpots(capacity, occupied int) int {
	if occupied >= capacity {
		return 0
	}
	return capacity - occupied
}

func snapshot(lot *domain.ParkingLot, occupied int) *domain.LotAvailability {
	return &domain.LotAvailability{
		LotID:          lot.ID,
		TotalCapacity:  lot.TotalCapacity,
		Occupied:       occupied,
		AvailableSpots: availableSpots(lot.TotalCapacity, occupied),
		IsOpen:         lot.IsOpen,
	}
}
