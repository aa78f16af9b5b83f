package service

import (
	"context"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
)

// ParkingService quản lý bãi đỗ xe (bề mặt dành cho người vận hành).
// Sức chứa chỉ được đặt khi tạo bãi.
type ParkingService struct {
	lotRepo repository.ParkingLotRepository
}

func NewParkingService(lotRepo repository.ParkingLotRepository) *ParkingService {
	return &ParkingService{lotRepo: lotRepo}
}

func (s *ParkingService) CreateParkingLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	if dto.TotalCapacity <= 0 {
		return nil, fmt.Errorf("%w: sức chứa phải lớn hơn 0", ErrPolicyViolation)
	}
	for class := range dto.Rates {
		if !class.Valid() {
			return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedVehicle, class)
		}
	}
	isOpen := true
	if dto.IsOpen != nil {
		isOpen = *dto.IsOpen
	}

	lot, err := s.lotRepo.Create(ctx, &domain.ParkingLot{
		Name:          dto.Name,
		Address:       dto.Address,
		TotalCapacity: dto.TotalCapacity,
		IsOpen:        isOpen,
		Rates:         dto.Rates,
	})
	if err != nil {
		return nil, storageError("ParkingService.CreateParkingLot", err)
	}
	log.Printf("ParkingService: Đã tạo bãi %d '%s' với %d chỗ", lot.ID, lot.Name, lot.TotalCapacity)
	return lot, nil
}

func (s *ParkingService) GetParkingLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("ParkingService.GetParkingLotByID", err)
	}
	return lot, nil
}

func (s *ParkingService) GetAllParkingLots(ctx context.Context) ([]domain.ParkingLot, error) {
	lots, err := s.lotRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("ParkingService.GetAllParkingLots", err)
	}
	if lots == nil {
		lots = []domain.ParkingLot{}
	}
	return lots, nil
}

// SetLotOpen đóng hoặc mở bãi. Đặt chỗ đã nhận vẫn giữ nguyên khi bãi đóng.
func (s *ParkingService) SetLotOpen(ctx context.Context, id int, isOpen bool) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.SetOpen(ctx, id, isOpen)
	if err != nil {
		return nil, storageError("ParkingService.SetLotOpen", err)
	}
	log.Printf("ParkingService: Bãi %d chuyển is_open=%v", id, isOpen)
	return lot, nil
}
