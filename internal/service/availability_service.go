package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

// BookingPolicy: giá trị 0 tắt giới hạn tương ứng.
type BookingPolicy struct {
	MaxAdvanceBooking      time.Duration
	MaxReservationDuration time.Duration
	Location               *time.Location // Múi giờ chia khung giờ trong ngày
}

type ReserveRequest struct {
	LotID         int
	UserID        int
	VehicleClass  domain.VehicleClass
	VehicleNumber string
	Window        domain.TimeRange
}

// AvailabilityService là cửa duy nhất nhận hoặc từ chối đặt chỗ mới.
// reserve, cancel, complete và checkIn của cùng một bãi chạy tuần tự dưới khóa của bãi đó.
type AvailabilityService struct {
	lotRepo         repository.ParkingLotRepository
	reservationRepo repository.ReservationRepository
	ledger          *CapacityLedger
	locker          *LotLocker
	notifier        ChangeNotifier
	clock           Clock
	policy          BookingPolicy
}

func NewAvailabilityService(
	lotRepo repository.ParkingLotRepository,
	reservationRepo repository.ReservationRepository,
	ledger *CapacityLedger,
	locker *LotLocker,
	notifier ChangeNotifier,
	clock Clock,
	policy BookingPolicy,
) *AvailabilityService {
	if clock == nil {
		clock = SystemClock{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &AvailabilityService{
		lotRepo:         lotRepo,
		reservationRepo: reservationRepo,
		ledger:          ledger,
		locker:          locker,
		notifier:        notifier,
		clock:           clock,
		policy:          policy,
	}
}

func (s *AvailabilityService) Reserve(ctx context.Context, req ReserveRequest) (*domain.Reservation, error) {
	now := s.clock.Now()
	if err := s.validateRequest(req, now); err != nil {
		return nil, err
	}

	lot, err := s.lotRepo.FindByID(ctx, req.LotID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("AvailabilityService.Reserve: tải bãi %d", req.LotID), err)
	}
	rate, ok := lot.Rates[req.VehicleClass]
	if !ok {
		return nil, rejection(ErrUnsupportedVehicle, lot.ID, null.Int{}, fmt.Sprintf("loại xe '%s'", req.VehicleClass))
	}
	if !lot.IsOpen {
		return nil, rejection(ErrLotClosed, lot.ID, null.Int{}, lot.Name)
	}

	res, err := s.admit(ctx, req, rate, now)
	if err != nil {
		return nil, err
	}

	log.Printf("AvailabilityService: Đã nhận đặt chỗ %s cho bãi %d, khoảng %s", res.ID, res.LotID, res.Window)
	s.notifyChange(ctx, res, domain.ReasonReserved)
	return res, nil
}

func (s *AvailabilityService) validateRequest(req ReserveRequest, now time.Time) error {
	if err := req.Window.Validate(); err != nil {
		return err
	}
	if !req.Window.Start.After(now) {
		return fmt.Errorf("%w: thời gian bắt đầu %s phải sau thời điểm hiện tại",
			domain.ErrInvalidWindow, req.Window.Start.Format(time.RFC3339))
	}
	if !req.VehicleClass.Valid() {
		return rejection(ErrUnsupportedVehicle, req.LotID, null.Int{}, fmt.Sprintf("loại xe '%s'", req.VehicleClass))
	}
	if limit := s.policy.MaxAdvanceBooking; limit > 0 && req.Window.Start.Sub(now) > limit {
		return rejection(ErrPolicyViolation, req.LotID, null.Int{}, fmt.Sprintf("chỉ được đặt trước tối đa %s", limit))
	}
	if limit := s.policy.MaxReservationDuration; limit > 0 {
		d, closed := req.Window.Duration()
		if !closed {
			return rejection(ErrPolicyViolation, req.LotID, null.Int{}, fmt.Sprintf("cần giờ kết thúc khi thời lượng tối đa là %s", limit))
		}
		if d > limit {
			return rejection(ErrPolicyViolation, req.LotID, null.Int{}, fmt.Sprintf("thời lượng %s vượt quá tối đa %s", d, limit))
		}
	}
	return nil
}

// admit kiểm tra sức chứa và lưu đặt chỗ như một đơn vị nguyên tử dưới khóa của bãi.
func (s *AvailabilityService) admit(ctx context.Context, req ReserveRequest, rate domain.Rate, now time.Time) (*domain.Reservation, error) {
	release, err := s.locker.Acquire(ctx, req.LotID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := s.ledger.Available(ctx, req.LotID, req.Window)
	if err != nil {
		return nil, err
	}
	if !snap.IsOpen {
		return nil, rejection(ErrLotClosed, req.LotID, null.Int{}, "")
	}
	if snap.AvailableSpots <= 0 {
		return nil, s.noCapacity(ctx, req, snap.AvailableSpots, now)
	}

	res := &domain.Reservation{
		ID:              uuid.NewString(),
		LotID:           req.LotID,
		UserID:          req.UserID,
		VehicleClass:    req.VehicleClass,
		VehicleNumber:   domain.NormalizeVehicleNumber(req.VehicleNumber),
		Window:          req.Window,
		Status:          domain.ReservationPending,
		EstimatedAmount: null.FloatFrom(domain.EstimateFee(req.Window, rate)),
	}
	if err := res.Confirm(); err != nil {
		return nil, err
	}

	created, err := s.reservationRepo.Create(ctx, res)
	if err != nil {
		return nil, storageError("AvailabilityService.Reserve: lưu đặt chỗ", err)
	}
	return created, nil
}

// noCapacity báo số chỗ trống hiện tại của bãi, kèm số chỗ trống của khoảng được yêu cầu.
func (s *AvailabilityService) noCapacity(ctx context.Context, req ReserveRequest, windowAvailable int, now time.Time) error {
	err := rejection(ErrNoCapacity, req.LotID, null.Int{}, req.Window.String())
	err.WindowAvailable = null.IntFrom(int64(windowAvailable))
	current, cerr := s.ledger.AvailableAt(ctx, req.LotID, now)
	if cerr != nil {
		log.Printf("AvailabilityService: Không tính được số chỗ trống hiện tại của bãi %d: %v", req.LotID, cerr)
		return err
	}
	err.Available = null.IntFrom(int64(current.AvailableSpots))
	return err
}

// Cancel chỉ dành cho chủ đặt chỗ. Hủy đặt chỗ đã kết thúc trả về domain.ErrInvalidState.
func (s *AvailabilityService) Cancel(ctx context.Context, reservationID string, userID int) (*domain.Reservation, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, rejection(ErrForbidden, res.LotID, null.Int{}, fmt.Sprintf("đặt chỗ %s", reservationID))
	}

	cancelled, err := s.mutate(ctx, res.LotID, reservationID, func(r *domain.Reservation) error {
		return r.Cancel(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	log.Printf("AvailabilityService: Đặt chỗ %s của bãi %d đã bị hủy", cancelled.ID, cancelled.LotID)
	s.notifyChange(ctx, cancelled, domain.ReasonCancelled)
	return cancelled, nil
}

// Complete chốt giờ kết thúc và phí cuối cùng.
func (s *AvailabilityService) Complete(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.Status.IsOccupying() {
		return nil, fmt.Errorf("%w: đặt chỗ %s đã ở trạng thái '%s'", domain.ErrInvalidState, res.ID, res.Status)
	}
	lot, err := s.lotRepo.FindByID(ctx, res.LotID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("AvailabilityService.Complete: tải bãi %d", res.LotID), err)
	}
	rate, ok := lot.Rates[res.VehicleClass]
	if !ok {
		return nil, rejection(ErrUnsupportedVehicle, lot.ID, null.Int{}, fmt.Sprintf("loại xe '%s'", res.VehicleClass))
	}

	completed, err := s.mutate(ctx, res.LotID, reservationID, func(r *domain.Reservation) error {
		return r.Complete(s.clock.Now(), rate)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("AvailabilityService: Đặt chỗ %s hoàn tất, phí %.0f", completed.ID, completed.Amount.Float64)
	s.notifyChange(ctx, completed, domain.ReasonCompleted)
	return completed, nil
}

// CheckIn ghi nhận xe của chủ đặt chỗ đã vào bãi: confirmed -> active.
func (s *AvailabilityService) CheckIn(ctx context.Context, reservationID string, userID int) (*domain.Reservation, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, rejection(ErrForbidden, res.LotID, null.Int{}, fmt.Sprintf("đặt chỗ %s", reservationID))
	}
	return s.checkIn(ctx, res.LotID, reservationID)
}

// CheckInByGate dùng cho sự kiện từ cổng, đã xác thực bằng biển số nên không kiểm tra chủ sở hữu.
func (s *AvailabilityService) CheckInByGate(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, res.LotID, reservationID)
}

func (s *AvailabilityService) checkIn(ctx context.Context, lotID int, reservationID string) (*domain.Reservation, error) {
	active, err := s.mutate(ctx, lotID, reservationID, func(r *domain.Reservation) error {
		return r.CheckIn(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	log.Printf("AvailabilityService: Xe %s đã vào bãi %d (đặt chỗ %s)", active.VehicleNumber, active.LotID, active.ID)
	s.notifyChange(ctx, active, domain.ReasonCheckedIn)
	return active, nil
}

// GetReservation: chủ đặt chỗ hoặc admin.
func (s *AvailabilityService) GetReservation(ctx context.Context, reservationID string, userID int, isAdmin bool) (*domain.Reservation, error) {
	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && res.UserID != userID {
		return nil, rejection(ErrForbidden, res.LotID, null.Int{}, fmt.Sprintf("đặt chỗ %s", reservationID))
	}
	return res, nil
}

func (s *AvailabilityService) ListReservations(ctx context.Context, userID int) ([]domain.Reservation, error) {
	list, err := s.reservationRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, storageError("AvailabilityService.ListReservations", err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return list, nil
}

// AvailableSpotsAt: số chỗ trống tại một thời điểm.
func (s *AvailabilityService) AvailableSpotsAt(ctx context.Context, lotID int, at time.Time) (*domain.LotAvailability, error) {
	return s.ledger.AvailableAt(ctx, lotID, at)
}

// AvailableSpots: số chỗ trống trong suốt window (trừ mọi đặt chỗ giao với window).
func (s *AvailabilityService) AvailableSpots(ctx context.Context, lotID int, window domain.TimeRange) (*domain.LotAvailability, error) {
	return s.ledger.Available(ctx, lotID, window)
}

func (s *AvailabilityService) OccupancyBreakdown(ctx context.Context, lotID int, date time.Time) ([]domain.HourlyAvailability, error) {
	return s.ledger.Breakdown(ctx, lotID, date, s.policy.Location)
}

func (s *AvailabilityService) Now() time.Time {
	return s.clock.Now()
}

func (s *AvailabilityService) loadReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("đặt chỗ %s: %w", id, repository.ErrNotFound)
		}
		return nil, storageError("AvailabilityService: tải đặt chỗ", err)
	}
	return res, nil
}

// mutate tải lại đặt chỗ dưới khóa của bãi, áp dụng chuyển trạng thái rồi lưu.
// Khóa luôn được nhả kể cả khi lưu thất bại.
func (s *AvailabilityService) mutate(ctx context.Context, lotID int, reservationID string, apply func(*domain.Reservation) error) (*domain.Reservation, error) {
	release, err := s.locker.Acquire(ctx, lotID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if err := apply(res); err != nil {
		return nil, err
	}
	updated, err := s.reservationRepo.Update(ctx, res)
	if err != nil {
		return nil, storageError("AvailabilityService: cập nhật đặt chỗ", err)
	}
	return updated, nil
}

// notifyChange gửi số chỗ trống hiện tại và, với đặt chỗ chưa kết thúc, số chỗ trống trong khoảng của nó.
func (s *AvailabilityService) notifyChange(ctx context.Context, res *domain.Reservation, reason domain.AvailabilityReason) {
	if s.notifier == nil {
		return
	}
	now := s.clock.Now()
	current, err := s.ledger.AvailableAt(ctx, res.LotID, now)
	if err != nil {
		log.Printf("AvailabilityService: Lỗi khi tính số chỗ trống bãi %d để thông báo: %v", res.LotID, err)
		return
	}

	update := domain.AvailabilityUpdate{
		EventID:          uuid.NewString(),
		LotID:            res.LotID,
		CurrentAvailable: current.AvailableSpots,
		Reason:           reason,
		Timestamp:        now,
	}
	if reason == domain.ReasonReserved || reason == domain.ReasonCancelled {
		window := res.Window
		if snap, err := s.ledger.Available(ctx, res.LotID, window); err == nil {
			update.Window = &window
			update.WindowAvailable = null.IntFrom(int64(snap.AvailableSpots))
		} else {
			log.Printf("AvailabilityService: Lỗi khi tính số chỗ trống trong khoảng %s: %v", window, err)
		}
	}
	publishQuietly(ctx, s.notifier, update)
}
