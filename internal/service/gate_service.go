package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"

	"gopkg.in/guregu/null.v4"
)

// Thời gian giữ sự kiện đã xử lý, đủ dài hơn thời gian SQS có thể gửi lặp message.
const gateEventRetention = 24 * time.Hour

// GateService xử lý sự kiện xe vào/ra từ thiết bị cổng: vào bãi -> check-in, ra bãi -> complete.
// Chỉ trả lỗi khi nên xử lý lại message (lỗi lưu trữ, bãi bận); các trường hợp không khớp được log và bỏ qua.
// Sự kiện có event_id chỉ được xử lý một lần: lần gửi lặp trả về kết quả đã lưu.
type GateService struct {
	availability    *AvailabilityService
	reservationRepo repository.ReservationRepository
	eventRepo       repository.GateEventRepository // nil: không chống xử lý lặp
	recognizer      PlateRecognizer                // nil: tắt LPR
}

func NewGateService(
	availability *AvailabilityService,
	reservationRepo repository.ReservationRepository,
	eventRepo repository.GateEventRepository,
	recognizer PlateRecognizer,
) *GateService {
	return &GateService{
		availability:    availability,
		reservationRepo: reservationRepo,
		eventRepo:       eventRepo,
		recognizer:      recognizer,
	}
}

func (s *GateService) HandleGateMessage(ctx context.Context, body string) error {
	var event domain.GateEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		log.Printf("GateService: Bỏ qua message không hợp lệ: %v. Body: %s", err, body)
		return nil
	}
	result, err := s.HandleGateEvent(ctx, event)
	if err != nil {
		return err
	}
	log.Printf("GateService: Sự kiện %s (%s) biển số '%s': matched=%v, reservation=%s, status=%s",
		result.EventID, event.Type, result.VehicleNumber, result.Matched, result.ReservationID, result.Status)
	return nil
}

func (s *GateService) HandleGateEvent(ctx context.Context, event domain.GateEvent) (*domain.GateEventResult, error) {
	if s.tracksEvent(event) {
		record, err := s.eventRepo.FindByEventID(ctx, event.EventID)
		if err == nil {
			log.Printf("GateService: Sự kiện %s đã được xử lý lúc %s, bỏ qua", event.EventID, record.ProcessedAt.Format(time.RFC3339))
			return record.Result(), nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storageError("GateService: tải sự kiện đã xử lý", err)
		}
	}

	result, err := s.process(ctx, event)
	if err != nil {
		return nil, err
	}
	s.record(ctx, event, result)
	return result, nil
}

// CleanupExpiredEvents xóa các sự kiện đã quá thời gian giữ. Chạy theo lịch.
func (s *GateService) CleanupExpiredEvents(ctx context.Context) error {
	if s.eventRepo == nil {
		return nil
	}
	count, err := s.eventRepo.CleanupExpiredEvents(ctx, s.availability.Now())
	if err != nil {
		return fmt.Errorf("lỗi cleanup expired gate events: %w", err)
	}
	if count > 0 {
		log.Printf("GateService: Đã cleanup %d expired gate events", count)
	}
	return nil
}

func (s *GateService) tracksEvent(event domain.GateEvent) bool {
	return s.eventRepo != nil && event.EventID != ""
}

// record lưu kết quả; lỗi chỉ được log vì sự kiện đã được áp dụng.
func (s *GateService) record(ctx context.Context, event domain.GateEvent, result *domain.GateEventResult) {
	if !s.tracksEvent(event) {
		return
	}
	record := &domain.GateEventRecord{
		EventID:       event.EventID,
		LotID:         event.LotID,
		DeviceID:      event.DeviceID,
		EventType:     event.Type,
		VehicleNumber: result.VehicleNumber,
		ReservationID: null.NewString(result.ReservationID, result.ReservationID != ""),
		Status:        result.Status,
		Matched:       result.Matched,
		ProcessedAt:   result.ProcessedAt,
		ExpiresAt:     result.ProcessedAt.Add(gateEventRetention),
	}
	if err := s.eventRepo.Create(ctx, record); err != nil {
		log.Printf("GateService: Lỗi khi lưu sự kiện %s: %v", event.EventID, err)
	}
}

func (s *GateService) process(ctx context.Context, event domain.GateEvent) (*domain.GateEventResult, error) {
	result := &domain.GateEventResult{EventID: event.EventID, ProcessedAt: s.availability.Now()}

	plate, err := s.resolvePlate(ctx, event)
	if err != nil {
		log.Printf("GateService: Không xác định được biển số cho sự kiện %s tại bãi %d: %v", event.EventID, event.LotID, err)
		return result, nil
	}
	result.VehicleNumber = plate

	candidates, err := s.reservationRepo.FindOccupyingByVehicle(ctx, event.LotID, plate)
	if err != nil {
		return nil, storageError("GateService: tìm đặt chỗ theo biển số", err)
	}

	var res *domain.Reservation
	switch event.Type {
	case domain.GateVehicleEntry:
		if target := pickReservation(candidates, domain.ReservationConfirmed); target != nil {
			res, err = s.availability.CheckInByGate(ctx, target.ID)
		}
	case domain.GateVehicleExit:
		if target := pickReservation(candidates, domain.ReservationActive, domain.ReservationConfirmed, domain.ReservationPending); target != nil {
			res, err = s.availability.Complete(ctx, target.ID)
		}
	default:
		log.Printf("GateService: Loại sự kiện không hỗ trợ: '%s'", event.Type)
		return result, nil
	}

	if err != nil {
		if retryable(err) {
			return nil, err
		}
		log.Printf("GateService: Không thể xử lý %s cho biển số '%s': %v", event.Type, plate, err)
		return result, nil
	}
	if res == nil {
		log.Printf("GateService: Không có đặt chỗ phù hợp cho biển số '%s' tại bãi %d", plate, event.LotID)
		return result, nil
	}

	result.Matched = true
	result.ReservationID = res.ID
	result.Status = res.Status
	return result, nil
}

func (s *GateService) resolvePlate(ctx context.Context, event domain.GateEvent) (string, error) {
	if plate := domain.NormalizeVehicleNumber(event.VehicleNumber); plate != "" {
		return plate, nil
	}
	if event.ImageBase64 == "" {
		return "", errors.New("sự kiện không có biển số và ảnh")
	}
	if s.recognizer == nil {
		return "", errors.New("sự kiện chỉ có ảnh nhưng LPR chưa được bật")
	}
	plate, _, err := s.recognizer.RecognizePlate(ctx, event.ImageBase64)
	if err != nil {
		return "", fmt.Errorf("LPR: %w", err)
	}
	return domain.NormalizeVehicleNumber(plate), nil
}

// pickReservation chọn đặt chỗ đầu tiên (bắt đầu sớm nhất) theo thứ tự ưu tiên trạng thái.
func pickReservation(candidates []domain.Reservation, statuses ...domain.ReservationStatus) *domain.Reservation {
	for _, status := range statuses {
		for i := range candidates {
			if candidates[i].Status == status {
				return &candidates[i]
			}
		}
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrBusy) || errors.Is(err, context.DeadlineExceeded)
}
